package schema

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/wippyai/wirecodec/errors"
	"github.com/wippyai/wirecodec/wire"
)

// TagAllocator assigns discriminants to variants in declaration order.
type TagAllocator struct {
	enum  string
	owner map[uint64]string
	prev  uint64
	max   uint64
	width wire.Width
	any   bool
}

// NewTagAllocator returns an allocator for an enum with the given tag width.
func NewTagAllocator(enum string, width wire.Width) *TagAllocator {
	return &TagAllocator{
		enum:  enum,
		width: width,
		max:   width.Max(),
		owner: make(map[uint64]string),
	}
}

// Next resolves the discriminant of the next variant. An explicit tag wins
// over a source discriminant, which wins over previous+1 (0 for the first
// variant).
func (a *TagAllocator) Next(variant, pos string, explicit *uint64, discriminant string) (uint64, error) {
	full := a.enum + "::" + variant

	var tag uint64
	switch {
	case explicit != nil:
		tag = *explicit
		if tag > a.max {
			return 0, errors.DiscriminantOverflow(pos, a.enum, variant, tag, a.width.String())
		}
	case strings.TrimSpace(discriminant) != "":
		v, ok := parseDiscriminant(discriminant)
		if !ok {
			return 0, errors.New(errors.PhaseResolve, errors.KindUnsupported).
				Pos(pos).
				Value(discriminant).
				Detail("enum discriminant `%s` is currently unsupported", full).
				Build()
		}
		if v > a.max {
			return 0, errors.DiscriminantOverflow(pos, a.enum, variant, v, a.width.String())
		}
		tag = v
	case a.any:
		if a.prev >= a.max {
			return 0, errors.DiscriminantOverflow(pos, a.enum, variant, successor(a.prev), a.width.String())
		}
		tag = a.prev + 1
	}

	a.prev = tag
	a.any = true
	if other, ok := a.owner[tag]; ok {
		return 0, errors.DuplicateDiscriminant(pos, tag, full, other)
	}
	a.owner[tag] = full
	return tag, nil
}

// successor returns v+1, as a big.Int when it does not fit in a uint64.
func successor(v uint64) any {
	if v < math.MaxUint64 {
		return v + 1
	}
	return new(big.Int).Add(new(big.Int).SetUint64(v), big.NewInt(1))
}

// parseDiscriminant accepts only unsigned integer literals.
func parseDiscriminant(s string) (uint64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	v, err := strconv.ParseUint(s, 0, 64)
	return v, err == nil
}
