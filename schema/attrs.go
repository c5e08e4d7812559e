package schema

import (
	"strings"

	"github.com/wippyai/wirecodec/errors"
)

// Attr is one raw configuration entry: a bare flag ("skip") or a key with a
// value ("length_type = u8").
type Attr struct {
	Key      string
	Value    string
	Pos      string
	HasValue bool
}

func (a Attr) String() string {
	if a.HasValue {
		return a.Key + " = " + a.Value
	}
	return a.Key
}

// AttrGroup is the set of entries from one attribute annotation. An element
// may carry several groups; duplicates are detected across all of them.
type AttrGroup []Attr

// ParseAttrs splits a comma-separated attribute list. Commas inside quotes
// or brackets do not separate entries.
func ParseAttrs(src, pos string) (AttrGroup, error) {
	var group AttrGroup
	for _, entry := range splitTopLevel(src, ',') {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		attr, err := parseAttr(entry, pos)
		if err != nil {
			return nil, err
		}
		group = append(group, attr)
	}
	return group, nil
}

func parseAttr(entry, pos string) (Attr, error) {
	key, value, found := cutAssign(entry)
	key = strings.TrimSpace(key)
	if !isIdent(key) {
		return Attr{}, errors.New(errors.PhaseParse, errors.KindInvalidData).
			Pos(pos).
			Detail("invalid attribute %q", entry).
			Build()
	}
	if !found {
		return Attr{Key: key, Pos: pos}, nil
	}
	return Attr{Key: key, Value: strings.TrimSpace(value), HasValue: true, Pos: pos}, nil
}

// cutAssign splits at the first '=' that is not part of a comparison
// operator and sits outside quotes and brackets.
func cutAssign(s string) (string, string, bool) {
	for _, i := range topLevelIndexes(s, '=') {
		if i > 0 && strings.ContainsRune("!<>=", rune(s[i-1])) {
			continue
		}
		if i+1 < len(s) && s[i+1] == '=' {
			continue
		}
		return s[:i], s[i+1:], true
	}
	return s, "", false
}

func splitTopLevel(s string, sep byte) []string {
	var parts []string
	start := 0
	for _, i := range topLevelIndexes(s, sep) {
		parts = append(parts, s[start:i])
		start = i + 1
	}
	return append(parts, s[start:])
}

// topLevelIndexes returns the positions of sep outside quoted text and
// bracketed groups.
func topLevelIndexes(s string, sep byte) []int {
	var out []int
	var quote byte
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case c == '\\' && quote != '`':
				i++
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				out = append(out, i)
			}
		}
	}
	return out
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
