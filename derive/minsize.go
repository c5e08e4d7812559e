package derive

import "github.com/wippyai/wirecodec/schema"

// SizeFunc reports the minimum encoded size of an opaque type. Types that
// are still being derived (recursive references) report 0.
type SizeFunc func(ref schema.TypeRef) int

// NodeMinSize returns the minimum encoded size of a nested value.
func NodeMinSize(n schema.Node, sizes SizeFunc) int {
	if n.Optional {
		return 1
	}
	if n.Kind.VariableLength() {
		return 4
	}
	return bodyMinSize(n, sizes)
}

func bodyMinSize(n schema.Node, sizes SizeFunc) int {
	switch n.Kind {
	case schema.KindPrimitive:
		return n.Prim.Size()
	case schema.KindArray:
		return NodeMinSize(*n.Elem, sizes) * n.Len
	case schema.KindOpaque:
		if sizes == nil {
			return 0
		}
		return sizes(n.Ref)
	}
	return 0
}

// FieldMinSize returns a field's contribution to its record's minimum size.
// Skipped, default_on_eof and length-expression fields contribute nothing.
func FieldMinSize(f schema.Field, sizes SizeFunc) int {
	if f.Skip || f.DefaultOnEOF || f.HasLength() {
		return 0
	}
	var n int
	switch {
	case f.Node.Optional:
		n = 1
	case f.Node.Kind.VariableLength():
		n = f.LengthWidth.Size()
	default:
		n = bodyMinSize(f.Node, sizes)
	}
	return n + len(f.Prefix)
}

// RecordMinSize returns the sum of the field minimums.
func RecordMinSize(r schema.Record, sizes SizeFunc) int {
	total := 0
	for _, f := range r.Fields {
		total += FieldMinSize(f, sizes)
	}
	return total
}

// EnumMinSize returns the smallest payload minimum among the variants (0 if
// there are none), plus the tag size. With peek_tag the tag overlaps the
// payload, so the larger of the two is used.
//
// Unit variants take part with an empty payload rather than being left out.
// A bound taken over non-unit variants alone would exceed the encoded size
// of a unit variant, and collections of such values would then be rejected
// as truncated. Enums without unit variants are unaffected.
func EnumMinSize(e schema.Enum, sizes SizeFunc) int {
	payload := -1
	for _, v := range e.Variants {
		m := 0
		if !v.Payload.IsUnit() {
			m = RecordMinSize(v.Payload, sizes)
		}
		if payload < 0 || m < payload {
			payload = m
		}
	}
	if payload < 0 {
		payload = 0
	}
	tag := e.TagWidth.Size()
	if e.Peek {
		return max(payload, tag)
	}
	return payload + tag
}
