package derive

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FormatOps renders an op sequence on one line, e.g.
// "prefix(4142) presence length(u8) sequence[primitive(u16)]".
func FormatOps(ops []Op) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = formatOp(op)
	}
	return strings.Join(parts, " ")
}

func formatOp(op Op) string {
	switch op.Code {
	case OpPrefix:
		return fmt.Sprintf("prefix(%x)", op.Bytes)
	case OpLength:
		return "length(" + op.Width.String() + ")"
	case OpLengthExpr:
		return "length-expr(" + op.Expr.Source + ")"
	case OpPrimitive:
		return "primitive(" + op.Prim.String() + ")"
	case OpDelegate:
		return "delegate(" + op.Node.Ref.String() + ")"
	case OpDefault:
		return "default(" + op.Node.String() + ")"
	case OpSequence, OpSet:
		return op.Code.String() + "[" + FormatOps(op.Elem) + "]"
	case OpArray:
		return "array" + strconv.Itoa(op.Len) + "[" + FormatOps(op.Elem) + "]"
	case OpMap:
		return "map[" + FormatOps(op.Key) + " => " + FormatOps(op.Elem) + "]"
	}
	return op.Code.String()
}

// WriteListing prints a record program: one decode and one encode line per
// field.
func (p *RecordProgram) WriteListing(w io.Writer, indent string) {
	for _, fp := range p.Fields {
		f := fp.Field
		var flags []string
		if f.Skip {
			flags = append(flags, "skip")
		}
		if f.DefaultOnEOF {
			flags = append(flags, "default_on_eof")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Fprintf(w, "%s%s %s (min %d)%s\n", indent, f.Name, f.Type, fp.MinSize, suffix)
		fmt.Fprintf(w, "%s  decode: %s\n", indent, FormatOps(fp.Decode))
		if len(fp.Encode) == 0 {
			fmt.Fprintf(w, "%s  encode: -\n", indent)
		} else {
			fmt.Fprintf(w, "%s  encode: %s\n", indent, FormatOps(fp.Encode))
		}
	}
}

// Listing returns the text form of a record program.
func (p *RecordProgram) Listing() string {
	var b strings.Builder
	fmt.Fprintf(&b, "record %s %s (min %d)\n", p.Record.Name, p.Record.Style, p.MinSize)
	p.WriteListing(&b, "  ")
	return b.String()
}

// Listing returns the text form of an enum program.
func (p *EnumProgram) Listing() string {
	var b strings.Builder
	peek := ""
	if p.Enum.Peek {
		peek = " peek"
	}
	fmt.Fprintf(&b, "enum %s tag=%s%s (min %d)\n", p.Enum.Name, p.Enum.TagWidth, peek, p.MinSize)
	for _, c := range p.Cases {
		fmt.Fprintf(&b, "  %s = %d %s (min %d)\n", c.Variant.Name, c.Variant.Tag, c.Program.Record.Style, c.Program.MinSize)
		c.Program.WriteListing(&b, "    ")
	}
	return b.String()
}
