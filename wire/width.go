package wire

import "math"

// Width is the encoding class of a length prefix or enum tag.
type Width uint8

const (
	U7 Width = iota
	U8
	U16
	U32
	U64
	Varint64
)

// Default widths for length prefixes and enum tags.
const (
	DefaultLength = U32
	DefaultTag    = U32
)

var widthNames = [...]string{
	U7:       "u7",
	U8:       "u8",
	U16:      "u16",
	U32:      "u32",
	U64:      "u64",
	Varint64: "u64_varint",
}

func (w Width) String() string {
	if int(w) < len(widthNames) {
		return widthNames[w]
	}
	return "unknown"
}

// Size returns the smallest number of bytes a value of this width occupies.
func (w Width) Size() int {
	switch w {
	case U7, U8, Varint64:
		return 1
	case U16:
		return 2
	case U32:
		return 4
	case U64:
		return 8
	}
	return 0
}

// Max returns the largest value representable at this width.
func (w Width) Max() uint64 {
	switch w {
	case U7:
		return 127
	case U8:
		return math.MaxUint8
	case U16:
		return math.MaxUint16
	case U32:
		return math.MaxUint32
	}
	return math.MaxUint64
}

// Fixed reports whether values of this width always occupy Size bytes.
func (w Width) Fixed() bool {
	return w != Varint64
}

// ParseWidth maps a width name ("u7", "u8", "u16", "u32", "u64",
// "u64_varint") to its Width.
func ParseWidth(name string) (Width, bool) {
	for i, n := range widthNames {
		if n == name {
			return Width(i), true
		}
	}
	return 0, false
}

// WidthNames lists the accepted width names in declaration order.
func WidthNames() []string {
	return widthNames[:]
}
