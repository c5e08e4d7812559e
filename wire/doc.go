// Package wire implements the byte-level format shared by every derived codec:
// integer widths for lengths and tags, LEB128 varints, and the Reader and
// Writer primitives the derived procedures call in field order.
//
// All fixed-width integers and floats are little-endian. A length or tag is
// written at one of six widths:
//
//	u7          one byte, value must be <= 127
//	u8          one byte
//	u16         two bytes
//	u32         four bytes (default for lengths and tags)
//	u64         eight bytes
//	u64_varint  unsigned LEB128, one to ten bytes
//
// Optional values carry a one-byte presence flag: 0 means absent, any other
// value means present. Writers always emit 1.
package wire
