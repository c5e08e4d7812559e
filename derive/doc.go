// Package derive turns validated schema records and enums into programs:
// ordered decode and encode operation sequences per field, plus the
// minimum number of input bytes a value needs.
//
// A field's decode sequence is, in order: the constant prefix check, the
// presence flag for optional fields, the length (read from a prefix or
// evaluated from an expression over earlier fields), then the body. The
// encode sequence mirrors it, except that a length expression is checked
// against the live value before anything for the field is written. Skipped
// fields decode to their zero value and are never written.
//
// Container elements follow default conventions: a u32 length prefix for
// nested variable-size values and a presence flag for optional elements.
// Programs are immutable and safe for concurrent use.
package derive
