// Package codec compiles Go types into wire codecs and runs them.
//
// A Compiler reflects over a type once, resolves its wire tags, derives the
// op program for every field and caches the resulting Plan. Plans decode
// into a fresh value and copy it to the destination only on success, and
// encode into a writer that is truncated back on failure.
//
// Structs are records. A struct with a blank wirecodec.Enum field is an
// enum whose variants are its pointer fields. Types implementing both
// wirecodec.Decodable and wirecodec.Encodable on their pointer are
// delegated to. Every other type is classified structurally:
//
//	*T                  option: one presence byte, then T
//	string              u32 byte length, then UTF-8 bytes
//	wire.RawString      as string, aliasing the input on decode
//	[]T                 u32 count, then elements
//	wire.RawBytes       u32 count, then bytes aliasing the input
//	map[K]struct{}      u32 count, then keys
//	map[K]V             u32 count, then key and value pairs
//	[N]T                N elements, no count
//
// Map and set keys of ordered kinds are encoded in ascending order.
package codec
