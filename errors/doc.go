// Package errors provides structured error types for the wirecodec library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, source position, Go and wire
// type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindDuplicateOption).
//		Path("Header", "items").
//		Pos("schema.yaml:12:5").
//		Detail("duplicate 'length'").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.EOF(path, 4, 1)
//	err := errors.LengthMismatch(path, 3, 4)
//
// Resolution errors (PhaseResolve) are raised while a declaration is validated
// and never at decode or encode time. Decode and encode errors come from the
// derived procedures; only EOF errors are recovered, and only at fields
// marked default_on_eof.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
