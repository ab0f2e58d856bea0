package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldMissing reports a manifest field with no matching entry in
	// the document being decoded.
	ErrFieldMissing = errors.New("field missing")

	// ErrFieldTypeMismatch reports a document value that cannot be
	// converted to the declared field type without losing information.
	ErrFieldTypeMismatch = errors.New("field type mismatch")
)

// DecodeError wraps a per-field failure with the name of the offending
// field. Decode never returns a partially populated record: the first
// DecodeError aborts the whole decode.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode field '%s': %s", e.Field, e.Err.Error())
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
