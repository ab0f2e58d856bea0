// Package codec converts typed records to and from BSON documents.
//
// A record type declares its encodable fields once, as an ordered
// manifest of (name, accessor, value type) entries. The manifest is the
// only schema surface: encoding and decoding walk it in declared order,
// with no reflection over the record type.
package codec

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Manifest is the ordered field list of one record type R. Build it
// once with NewManifest and share it freely; it is immutable and safe
// for concurrent use.
type Manifest[R any] struct {
	fields []Field[R]
}

// NewManifest builds the manifest for R. Field names must be unique;
// a duplicate is a programmer error and panics.
func NewManifest[R any](fields ...Field[R]) *Manifest[R] {
	seen := map[string]bool{}
	for _, f := range fields {
		if seen[f.name] {
			panic(fmt.Sprintf("codec: duplicated field '%s'", f.name))
		}
		seen[f.name] = true
	}

	return &Manifest[R]{fields: fields}
}

// Encode produces the document for r. Field order in the document is
// the manifest's declared order. Optional fields holding nil are
// omitted.
func (m *Manifest[R]) Encode(r *R) (bson.D, error) {
	doc := make(bson.D, 0, len(m.fields))
	for _, f := range m.fields {
		value, present, err := f.encode(r)
		if err != nil {
			return nil, fmt.Errorf("encode field '%s': %w", f.name, err)
		}
		if !present {
			continue
		}
		doc = append(doc, bson.E{Key: f.name, Value: value})
	}

	return doc, nil
}

// Decode builds a record from raw. Every required manifest field must
// be present and convertible; the first failure aborts the decode and
// no record is returned. Document fields not named by the manifest are
// ignored, so documents wider than R (projections, aggregation output)
// decode cleanly.
func (m *Manifest[R]) Decode(raw bson.Raw) (*R, error) {
	r := new(R)
	for _, f := range m.fields {
		value, err := raw.LookupErr(f.name)
		if err != nil {
			if f.missing != nil {
				f.missing(r)
				continue
			}
			return nil, &DecodeError{Field: f.name, Err: ErrFieldMissing}
		}
		err = f.decode(r, value)
		if err != nil {
			return nil, &DecodeError{Field: f.name, Err: err}
		}
	}

	return r, nil
}

// Field is one manifest entry. Construct fields with NewField or the
// typed helpers (String, Int64, Doc, Slice, Optional...).
type Field[R any] struct {
	name    string
	encode  func(r *R) (value any, present bool, err error)
	decode  func(r *R, value bson.RawValue) error
	missing func(r *R) // non-nil marks the field optional
}

// Name returns the document field name.
func (f Field[R]) Name() string {
	return f.name
}

// NewField declares a required field of any value type. The accessor
// returns a pointer into the record, serving both reads (encode) and
// writes (decode).
func NewField[R, T any](name string, access func(*R) *T, t Type[T]) Field[R] {
	return Field[R]{
		name: name,
		encode: func(r *R) (any, bool, error) {
			value, err := t.Encode(*access(r))
			return value, true, err
		},
		decode: func(r *R, raw bson.RawValue) error {
			value, err := t.Decode(raw)
			if err != nil {
				return err
			}
			*access(r) = value
			return nil
		},
	}
}

// Optional declares a field backed by a pointer in the record. A nil
// pointer encodes as an omitted document field; a missing or null
// document field decodes as nil, never as an error.
func Optional[R, T any](name string, access func(*R) **T, t Type[T]) Field[R] {
	return Field[R]{
		name: name,
		encode: func(r *R) (any, bool, error) {
			p := *access(r)
			if p == nil {
				return nil, false, nil
			}
			value, err := t.Encode(*p)
			return value, true, err
		},
		decode: func(r *R, raw bson.RawValue) error {
			if raw.Type == bson.TypeNull {
				*access(r) = nil
				return nil
			}
			value, err := t.Decode(raw)
			if err != nil {
				return err
			}
			*access(r) = &value
			return nil
		},
		missing: func(r *R) {
			*access(r) = nil
		},
	}
}

// Typed helpers for the common field shapes.

func String[R any](name string, access func(*R) *string) Field[R] {
	return NewField(name, access, StringType())
}

func Int[R any](name string, access func(*R) *int) Field[R] {
	return NewField(name, access, IntType())
}

func Int32[R any](name string, access func(*R) *int32) Field[R] {
	return NewField(name, access, Int32Type())
}

func Int64[R any](name string, access func(*R) *int64) Field[R] {
	return NewField(name, access, Int64Type())
}

func Float64[R any](name string, access func(*R) *float64) Field[R] {
	return NewField(name, access, Float64Type())
}

func Bool[R any](name string, access func(*R) *bool) Field[R] {
	return NewField(name, access, BoolType())
}

func Time[R any](name string, access func(*R) *time.Time) Field[R] {
	return NewField(name, access, TimeType())
}

func ObjectID[R any](name string, access func(*R) *bson.ObjectID) Field[R] {
	return NewField(name, access, ObjectIDType())
}

// Doc declares a nested record field driven by its own manifest.
func Doc[R, N any](name string, access func(*R) *N, nested *Manifest[N]) Field[R] {
	return NewField(name, access, DocType(nested))
}

// Slice declares a BSON array field with homogeneous elements.
func Slice[R, E any](name string, access func(*R) *[]E, elem Type[E]) Field[R] {
	return NewField(name, access, SliceType(elem))
}
