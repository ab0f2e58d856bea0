package codec

import (
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Type is the value codec for a single field value: Encode produces a
// value the BSON marshaller understands, Decode converts a raw BSON
// value back. Decode fails with ErrFieldTypeMismatch when the stored
// value cannot be converted without losing information.
type Type[T any] struct {
	Encode func(v T) (any, error)
	Decode func(raw bson.RawValue) (T, error)
}

func mismatch(want string, raw bson.RawValue) error {
	return fmt.Errorf("%w: want %s, got %s", ErrFieldTypeMismatch, want, raw.Type.String())
}

func StringType() Type[string] {
	return Type[string]{
		Encode: func(v string) (any, error) {
			return v, nil
		},
		Decode: func(raw bson.RawValue) (string, error) {
			s, ok := raw.StringValueOK()
			if !ok {
				return "", mismatch("string", raw)
			}
			return s, nil
		},
	}
}

func IntType() Type[int] {
	wide := Int64Type()
	return Type[int]{
		Encode: func(v int) (any, error) {
			return int64(v), nil
		},
		Decode: func(raw bson.RawValue) (int, error) {
			n, err := wide.Decode(raw)
			return int(n), err
		},
	}
}

func Int32Type() Type[int32] {
	return Type[int32]{
		Encode: func(v int32) (any, error) {
			return v, nil
		},
		Decode: func(raw bson.RawValue) (int32, error) {
			switch raw.Type {
			case bson.TypeInt32:
				return raw.Int32(), nil
			case bson.TypeInt64:
				n := raw.Int64()
				if n >= math.MinInt32 && n <= math.MaxInt32 {
					return int32(n), nil
				}
			case bson.TypeDouble:
				f := raw.Double()
				if f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32 {
					return int32(f), nil
				}
			}
			return 0, mismatch("int32", raw)
		},
	}
}

func Int64Type() Type[int64] {
	return Type[int64]{
		Encode: func(v int64) (any, error) {
			return v, nil
		},
		Decode: func(raw bson.RawValue) (int64, error) {
			switch raw.Type {
			case bson.TypeInt32:
				return int64(raw.Int32()), nil
			case bson.TypeInt64:
				return raw.Int64(), nil
			case bson.TypeDouble:
				f := raw.Double()
				if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
					return int64(f), nil
				}
			}
			return 0, mismatch("int64", raw)
		},
	}
}

func Float64Type() Type[float64] {
	return Type[float64]{
		Encode: func(v float64) (any, error) {
			return v, nil
		},
		Decode: func(raw bson.RawValue) (float64, error) {
			switch raw.Type {
			case bson.TypeDouble:
				return raw.Double(), nil
			case bson.TypeInt32:
				return float64(raw.Int32()), nil
			case bson.TypeInt64:
				return float64(raw.Int64()), nil
			}
			return 0, mismatch("float64", raw)
		},
	}
}

func BoolType() Type[bool] {
	return Type[bool]{
		Encode: func(v bool) (any, error) {
			return v, nil
		},
		Decode: func(raw bson.RawValue) (bool, error) {
			b, ok := raw.BooleanOK()
			if !ok {
				return false, mismatch("bool", raw)
			}
			return b, nil
		},
	}
}

// TimeType maps time.Time to the BSON datetime type. BSON datetimes
// have millisecond resolution, so encode truncates to the millisecond
// and normalizes to UTC.
func TimeType() Type[time.Time] {
	return Type[time.Time]{
		Encode: func(v time.Time) (any, error) {
			return v.UTC().Truncate(time.Millisecond), nil
		},
		Decode: func(raw bson.RawValue) (time.Time, error) {
			t, ok := raw.TimeOK()
			if !ok {
				return time.Time{}, mismatch("datetime", raw)
			}
			return t.UTC(), nil
		},
	}
}

func ObjectIDType() Type[bson.ObjectID] {
	return Type[bson.ObjectID]{
		Encode: func(v bson.ObjectID) (any, error) {
			return v, nil
		},
		Decode: func(raw bson.RawValue) (bson.ObjectID, error) {
			id, ok := raw.ObjectIDOK()
			if !ok {
				return bson.ObjectID{}, mismatch("objectId", raw)
			}
			return id, nil
		},
	}
}

// DocType embeds a record with its own manifest as a nested document.
func DocType[T any](m *Manifest[T]) Type[T] {
	return Type[T]{
		Encode: func(v T) (any, error) {
			return m.Encode(&v)
		},
		Decode: func(raw bson.RawValue) (T, error) {
			var zero T
			doc, ok := raw.DocumentOK()
			if !ok {
				return zero, mismatch("document", raw)
			}
			record, err := m.Decode(doc)
			if err != nil {
				return zero, err
			}
			return *record, nil
		},
	}
}

// SliceType maps []E to a BSON array of elem-encoded values.
func SliceType[E any](elem Type[E]) Type[[]E] {
	return Type[[]E]{
		Encode: func(v []E) (any, error) {
			arr := make(bson.A, 0, len(v))
			for i, e := range v {
				value, err := elem.Encode(e)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				arr = append(arr, value)
			}
			return arr, nil
		},
		Decode: func(raw bson.RawValue) ([]E, error) {
			arr, ok := raw.ArrayOK()
			if !ok {
				return nil, mismatch("array", raw)
			}
			values, err := arr.Values()
			if err != nil {
				return nil, fmt.Errorf("%w: malformed array", ErrFieldTypeMismatch)
			}
			out := make([]E, 0, len(values))
			for i, v := range values {
				e, err := elem.Decode(v)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				out = append(out, e)
			}
			return out, nil
		},
	}
}
