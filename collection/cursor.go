package collection

import (
	"context"

	"github.com/fulldump/docmap/codec"
	"github.com/fulldump/docmap/store"
)

// Cursor is a one-pass, forward-only stream of typed records over a raw
// document cursor. Each advance decodes exactly one document; nothing
// is buffered beyond the element just decoded. A consumed or failed
// cursor cannot be rewound, run the query again for a fresh one.
type Cursor[T any] struct {
	raw    store.Cursor
	codec  *codec.Manifest[T]
	value  *T
	err    error
	done   bool
	closed bool
}

func newCursor[T any](raw store.Cursor, m *codec.Manifest[T]) *Cursor[T] {
	return &Cursor[T]{
		raw:   raw,
		codec: m,
	}
}

// Next advances to the next record, decoding it from the underlying
// cursor. It returns false on exhaustion, on a fetch failure, or on a
// decode failure; check Err to tell the cases apart. A decode failure
// terminates the cursor, later calls keep returning false.
func (c *Cursor[T]) Next(ctx context.Context) bool {
	if c.done {
		return false
	}

	if !c.raw.Next(ctx) {
		c.done = true
		c.err = c.raw.Err()
		c.release(ctx)
		return false
	}

	value, err := c.codec.Decode(c.raw.Current())
	if err != nil {
		c.done = true
		c.err = err
		c.release(ctx)
		return false
	}

	c.value = value
	return true
}

// Value returns the record decoded by the last successful Next. It is
// only valid until the next advance.
func (c *Cursor[T]) Value() *T {
	return c.value
}

// Err returns the fetch or decode error that stopped iteration, or nil
// after a clean exhaustion.
func (c *Cursor[T]) Err() error {
	return c.err
}

// Close releases the underlying raw cursor and any server-side
// resources it holds. It is safe to call more than once and after
// exhaustion.
func (c *Cursor[T]) Close(ctx context.Context) error {
	c.done = true
	return c.release(ctx)
}

// All consumes the rest of the cursor into a slice and closes it.
func (c *Cursor[T]) All(ctx context.Context) ([]T, error) {
	defer c.Close(ctx)

	var records []T
	for c.Next(ctx) {
		records = append(records, *c.value)
	}
	if c.err != nil {
		return nil, c.err
	}

	return records, nil
}

func (c *Cursor[T]) release(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.raw.Close(ctx)
}
