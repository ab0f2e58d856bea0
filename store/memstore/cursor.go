package memstore

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// cursor iterates a snapshot of matched documents taken at query time.
// Marshalling to raw BSON happens one document per advance.
type cursor struct {
	docs    []bson.D
	pos     int
	current bson.Raw
	err     error
	closed  bool
}

func newCursor(docs []bson.D) *cursor {
	return &cursor{docs: docs}
}

func (c *cursor) Next(ctx context.Context) bool {
	if c.closed || c.err != nil || c.pos >= len(c.docs) {
		return false
	}

	raw, err := bson.Marshal(c.docs[c.pos])
	if err != nil {
		c.err = err
		return false
	}

	c.current = raw
	c.pos++
	return true
}

func (c *cursor) Current() bson.Raw {
	return c.current
}

func (c *cursor) Err() error {
	return c.err
}

func (c *cursor) Close(ctx context.Context) error {
	c.closed = true
	c.docs = nil
	return nil
}
