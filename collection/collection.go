// Package collection exposes typed CRUD and aggregation over a raw
// document-store collection. A Collection[R] binds one store.Collection
// to one record type R through its codec manifest; records go in and
// out as R, documents never leak to the caller.
package collection

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/fulldump/docmap/codec"
	"github.com/fulldump/docmap/store"
)

type Collection[R any] struct {
	store store.Collection
	codec *codec.Manifest[R]
}

func NewCollection[R any](s store.Collection, m *codec.Manifest[R]) *Collection[R] {
	return &Collection[R]{
		store: s,
		codec: m,
	}
}

// Store returns the underlying raw collection handle.
func (c *Collection[R]) Store() store.Collection {
	return c.store
}

// Find runs the query and returns a lazily decoded cursor over the
// matches. A store failure is returned eagerly only if the backend
// reports it at query time; decode failures surface per element as the
// cursor is consumed.
func (c *Collection[R]) Find(ctx context.Context, filter any) (*Cursor[R], error) {
	raw, err := c.store.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	return newCursor(raw, c.codec), nil
}

// FindOne returns the first match decoded into R, or (nil, nil) when
// nothing matches. A document that matches but does not decode is an
// error, not an absence.
func (c *Collection[R]) FindOne(ctx context.Context, filter any) (*R, error) {
	raw, err := c.store.FindOne(ctx, filter)
	if errors.Is(err, store.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return c.codec.Decode(raw)
}

// FindOneAndDelete atomically removes one match and returns its
// pre-deletion value, or (nil, nil) when nothing matched.
func (c *Collection[R]) FindOneAndDelete(ctx context.Context, filter any) (*R, error) {
	raw, err := c.store.FindOneAndDelete(ctx, filter)
	if errors.Is(err, store.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return c.codec.Decode(raw)
}

// FindOneAndReplace atomically replaces one match with the encoding of
// replacement and returns the pre-replacement value, or (nil, nil)
// when nothing matched.
func (c *Collection[R]) FindOneAndReplace(ctx context.Context, filter any, replacement *R) (*R, error) {
	doc, err := c.codec.Encode(replacement)
	if err != nil {
		return nil, err
	}

	raw, err := c.store.FindOneAndReplace(ctx, filter, doc)
	if errors.Is(err, store.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return c.codec.Decode(raw)
}

// InsertOne encodes and inserts one record. The result is nil when the
// backend did not acknowledge the write.
func (c *Collection[R]) InsertOne(ctx context.Context, record *R) (*InsertOneResult, error) {
	doc, err := c.codec.Encode(record)
	if err != nil {
		return nil, err
	}

	result, err := c.store.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	return &InsertOneResult{InsertedID: result.InsertedID}, nil
}

// InsertMany encodes the records preserving their order and inserts
// them as a single batch. On full success InsertedCount equals
// len(records); partial-failure behavior is whatever the backend does.
func (c *Collection[R]) InsertMany(ctx context.Context, records []R) (*InsertManyResult, error) {
	docs := make([]bson.D, 0, len(records))
	for i := range records {
		doc, err := c.codec.Encode(&records[i])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		docs = append(docs, doc)
	}

	result, err := c.store.InsertMany(ctx, docs)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	return &InsertManyResult{
		InsertedCount: len(result.InsertedIDs),
		InsertedIDs:   result.InsertedIDs,
	}, nil
}

// ReplaceOne replaces at most one match with the encoding of
// replacement.
func (c *Collection[R]) ReplaceOne(ctx context.Context, filter any, replacement *R) (*ReplaceResult, error) {
	doc, err := c.codec.Encode(replacement)
	if err != nil {
		return nil, err
	}

	result, err := c.store.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	return &ReplaceResult{
		MatchedCount:  result.MatchedCount,
		ModifiedCount: result.ModifiedCount,
	}, nil
}

// UpdateOne applies a raw update document ($set, $inc...) to at most
// one match.
func (c *Collection[R]) UpdateOne(ctx context.Context, filter any, update any) (*UpdateResult, error) {
	result, err := c.store.UpdateOne(ctx, filter, update, false)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	return newUpdateResult(result), nil
}

// UpdateMany applies a raw update document to every match.
func (c *Collection[R]) UpdateMany(ctx context.Context, filter any, update any) (*UpdateResult, error) {
	result, err := c.store.UpdateMany(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	return newUpdateResult(result), nil
}

// Save upserts the record under the given identifier: the stored
// document ends up as the encoding of record with _id set to id,
// whether or not it existed before.
func (c *Collection[R]) Save(ctx context.Context, id any, record *R) (*UpdateResult, error) {
	doc, err := c.codec.Encode(record)
	if err != nil {
		return nil, err
	}

	result, err := c.store.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: doc}}, true)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	return newUpdateResult(result), nil
}

// RemoveByID deletes the document stored under the given identifier.
func (c *Collection[R]) RemoveByID(ctx context.Context, id any) (*DeleteResult, error) {
	return c.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// DeleteOne deletes at most one match.
func (c *Collection[R]) DeleteOne(ctx context.Context, filter any) (*DeleteResult, error) {
	result, err := c.store.DeleteOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	return &DeleteResult{DeletedCount: result.DeletedCount}, nil
}

// DeleteMany deletes every match.
func (c *Collection[R]) DeleteMany(ctx context.Context, filter any) (*DeleteResult, error) {
	result, err := c.store.DeleteMany(ctx, filter)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	return &DeleteResult{DeletedCount: result.DeletedCount}, nil
}

// Count returns the number of documents matching filter.
func (c *Collection[R]) Count(ctx context.Context, filter any) (int64, error) {
	return c.store.CountDocuments(ctx, filter)
}

// Drop removes the underlying collection and all its documents.
func (c *Collection[R]) Drop(ctx context.Context) error {
	return c.store.Drop(ctx)
}

// Aggregate forwards the pipeline stages unchanged and decodes each
// result document into T, which is usually not the collection's record
// type: pipeline stages reshape documents, so the caller provides the
// manifest of the output shape.
func Aggregate[T, R any](ctx context.Context, c *Collection[R], m *codec.Manifest[T], pipeline []bson.D) (*Cursor[T], error) {
	raw, err := c.store.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	return newCursor(raw, m), nil
}
