// Package mongostore backs a store.Collection with a MongoDB
// collection through the official driver. It is a thin translation:
// driver results map to store results, mongo.ErrNoDocuments maps to
// store.ErrNoDocuments, everything else passes through untouched.
package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/fulldump/docmap/store"
)

type Collection struct {
	coll *mongo.Collection
}

// Wrap adapts a driver collection handle. The handle's client must
// outlive the returned collection.
func Wrap(coll *mongo.Collection) *Collection {
	return &Collection{coll: coll}
}

func (c *Collection) InsertOne(ctx context.Context, document bson.D) (*store.InsertOneResult, error) {
	result, err := c.coll.InsertOne(ctx, document)
	if err != nil {
		return nil, err
	}
	if !result.Acknowledged {
		return nil, nil
	}

	return &store.InsertOneResult{InsertedID: result.InsertedID}, nil
}

func (c *Collection) InsertMany(ctx context.Context, documents []bson.D) (*store.InsertManyResult, error) {
	batch := make([]any, len(documents))
	for i, doc := range documents {
		batch[i] = doc
	}

	result, err := c.coll.InsertMany(ctx, batch)
	if err != nil {
		return nil, err
	}
	if !result.Acknowledged {
		return nil, nil
	}

	return &store.InsertManyResult{InsertedIDs: result.InsertedIDs}, nil
}

func (c *Collection) Find(ctx context.Context, filter any) (store.Cursor, error) {
	cur, err := c.coll.Find(ctx, normalize(filter))
	if err != nil {
		return nil, err
	}

	return &cursor{cur: cur}, nil
}

func (c *Collection) FindOne(ctx context.Context, filter any) (bson.Raw, error) {
	return singleRaw(c.coll.FindOne(ctx, normalize(filter)))
}

func (c *Collection) FindOneAndDelete(ctx context.Context, filter any) (bson.Raw, error) {
	return singleRaw(c.coll.FindOneAndDelete(ctx, normalize(filter)))
}

func (c *Collection) FindOneAndReplace(ctx context.Context, filter any, replacement bson.D) (bson.Raw, error) {
	opts := options.FindOneAndReplace().SetReturnDocument(options.Before)
	return singleRaw(c.coll.FindOneAndReplace(ctx, normalize(filter), replacement, opts))
}

func (c *Collection) ReplaceOne(ctx context.Context, filter any, replacement bson.D) (*store.UpdateResult, error) {
	result, err := c.coll.ReplaceOne(ctx, normalize(filter), replacement)
	if err != nil {
		return nil, err
	}

	return updateResult(result), nil
}

func (c *Collection) UpdateOne(ctx context.Context, filter any, update any, upsert bool) (*store.UpdateResult, error) {
	result, err := c.coll.UpdateOne(ctx, normalize(filter), update, options.UpdateOne().SetUpsert(upsert))
	if err != nil {
		return nil, err
	}

	return updateResult(result), nil
}

func (c *Collection) UpdateMany(ctx context.Context, filter any, update any) (*store.UpdateResult, error) {
	result, err := c.coll.UpdateMany(ctx, normalize(filter), update)
	if err != nil {
		return nil, err
	}

	return updateResult(result), nil
}

func (c *Collection) DeleteOne(ctx context.Context, filter any) (*store.DeleteResult, error) {
	result, err := c.coll.DeleteOne(ctx, normalize(filter))
	if err != nil {
		return nil, err
	}
	if !result.Acknowledged {
		return nil, nil
	}

	return &store.DeleteResult{DeletedCount: result.DeletedCount}, nil
}

func (c *Collection) DeleteMany(ctx context.Context, filter any) (*store.DeleteResult, error) {
	result, err := c.coll.DeleteMany(ctx, normalize(filter))
	if err != nil {
		return nil, err
	}
	if !result.Acknowledged {
		return nil, nil
	}

	return &store.DeleteResult{DeletedCount: result.DeletedCount}, nil
}

func (c *Collection) CountDocuments(ctx context.Context, filter any) (int64, error) {
	return c.coll.CountDocuments(ctx, normalize(filter))
}

func (c *Collection) Aggregate(ctx context.Context, pipeline []bson.D) (store.Cursor, error) {
	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	return &cursor{cur: cur}, nil
}

func (c *Collection) Drop(ctx context.Context) error {
	return c.coll.Drop(ctx)
}

// normalize keeps the driver happy when callers pass a nil filter to
// mean "everything".
func normalize(filter any) any {
	if filter == nil {
		return bson.D{}
	}
	return filter
}

func singleRaw(result *mongo.SingleResult) (bson.Raw, error) {
	raw, err := result.Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNoDocuments
	}
	if err != nil {
		return nil, err
	}

	return raw, nil
}

func updateResult(result *mongo.UpdateResult) *store.UpdateResult {
	if !result.Acknowledged {
		return nil
	}

	return &store.UpdateResult{
		MatchedCount:  result.MatchedCount,
		ModifiedCount: result.ModifiedCount,
		UpsertedCount: result.UpsertedCount,
		UpsertedID:    result.UpsertedID,
	}
}

type cursor struct {
	cur *mongo.Cursor
}

func (c *cursor) Next(ctx context.Context) bool {
	return c.cur.Next(ctx)
}

func (c *cursor) Current() bson.Raw {
	return c.cur.Current
}

func (c *cursor) Err() error {
	return c.cur.Err()
}

func (c *cursor) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}
