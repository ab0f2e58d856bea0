// Package store defines the raw document-store surface the typed
// mapping layer is built on. Backends implement Collection and Cursor
// over plain BSON documents; see store/mongostore and store/memstore.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrNoDocuments reports that a single-document operation matched
// nothing. Callers above this layer translate it into an absent result,
// never into a user-visible error.
var ErrNoDocuments = errors.New("no documents in result")

// Collection is one raw collection handle. Filters and updates are
// BSON documents (bson.D, bson.M or map[string]any); single-document
// reads return the matched document raw, or ErrNoDocuments.
//
// Write results are nil only when err is nil and the backend did not
// acknowledge the write.
type Collection interface {
	InsertOne(ctx context.Context, document bson.D) (*InsertOneResult, error)
	InsertMany(ctx context.Context, documents []bson.D) (*InsertManyResult, error)
	Find(ctx context.Context, filter any) (Cursor, error)
	FindOne(ctx context.Context, filter any) (bson.Raw, error)
	FindOneAndDelete(ctx context.Context, filter any) (bson.Raw, error)
	FindOneAndReplace(ctx context.Context, filter any, replacement bson.D) (bson.Raw, error)
	ReplaceOne(ctx context.Context, filter any, replacement bson.D) (*UpdateResult, error)
	UpdateOne(ctx context.Context, filter any, update any, upsert bool) (*UpdateResult, error)
	UpdateMany(ctx context.Context, filter any, update any) (*UpdateResult, error)
	DeleteOne(ctx context.Context, filter any) (*DeleteResult, error)
	DeleteMany(ctx context.Context, filter any) (*DeleteResult, error)
	CountDocuments(ctx context.Context, filter any) (int64, error)
	Aggregate(ctx context.Context, pipeline []bson.D) (Cursor, error)
	Drop(ctx context.Context) error
}

// Cursor iterates a result set one raw document at a time. Next may
// block while the backend fetches more documents. After Next returns
// false, Err distinguishes clean exhaustion (nil) from a failed fetch.
type Cursor interface {
	Next(ctx context.Context) bool
	Current() bson.Raw
	Err() error
	Close(ctx context.Context) error
}

type InsertOneResult struct {
	InsertedID any
}

type InsertManyResult struct {
	InsertedIDs []any
}

type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedCount int64
	UpsertedID    any
}

type DeleteResult struct {
	DeletedCount int64
}
