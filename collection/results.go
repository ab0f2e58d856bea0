package collection

import (
	"github.com/fulldump/docmap/store"
)

// Write outcomes returned by the typed operations. Any of them is nil
// (with a nil error) when the backend did not acknowledge the write.

type InsertOneResult struct {
	InsertedID any
}

type InsertManyResult struct {
	InsertedCount int
	InsertedIDs   []any
}

type ReplaceResult struct {
	MatchedCount  int64
	ModifiedCount int64
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

func newUpdateResult(r *store.UpdateResult) *UpdateResult {
	return &UpdateResult{
		MatchedCount:  r.MatchedCount,
		ModifiedCount: r.ModifiedCount,
		UpsertedCount: r.UpsertedCount,
		UpsertedID:    r.UpsertedID,
	}
}
