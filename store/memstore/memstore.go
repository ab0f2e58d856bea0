// Package memstore implements store.Collection in process memory, with
// optional append-only persistence. It exists so embedders and tests
// can run the typed mapping layer without a MongoDB server: filters go
// through connor (the same operator subset), documents live as bson.D
// rows guarded by a mutex, and _id is indexed in a btree.
package memstore

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/fulldump/docmap/store"
)

type Collection struct {
	filename string // just informative, empty when memory-only
	file     *os.File

	mu      sync.Mutex
	rows    []*row
	primary *primaryIndex
}

type row struct {
	i   int // position in rows
	doc bson.D
}

// NewCollection creates a memory-only collection.
func NewCollection() *Collection {
	return &Collection{
		primary: newPrimaryIndex(),
	}
}

// OpenCollection replays the command log at filename into memory and
// leaves the file open for appending. A missing file starts an empty
// collection.
func OpenCollection(filename string) (*Collection, error) {
	c := &Collection{
		filename: filename,
		primary:  newPrimaryIndex(),
	}

	err := replayLog(filename, c)
	if err != nil {
		return nil, fmt.Errorf("replay log: %w", err)
	}

	c.file, err = openLog(filename)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	return c, nil
}

// Close flushes and closes the command log, if any. The in-memory rows
// stay usable.
func (c *Collection) Close() error {
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}

func (c *Collection) InsertOne(ctx context.Context, document bson.D) (*store.InsertOneResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.addRow(document)
	if err != nil {
		return nil, err
	}
	err = c.persistInsert(r.doc)
	if err != nil {
		return nil, err
	}

	id, _ := lookupField(r.doc, "_id")
	return &store.InsertOneResult{InsertedID: id}, nil
}

func (c *Collection) InsertMany(ctx context.Context, documents []bson.D) (*store.InsertManyResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]any, 0, len(documents))
	for n, document := range documents {
		r, err := c.addRow(document)
		if err != nil {
			// No rollback: documents before n stay inserted, like a
			// bulk write that stops at the first error.
			return nil, fmt.Errorf("document %d: %w", n, err)
		}
		err = c.persistInsert(r.doc)
		if err != nil {
			return nil, err
		}
		id, _ := lookupField(r.doc, "_id")
		ids = append(ids, id)
	}

	return &store.InsertManyResult{InsertedIDs: ids}, nil
}

// addRow validates _id (generating one if absent), indexes the row and
// appends it. Callers hold the mutex.
func (c *Collection) addRow(document bson.D) (*row, error) {
	id, hasID := lookupField(document, "_id")
	if !hasID {
		id = bson.NewObjectID()
		document = append(bson.D{{Key: "_id", Value: id}}, document...)
	}

	r := &row{
		i:   len(c.rows),
		doc: document,
	}

	err := c.primary.Add(id, r)
	if err != nil {
		return nil, err
	}
	c.rows = append(c.rows, r)

	return r, nil
}

// removeRow unindexes the row and drops it from the slice, moving the
// last row into the hole. Callers hold the mutex.
func (c *Collection) removeRow(r *row) {
	id, _ := lookupField(r.doc, "_id")
	c.primary.Remove(id)

	last := len(c.rows) - 1
	c.rows[r.i] = c.rows[last]
	c.rows[r.i].i = r.i
	c.rows = c.rows[:last]
}

func (c *Collection) Find(ctx context.Context, filter any) (store.Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.matchAll(filter)
	if err != nil {
		return nil, err
	}

	docs := make([]bson.D, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, r.doc)
	}

	return newCursor(docs), nil
}

func (c *Collection) FindOne(ctx context.Context, filter any) (bson.Raw, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.matchFirst(filter)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, store.ErrNoDocuments
	}

	return bson.Marshal(r.doc)
}

func (c *Collection) FindOneAndDelete(ctx context.Context, filter any) (bson.Raw, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.matchFirst(filter)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, store.ErrNoDocuments
	}

	raw, err := bson.Marshal(r.doc)
	if err != nil {
		return nil, err
	}

	c.removeRow(r)
	err = c.persistRemove(r.doc)
	if err != nil {
		return nil, err
	}

	return raw, nil
}

func (c *Collection) FindOneAndReplace(ctx context.Context, filter any, replacement bson.D) (bson.Raw, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.matchFirst(filter)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, store.ErrNoDocuments
	}

	raw, err := bson.Marshal(r.doc)
	if err != nil {
		return nil, err
	}

	err = c.replaceRow(r, replacement)
	if err != nil {
		return nil, err
	}

	return raw, nil
}

func (c *Collection) ReplaceOne(ctx context.Context, filter any, replacement bson.D) (*store.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.matchFirst(filter)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return &store.UpdateResult{}, nil
	}

	old := r.doc
	err = c.replaceRow(r, replacement)
	if err != nil {
		return nil, err
	}

	result := &store.UpdateResult{MatchedCount: 1}
	if !reflect.DeepEqual(old, r.doc) {
		result.ModifiedCount = 1
	}

	return result, nil
}

// replaceRow swaps the row's document for replacement, keeping the
// original _id. Replacing _id with a different value is rejected, as
// the field is immutable. Callers hold the mutex.
func (c *Collection) replaceRow(r *row, replacement bson.D) error {
	oldID, _ := lookupField(r.doc, "_id")
	newID, hasID := lookupField(replacement, "_id")
	if hasID && keyOf(newID) != keyOf(oldID) {
		return fmt.Errorf("field '_id' is immutable")
	}
	if !hasID {
		replacement = append(bson.D{{Key: "_id", Value: oldID}}, replacement...)
	}

	old := r.doc
	r.doc = replacement

	err := c.persistRemove(old)
	if err != nil {
		return err
	}
	return c.persistInsert(replacement)
}

func (c *Collection) UpdateOne(ctx context.Context, filter any, update any, upsert bool) (*store.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.matchFirst(filter)
	if err != nil {
		return nil, err
	}

	if r == nil {
		if !upsert {
			return &store.UpdateResult{}, nil
		}
		seed, err := upsertSeed(filter)
		if err != nil {
			return nil, err
		}
		doc, err := applyUpdate(seed, update)
		if err != nil {
			return nil, err
		}
		r, err := c.addRow(doc)
		if err != nil {
			return nil, err
		}
		err = c.persistInsert(r.doc)
		if err != nil {
			return nil, err
		}
		id, _ := lookupField(r.doc, "_id")
		return &store.UpdateResult{UpsertedCount: 1, UpsertedID: id}, nil
	}

	modified, err := c.updateRow(r, update)
	if err != nil {
		return nil, err
	}

	result := &store.UpdateResult{MatchedCount: 1}
	if modified {
		result.ModifiedCount = 1
	}

	return result, nil
}

func (c *Collection) UpdateMany(ctx context.Context, filter any, update any) (*store.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.matchAll(filter)
	if err != nil {
		return nil, err
	}

	result := &store.UpdateResult{}
	for _, r := range rows {
		modified, err := c.updateRow(r, update)
		if err != nil {
			return nil, err
		}
		result.MatchedCount++
		if modified {
			result.ModifiedCount++
		}
	}

	return result, nil
}

func (c *Collection) updateRow(r *row, update any) (bool, error) {
	doc, err := applyUpdate(r.doc, update)
	if err != nil {
		return false, err
	}
	if reflect.DeepEqual(doc, r.doc) {
		return false, nil
	}

	return true, c.replaceRow(r, doc)
}

func (c *Collection) DeleteOne(ctx context.Context, filter any) (*store.DeleteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.matchFirst(filter)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return &store.DeleteResult{}, nil
	}

	c.removeRow(r)
	err = c.persistRemove(r.doc)
	if err != nil {
		return nil, err
	}

	return &store.DeleteResult{DeletedCount: 1}, nil
}

func (c *Collection) DeleteMany(ctx context.Context, filter any) (*store.DeleteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.matchAll(filter)
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		c.removeRow(r)
		err = c.persistRemove(r.doc)
		if err != nil {
			return nil, err
		}
	}

	return &store.DeleteResult{DeletedCount: int64(len(rows))}, nil
}

func (c *Collection) CountDocuments(ctx context.Context, filter any) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.matchAll(filter)
	if err != nil {
		return 0, err
	}

	return int64(len(rows)), nil
}

func (c *Collection) Drop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rows = nil
	c.primary = newPrimaryIndex()

	return c.truncateLog()
}

// Size returns the number of stored documents.
func (c *Collection) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.rows)
}
