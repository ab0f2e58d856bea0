package memstore

import (
	"context"
	"testing"

	. "github.com/fulldump/biff"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/fulldump/docmap/store"
)

func TestInsertOneGeneratesID(t *testing.T) {

	// Setup
	ctx := context.Background()
	c := NewCollection()

	// Run
	result, err := c.InsertOne(ctx, bson.D{{Key: "name", Value: "Fulanez"}})

	// Check
	AssertNil(err)
	_, isObjectID := result.InsertedID.(bson.ObjectID)
	AssertTrue(isObjectID)
	AssertEqual(c.Size(), 1)
}

func TestInsertOneDuplicatedID(t *testing.T) {

	// Setup
	ctx := context.Background()
	c := NewCollection()
	c.InsertOne(ctx, bson.D{{Key: "_id", Value: "my-id"}})

	// Run
	result, err := c.InsertOne(ctx, bson.D{{Key: "_id", Value: "my-id"}})

	// Check
	AssertNil(result)
	AssertNotNil(err)
	AssertEqual(c.Size(), 1)
}

func TestFindByID(t *testing.T) {

	// Setup
	ctx := context.Background()
	c := NewCollection()
	for i := 0; i < 100; i++ {
		c.InsertOne(ctx, bson.D{{Key: "_id", Value: i}, {Key: "name", Value: "Fulanez"}})
	}

	// Run: exercises the primary index fast path
	raw, err := c.FindOne(ctx, bson.D{{Key: "_id", Value: 42}})

	// Check
	AssertNil(err)
	AssertEqual(raw.Lookup("_id").AsInt64(), int64(42))
}

func TestFindOneNoDocuments(t *testing.T) {

	// Setup
	ctx := context.Background()
	c := NewCollection()

	// Run
	raw, err := c.FindOne(ctx, bson.D{{Key: "name", Value: "Fulanez"}})

	// Check
	AssertNil(raw)
	AssertEqual(err, store.ErrNoDocuments)
}

func TestFindOperators(t *testing.T) {

	// Setup
	ctx := context.Background()
	c := NewCollection()
	for i := 0; i < 10; i++ {
		c.InsertOne(ctx, bson.D{{Key: "n", Value: i}})
	}

	// Run
	cur, err := c.Find(ctx, bson.D{{Key: "n", Value: bson.D{{Key: "$gte", Value: 7}}}})

	// Check
	AssertNil(err)
	read := 0
	for cur.Next(ctx) {
		read++
	}
	AssertNil(cur.Err())
	AssertEqual(read, 3)
}

func TestUpdateOneSetAndInc(t *testing.T) {

	// Setup
	ctx := context.Background()
	c := NewCollection()
	c.InsertOne(ctx, bson.D{{Key: "_id", Value: "counter"}, {Key: "hits", Value: 10}, {Key: "old", Value: true}})

	// Run
	result, err := c.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: "counter"}},
		bson.D{
			{Key: "$inc", Value: bson.D{{Key: "hits", Value: 5}}},
			{Key: "$unset", Value: bson.D{{Key: "old", Value: ""}}},
		},
		false,
	)

	// Check
	AssertNil(err)
	AssertEqual(result.MatchedCount, int64(1))
	AssertEqual(result.ModifiedCount, int64(1))

	raw, _ := c.FindOne(ctx, bson.D{{Key: "_id", Value: "counter"}})
	AssertEqual(raw.Lookup("hits").AsInt64(), int64(15))
	_, errLookup := raw.LookupErr("old")
	AssertNotNil(errLookup)
}

func TestUpdateOneNoChange(t *testing.T) {

	// Setup
	ctx := context.Background()
	c := NewCollection()
	c.InsertOne(ctx, bson.D{{Key: "_id", Value: "counter"}, {Key: "hits", Value: 10}})

	// Run: setting the current value matches without modifying
	result, err := c.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: "counter"}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "hits", Value: 10}}}},
		false,
	)

	// Check
	AssertNil(err)
	AssertEqual(result.MatchedCount, int64(1))
	AssertEqual(result.ModifiedCount, int64(0))
}

func TestUpdateOneUpsert(t *testing.T) {

	// Setup
	ctx := context.Background()
	c := NewCollection()

	// Run
	result, err := c.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: "counter"}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "hits", Value: 1}}}},
		true,
	)

	// Check: the filter equality seeds the new document
	AssertNil(err)
	AssertEqual(result.UpsertedCount, int64(1))
	AssertEqual(result.UpsertedID, "counter")

	raw, _ := c.FindOne(ctx, bson.D{{Key: "_id", Value: "counter"}})
	AssertEqual(raw.Lookup("hits").AsInt64(), int64(1))
}

func TestUpdateMany(t *testing.T) {

	// Setup
	ctx := context.Background()
	c := NewCollection()
	for i := 0; i < 10; i++ {
		c.InsertOne(ctx, bson.D{{Key: "n", Value: i}, {Key: "even", Value: i%2 == 0}})
	}

	// Run
	result, err := c.UpdateMany(ctx,
		bson.D{{Key: "even", Value: true}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "n", Value: 0}}}},
	)

	// Check
	AssertNil(err)
	AssertEqual(result.MatchedCount, int64(5))
	AssertEqual(result.ModifiedCount, int64(4)) // n=0 was already 0
}

func TestReplaceOneKeepsID(t *testing.T) {

	// Setup
	ctx := context.Background()
	c := NewCollection()
	c.InsertOne(ctx, bson.D{{Key: "_id", Value: "my-id"}, {Key: "name", Value: "Fulanez"}})

	// Run
	result, err := c.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: "my-id"}},
		bson.D{{Key: "name", Value: "Menganez"}},
	)

	// Check
	AssertNil(err)
	AssertEqual(result.ModifiedCount, int64(1))

	raw, _ := c.FindOne(ctx, bson.D{{Key: "_id", Value: "my-id"}})
	AssertEqual(raw.Lookup("name").StringValue(), "Menganez")
}

func TestReplaceOneImmutableID(t *testing.T) {

	// Setup
	ctx := context.Background()
	c := NewCollection()
	c.InsertOne(ctx, bson.D{{Key: "_id", Value: "my-id"}})

	// Run
	result, err := c.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: "my-id"}},
		bson.D{{Key: "_id", Value: "other-id"}},
	)

	// Check
	AssertNil(result)
	AssertNotNil(err)
}

func TestDeleteMany(t *testing.T) {

	// Setup
	ctx := context.Background()
	c := NewCollection()
	for i := 0; i < 10; i++ {
		c.InsertOne(ctx, bson.D{{Key: "n", Value: i}})
	}

	// Run
	result, err := c.DeleteMany(ctx, bson.D{{Key: "n", Value: bson.D{{Key: "$lt", Value: 4}}}})

	// Check
	AssertNil(err)
	AssertEqual(result.DeletedCount, int64(4))
	AssertEqual(c.Size(), 6)
}

func TestDrop(t *testing.T) {

	// Setup
	ctx := context.Background()
	c := NewCollection()
	c.InsertOne(ctx, bson.D{{Key: "name", Value: "Fulanez"}})

	// Run
	err := c.Drop(ctx)

	// Check: the collection is empty and usable again
	AssertNil(err)
	AssertEqual(c.Size(), 0)

	_, err = c.InsertOne(ctx, bson.D{{Key: "name", Value: "Fulanez"}})
	AssertNil(err)
}

func TestPersistence(t *testing.T) {
	Environment(func(filename string) {

		// Setup
		ctx := context.Background()
		c, err := OpenCollection(filename)
		AssertNil(err)

		c.InsertOne(ctx, bson.D{{Key: "_id", Value: "a"}, {Key: "n", Value: 1}})
		c.InsertOne(ctx, bson.D{{Key: "_id", Value: "b"}, {Key: "n", Value: 2}})
		c.InsertOne(ctx, bson.D{{Key: "_id", Value: "c"}, {Key: "n", Value: 3}})
		c.DeleteOne(ctx, bson.D{{Key: "_id", Value: "b"}})
		c.UpdateOne(ctx,
			bson.D{{Key: "_id", Value: "c"}},
			bson.D{{Key: "$set", Value: bson.D{{Key: "n", Value: 300}}}},
			false,
		)
		AssertNil(c.Close())

		// Run: reopen and replay
		c, err = OpenCollection(filename)
		AssertNil(err)
		defer c.Close()

		// Check
		AssertEqual(c.Size(), 2)

		raw, err := c.FindOne(ctx, bson.D{{Key: "_id", Value: "c"}})
		AssertNil(err)
		AssertEqual(raw.Lookup("n").AsInt64(), int64(300))

		_, err = c.FindOne(ctx, bson.D{{Key: "_id", Value: "b"}})
		AssertEqual(err, store.ErrNoDocuments)
	})
}

func TestPersistenceObjectID(t *testing.T) {
	Environment(func(filename string) {

		// Setup: generated _id must survive the extended json round trip
		ctx := context.Background()
		c, _ := OpenCollection(filename)
		result, _ := c.InsertOne(ctx, bson.D{{Key: "name", Value: "Fulanez"}})
		id := result.InsertedID.(bson.ObjectID)
		AssertNil(c.Close())

		// Run
		c, err := OpenCollection(filename)
		AssertNil(err)
		defer c.Close()

		// Check
		raw, err := c.FindOne(ctx, bson.D{{Key: "_id", Value: id}})
		AssertNil(err)
		AssertEqual(raw.Lookup("name").StringValue(), "Fulanez")
	})
}
