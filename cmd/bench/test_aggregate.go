package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/fulldump/docmap/codec"
	"github.com/fulldump/docmap/collection"
)

// ScoreSum is the aggregation output: one bucket per b value, with the
// sums of every field.
type ScoreSum struct {
	B   int
	Sum int
}

var scoreSumManifest = codec.NewManifest(
	codec.Int("b", func(s *ScoreSum) *int { return &s.B }),
	codec.Int("sum", func(s *ScoreSum) *int { return &s.Sum }),
)

func TestAggregate(c Config) {

	col := CreateCollection(c)
	ctx := context.Background()

	records := make([]Score, c.N)
	for i := range records {
		records[i] = Score{A: 1, B: i % 10, C: 9}
	}
	_, err := col.InsertMany(ctx, records)
	if err != nil {
		fmt.Println("ERROR: insert many:", err.Error())
		os.Exit(3)
	}

	pipeline := []bson.D{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$b"},
			{Key: "a", Value: bson.D{{Key: "$sum", Value: "$a"}}},
			{Key: "c", Value: bson.D{{Key: "$sum", Value: "$c"}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "b", Value: "$_id"},
			{Key: "sum", Value: bson.D{{Key: "$add", Value: bson.A{"$a", "$c"}}}},
		}}},
	}

	t0 := time.Now()
	cur, err := collection.Aggregate(ctx, col, scoreSumManifest, pipeline)
	if err != nil {
		fmt.Println("ERROR: aggregate:", err.Error())
		os.Exit(3)
	}

	results, err := cur.All(ctx)
	if err != nil {
		fmt.Println("ERROR: cursor:", err.Error())
		os.Exit(3)
	}

	took := time.Since(t0)
	for _, r := range results {
		fmt.Printf("b=%d sum=%d\n", r.B, r.Sum)
	}
	fmt.Println("took:", took)

}
