package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestFind(c Config) {

	col := CreateCollection(c)
	ctx := context.Background()

	records := make([]Score, c.N)
	for i := range records {
		records[i] = Score{A: i, B: 4, C: 9}
	}
	_, err := col.InsertMany(ctx, records)
	if err != nil {
		fmt.Println("ERROR: insert many:", err.Error())
		os.Exit(3)
	}

	t0 := time.Now()
	cur, err := col.Find(ctx, bson.D{{Key: "b", Value: 4}})
	if err != nil {
		fmt.Println("ERROR: find:", err.Error())
		os.Exit(3)
	}

	read := 0
	for cur.Next(ctx) {
		read++
	}
	if cur.Err() != nil {
		fmt.Println("ERROR: cursor:", cur.Err().Error())
		os.Exit(3)
	}

	took := time.Since(t0)
	fmt.Println("read:", read)
	fmt.Println("took:", took)
	fmt.Printf("Throughput: %.2f rows/sec\n", float64(read)/took.Seconds())

}
