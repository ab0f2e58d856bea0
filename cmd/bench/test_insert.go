package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

func TestInsert(c Config) {

	col := CreateCollection(c)

	const batchSize = 1000

	items := c.N

	t0 := time.Now()
	Parallel(c.Workers, func() {
		ctx := context.Background()
		for {
			n := atomic.AddInt64(&items, -batchSize)
			if n < 0 {
				break
			}

			batch := make([]Score, batchSize)
			for i := range batch {
				batch[i] = Score{A: int(n) + i, B: 4, C: 9}
			}

			_, err := col.InsertMany(ctx, batch)
			if err != nil {
				fmt.Println("ERROR: insert many:", err.Error())
				os.Exit(3)
			}
		}
	})

	took := time.Since(t0)
	fmt.Println("sent:", c.N)
	fmt.Println("took:", took)
	fmt.Printf("Throughput: %.2f rows/sec\n", float64(c.N)/took.Seconds())

}
