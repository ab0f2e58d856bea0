package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/fulldump/docmap/codec"
	"github.com/fulldump/docmap/collection"
	"github.com/fulldump/docmap/store"
	"github.com/fulldump/docmap/store/memstore"
	"github.com/fulldump/docmap/store/mongostore"
)

// Score is the benchmark record: three small integers, enough to
// exercise encode, decode and the aggregation path.
type Score struct {
	A int
	B int
	C int
}

var scoreManifest = codec.NewManifest(
	codec.Int("a", func(s *Score) *int { return &s.A }),
	codec.Int("b", func(s *Score) *int { return &s.B }),
	codec.Int("c", func(s *Score) *int { return &s.C }),
)

func Parallel(workers int, f func()) {
	wg := &sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}
	wg.Wait()
}

// CreateCollection builds the typed collection on the configured
// backend. The returned cleanup drops benchmark data and disconnects.
func CreateCollection(c Config) *collection.Collection[Score] {

	name := c.Collection
	if name == "" {
		name = "bench-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	}

	var raw store.Collection
	switch c.Backend {
	case "memory":
		if c.File == "" {
			raw = memstore.NewCollection()
			break
		}
		memcol, err := memstore.OpenCollection(c.File)
		if err != nil {
			fmt.Println("ERROR: open collection:", err.Error())
			os.Exit(2)
		}
		cleanups = append(cleanups, func() {
			memcol.Close()
		})
		raw = memcol
	case "mongo":
		client, err := mongo.Connect(options.Client().ApplyURI(c.Uri))
		if err != nil {
			fmt.Println("ERROR: connect mongo:", err.Error())
			os.Exit(2)
		}
		cleanups = append(cleanups, func() {
			client.Disconnect(context.Background())
		})
		raw = mongostore.Wrap(client.Database(c.Database).Collection(name))
	default:
		fmt.Println("ERROR: unknown backend:", c.Backend)
		os.Exit(2)
	}

	return collection.NewCollection(raw, scoreManifest)
}
