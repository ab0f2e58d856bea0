package main

import (
	"log"
	"strings"

	"github.com/fulldump/goconfig"
)

type Config struct {
	Test       string `usage:"name of the test: INSERT | FIND | AGGREGATE"`
	Backend    string `usage:"storage backend: memory | mongo"`
	Uri        string `usage:"mongo connection string"`
	Database   string `usage:"mongo database name"`
	Collection string `usage:"collection name"`
	File       string `usage:"memory backend persistence file (empty = volatile)"`
	N          int64  `usage:"number of documents"`
	Workers    int    `usage:"number of workers"`
}

var cleanups []func()

func main() {

	defer func() {
		for _, cleanup := range cleanups {
			cleanup()
		}
	}()

	c := Config{
		Test:       "INSERT",
		Backend:    "memory",
		Uri:        "mongodb://localhost:27017",
		Database:   "docmap_bench",
		Collection: "",
		N:          100_000,
		Workers:    16,
	}
	goconfig.Read(&c)

	switch strings.ToUpper(c.Test) {
	case "INSERT":
		TestInsert(c)
	case "FIND":
		TestFind(c)
	case "AGGREGATE":
		TestAggregate(c)
	default:
		log.Fatalf("Unknown test %s", c.Test)
	}

}
