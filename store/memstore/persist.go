package memstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Command is one entry of the append-only log. Payload is the affected
// document in canonical Extended JSON, so BSON types (ObjectID, dates)
// survive the round trip.
type Command struct {
	Name      string         `json:"name"` // insert | remove
	Uuid      string         `json:"uuid"`
	Timestamp int64          `json:"timestamp"`
	Payload   jsontext.Value `json:"payload"`
}

func openLog(filename string) (*os.File, error) {
	return os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
}

// replayLog reads the command log and applies each command to the
// collection. A missing file is an empty collection.
func replayLog(filename string, c *Collection) error {
	f, err := os.Open(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := jsontext.NewDecoder(f)
	for {
		command := &Command{}
		err := jsonv2.UnmarshalDecode(decoder, command)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("decode command: %w", err)
		}

		doc := bson.D{}
		err = bson.UnmarshalExtJSON(command.Payload, true, &doc)
		if err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}

		switch command.Name {
		case "insert":
			_, err := c.addRow(doc)
			if err != nil {
				return fmt.Errorf("replay insert: %w", err)
			}
		case "remove":
			id, exists := lookupField(doc, "_id")
			if !exists {
				return fmt.Errorf("replay remove: payload without _id")
			}
			r := c.primary.Get(id)
			if r == nil {
				return fmt.Errorf("replay remove: _id %v not found", id)
			}
			c.removeRow(r)
		default:
			return fmt.Errorf("unknown command '%s'", command.Name)
		}
	}

	return nil
}

func (c *Collection) persistInsert(doc bson.D) error {
	return c.persist("insert", doc)
}

// persistRemove logs the removal keyed by the document's _id only.
func (c *Collection) persistRemove(doc bson.D) error {
	id, _ := lookupField(doc, "_id")
	return c.persist("remove", bson.D{{Key: "_id", Value: id}})
}

func (c *Collection) persist(name string, doc bson.D) error {
	if c.file == nil {
		return nil
	}

	payload, err := bson.MarshalExtJSON(doc, true, false)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	command := &Command{
		Name:      name,
		Uuid:      uuid.New().String(),
		Timestamp: time.Now().UnixNano(),
		Payload:   payload,
	}

	err = jsonv2.MarshalWrite(c.file, command)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	_, err = c.file.Write([]byte("\n"))

	return err
}

func (c *Collection) truncateLog() error {
	if c.file == nil {
		return nil
	}
	return c.file.Truncate(0)
}
