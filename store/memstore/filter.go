package memstore

import (
	"fmt"

	"github.com/SierraSoftworks/connor"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// matchAll returns the rows matching filter, in row order. Callers hold
// the mutex.
func (c *Collection) matchAll(filter any) ([]*row, error) {
	conditions, err := filterAsMap(filter)
	if err != nil {
		return nil, err
	}

	if r, ok, err := c.lookupByID(conditions); ok || err != nil {
		if err != nil || r == nil {
			return nil, err
		}
		return []*row{r}, nil
	}

	var matches []*row
	for _, r := range c.rows {
		match, err := connor.Match(conditions, docAsMap(r.doc))
		if err != nil {
			return nil, fmt.Errorf("match: %w", err)
		}
		if match {
			matches = append(matches, r)
		}
	}

	return matches, nil
}

// matchFirst returns the first row matching filter, or nil. Callers
// hold the mutex.
func (c *Collection) matchFirst(filter any) (*row, error) {
	conditions, err := filterAsMap(filter)
	if err != nil {
		return nil, err
	}

	if r, ok, err := c.lookupByID(conditions); ok || err != nil {
		return r, err
	}

	for _, r := range c.rows {
		match, err := connor.Match(conditions, docAsMap(r.doc))
		if err != nil {
			return nil, fmt.Errorf("match: %w", err)
		}
		if match {
			return r, nil
		}
	}

	return nil, nil
}

// lookupByID resolves `{_id: <scalar>}` filters through the primary
// index instead of scanning. ok reports whether the filter had that
// shape.
func (c *Collection) lookupByID(conditions map[string]any) (*row, bool, error) {
	if len(conditions) != 1 {
		return nil, false, nil
	}
	id, exists := conditions["_id"]
	if !exists {
		return nil, false, nil
	}
	if _, isDoc := id.(map[string]any); isDoc {
		// Operator filter on _id, let connor evaluate it.
		return nil, false, nil
	}

	return c.primary.Get(id), true, nil
}

// filterAsMap normalizes any accepted filter shape (nil, bson.D,
// bson.M, plain maps, struct) into the map form connor evaluates.
func filterAsMap(filter any) (map[string]any, error) {
	switch f := filter.(type) {
	case nil:
		return map[string]any{}, nil
	case bson.D:
		return docAsMap(f), nil
	case bson.M:
		return mapAsMap(f), nil
	case map[string]any:
		return mapAsMap(f), nil
	default:
		doc, err := remarshal(filter)
		if err != nil {
			return nil, fmt.Errorf("unsupported filter: %w", err)
		}
		return docAsMap(doc), nil
	}
}

func docAsMap(doc bson.D) map[string]any {
	m := make(map[string]any, len(doc))
	for _, e := range doc {
		m[e.Key] = valueAsAny(e.Value)
	}
	return m
}

func mapAsMap(in map[string]any) map[string]any {
	m := make(map[string]any, len(in))
	for k, v := range in {
		m[k] = valueAsAny(v)
	}
	return m
}

func valueAsAny(v any) any {
	switch v := v.(type) {
	case bson.D:
		return docAsMap(v)
	case bson.M:
		return mapAsMap(v)
	case map[string]any:
		return mapAsMap(v)
	case bson.A:
		return sliceAsAny(v)
	case []any:
		return sliceAsAny(v)
	default:
		return v
	}
}

func sliceAsAny(in []any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = valueAsAny(v)
	}
	return out
}

// upsertSeed builds the starting document of an upsert from the
// filter's equality conditions, mirroring the server behavior.
func upsertSeed(filter any) (bson.D, error) {
	conditions, err := filterAsMap(filter)
	if err != nil {
		return nil, err
	}

	seed := bson.D{}
	if id, exists := conditions["_id"]; exists {
		if _, isDoc := id.(map[string]any); !isDoc {
			seed = append(seed, bson.E{Key: "_id", Value: id})
		}
	}
	for k, v := range conditions {
		if k == "_id" {
			continue
		}
		if _, isDoc := v.(map[string]any); isDoc {
			continue // operator condition, not an equality
		}
		seed = append(seed, bson.E{Key: k, Value: v})
	}

	return seed, nil
}

func lookupField(doc bson.D, name string) (any, bool) {
	for _, e := range doc {
		if e.Key == name {
			return e.Value, true
		}
	}
	return nil, false
}
