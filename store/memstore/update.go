package memstore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// applyUpdate returns a new document with the update operators applied
// to doc. Supported operators: $set, $unset, $inc.
//
// TODO: support dotted field paths in operator arguments.
func applyUpdate(doc bson.D, update any) (bson.D, error) {
	operators, err := asDoc(update)
	if err != nil {
		return nil, fmt.Errorf("unsupported update: %w", err)
	}

	out := make(bson.D, len(doc))
	copy(out, doc)

	for _, operator := range operators {
		argument, err := asDoc(operator.Value)
		if err != nil {
			return nil, fmt.Errorf("operator '%s': %w", operator.Key, err)
		}

		switch operator.Key {
		case "$set":
			for _, e := range argument {
				out = setField(out, e.Key, e.Value)
			}
		case "$unset":
			for _, e := range argument {
				out = unsetField(out, e.Key)
			}
		case "$inc":
			for _, e := range argument {
				current, _ := lookupField(out, e.Key)
				if current == nil {
					current = int64(0)
				}
				sum, err := addNumbers(current, e.Value)
				if err != nil {
					return nil, fmt.Errorf("$inc '%s': %w", e.Key, err)
				}
				out = setField(out, e.Key, sum)
			}
		default:
			return nil, fmt.Errorf("unsupported update operator '%s'", operator.Key)
		}
	}

	return out, nil
}

// asDoc coerces bson.D, bson.M and plain maps into an ordered bson.D.
func asDoc(value any) (bson.D, error) {
	switch v := value.(type) {
	case bson.D:
		return v, nil
	case bson.M:
		return remarshal(v)
	case map[string]any:
		return remarshal(v)
	default:
		return nil, fmt.Errorf("expected a document, got %T", value)
	}
}

func setField(doc bson.D, name string, value any) bson.D {
	for i, e := range doc {
		if e.Key == name {
			doc[i].Value = value
			return doc
		}
	}
	return append(doc, bson.E{Key: name, Value: value})
}

func unsetField(doc bson.D, name string) bson.D {
	for i, e := range doc {
		if e.Key == name {
			return append(doc[:i:i], doc[i+1:]...)
		}
	}
	return doc
}
