package memstore

import (
	"fmt"
	"math"
	"time"

	"github.com/google/btree"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// primaryIndex is the unique _id index, a btree ordered by the
// canonical key of the identifier value.
type primaryIndex struct {
	tree *btree.BTreeG[*indexEntry]
}

type indexEntry struct {
	key string
	row *row
}

func newPrimaryIndex() *primaryIndex {
	return &primaryIndex{
		tree: btree.NewG(32, func(a, b *indexEntry) bool {
			return a.key < b.key
		}),
	}
}

func (p *primaryIndex) Add(id any, r *row) error {
	entry := &indexEntry{key: keyOf(id), row: r}
	if p.tree.Has(entry) {
		return fmt.Errorf("duplicated key: _id %v already exists", id)
	}
	p.tree.ReplaceOrInsert(entry)

	return nil
}

func (p *primaryIndex) Remove(id any) {
	p.tree.Delete(&indexEntry{key: keyOf(id)})
}

func (p *primaryIndex) Get(id any) *row {
	entry, found := p.tree.Get(&indexEntry{key: keyOf(id)})
	if !found {
		return nil
	}
	return entry.row
}

// keyOf maps an identifier value to a canonical string so that values
// equal under BSON comparison (int32(7), int64(7), 7.0) share one key.
func keyOf(id any) string {
	switch v := id.(type) {
	case string:
		return "s:" + v
	case bson.ObjectID:
		return "o:" + v.Hex()
	case int:
		return fmt.Sprintf("n:%d", v)
	case int32:
		return fmt.Sprintf("n:%d", v)
	case int64:
		return fmt.Sprintf("n:%d", v)
	case float64:
		if v == math.Trunc(v) {
			return fmt.Sprintf("n:%d", int64(v))
		}
		return fmt.Sprintf("n:%g", v)
	case bool:
		return fmt.Sprintf("b:%t", v)
	case time.Time:
		return fmt.Sprintf("t:%d", v.UnixMilli())
	default:
		return fmt.Sprintf("x:%v", v)
	}
}
