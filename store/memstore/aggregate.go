package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/SierraSoftworks/connor"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/fulldump/docmap/store"
)

// Aggregate runs the pipeline over a snapshot of the collection. The
// supported stage subset ($match, $group with $sum, $project, $sort,
// $skip, $limit) covers what a mapping layer needs from an in-process
// backend; anything else errors out instead of silently degrading.
func (c *Collection) Aggregate(ctx context.Context, pipeline []bson.D) (store.Cursor, error) {
	c.mu.Lock()
	docs := make([]bson.D, len(c.rows))
	for i, r := range c.rows {
		docs[i] = r.doc
	}
	c.mu.Unlock()

	for n, stage := range pipeline {
		if len(stage) != 1 {
			return nil, fmt.Errorf("stage %d: expected exactly one stage operator", n)
		}

		var err error
		operator := stage[0]
		switch operator.Key {
		case "$match":
			docs, err = matchStage(docs, operator.Value)
		case "$group":
			docs, err = groupStage(docs, operator.Value)
		case "$project":
			docs, err = projectStage(docs, operator.Value)
		case "$sort":
			docs, err = sortStage(docs, operator.Value)
		case "$skip":
			docs, err = skipStage(docs, operator.Value)
		case "$limit":
			docs, err = limitStage(docs, operator.Value)
		default:
			err = fmt.Errorf("unsupported stage '%s'", operator.Key)
		}
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", n, err)
		}
	}

	return newCursor(docs), nil
}

func matchStage(docs []bson.D, argument any) ([]bson.D, error) {
	conditions, err := filterAsMap(argument)
	if err != nil {
		return nil, err
	}

	var out []bson.D
	for _, doc := range docs {
		match, err := connor.Match(conditions, docAsMap(doc))
		if err != nil {
			return nil, fmt.Errorf("match: %w", err)
		}
		if match {
			out = append(out, doc)
		}
	}

	return out, nil
}

// groupStage buckets documents by the _id expression and runs the
// accumulators ($sum) over each bucket, preserving first-appearance
// order.
func groupStage(docs []bson.D, argument any) ([]bson.D, error) {
	spec, err := asDoc(argument)
	if err != nil {
		return nil, err
	}

	idExpr, hasID := lookupField(spec, "_id")
	if !hasID {
		return nil, fmt.Errorf("$group requires an _id expression")
	}

	type accumulator struct {
		name string
		expr any
	}
	var accumulators []accumulator
	for _, e := range spec {
		if e.Key == "_id" {
			continue
		}
		argument, err := asDoc(e.Value)
		if err != nil || len(argument) != 1 || argument[0].Key != "$sum" {
			return nil, fmt.Errorf("field '%s': only the $sum accumulator is supported", e.Key)
		}
		accumulators = append(accumulators, accumulator{name: e.Key, expr: argument[0].Value})
	}

	type group struct {
		id     any
		totals []any
	}
	var order []string
	groups := map[string]*group{}

	for _, doc := range docs {
		id, err := evalExpr(doc, idExpr)
		if err != nil {
			return nil, err
		}

		key := keyOf(id)
		g, exists := groups[key]
		if !exists {
			g = &group{id: id, totals: make([]any, len(accumulators))}
			for i := range g.totals {
				g.totals[i] = int64(0)
			}
			groups[key] = g
			order = append(order, key)
		}

		for i, acc := range accumulators {
			value, err := evalExpr(doc, acc.expr)
			if err != nil {
				return nil, err
			}
			if value == nil {
				continue // $sum ignores missing fields
			}
			g.totals[i], err = addNumbers(g.totals[i], value)
			if err != nil {
				return nil, fmt.Errorf("$sum '%s': %w", acc.name, err)
			}
		}
	}

	out := make([]bson.D, 0, len(order))
	for _, key := range order {
		g := groups[key]
		doc := bson.D{{Key: "_id", Value: g.id}}
		for i, acc := range accumulators {
			doc = append(doc, bson.E{Key: acc.name, Value: g.totals[i]})
		}
		out = append(out, doc)
	}

	return out, nil
}

// projectStage reshapes each document: 1/true includes a source field,
// 0/false on _id drops the default _id passthrough, anything else is
// evaluated as an expression.
func projectStage(docs []bson.D, argument any) ([]bson.D, error) {
	spec, err := asDoc(argument)
	if err != nil {
		return nil, err
	}

	out := make([]bson.D, 0, len(docs))
	for _, doc := range docs {
		projected := bson.D{}
		includeID := true

		for _, e := range spec {
			switch {
			case e.Key == "_id" && isExclusion(e.Value):
				includeID = false
			case isInclusion(e.Value):
				if value, exists := lookupPath(doc, e.Key); exists {
					projected = append(projected, bson.E{Key: e.Key, Value: value})
				}
			case isExclusion(e.Value):
				return nil, fmt.Errorf("cannot exclude field '%s' in an inclusion projection", e.Key)
			default:
				value, err := evalExpr(doc, e.Value)
				if err != nil {
					return nil, err
				}
				projected = append(projected, bson.E{Key: e.Key, Value: value})
			}
		}

		if _, projectsID := lookupField(projected, "_id"); includeID && !projectsID {
			if id, exists := lookupField(doc, "_id"); exists {
				projected = append(bson.D{{Key: "_id", Value: id}}, projected...)
			}
		}

		out = append(out, projected)
	}

	return out, nil
}

func sortStage(docs []bson.D, argument any) ([]bson.D, error) {
	spec, err := asDoc(argument)
	if err != nil {
		return nil, err
	}

	out := make([]bson.D, len(docs))
	copy(out, docs)

	sort.SliceStable(out, func(i, j int) bool {
		for _, e := range spec {
			a, _ := lookupPath(out[i], e.Key)
			b, _ := lookupPath(out[j], e.Key)
			cmp := compareValues(a, b)
			if cmp == 0 {
				continue
			}
			if direction, _ := toInt64(e.Value); direction < 0 {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	return out, nil
}

func skipStage(docs []bson.D, argument any) ([]bson.D, error) {
	n, ok := toInt64(argument)
	if !ok || n < 0 {
		return nil, fmt.Errorf("$skip requires a non-negative number")
	}
	if n >= int64(len(docs)) {
		return nil, nil
	}
	return docs[n:], nil
}

func limitStage(docs []bson.D, argument any) ([]bson.D, error) {
	n, ok := toInt64(argument)
	if !ok || n < 0 {
		return nil, fmt.Errorf("$limit requires a non-negative number")
	}
	if n >= int64(len(docs)) {
		return docs, nil
	}
	return docs[:n], nil
}

// evalExpr evaluates an aggregation expression against one document:
// "$field" paths, {$add: [...]} arithmetic, arrays and literals.
func evalExpr(doc bson.D, expr any) (any, error) {
	switch e := expr.(type) {
	case string:
		if strings.HasPrefix(e, "$") {
			value, _ := lookupPath(doc, strings.TrimPrefix(e, "$"))
			return value, nil
		}
		return e, nil
	case bson.D:
		if len(e) == 1 && strings.HasPrefix(e[0].Key, "$") {
			return evalOperator(doc, e[0].Key, e[0].Value)
		}
		evaluated := make(bson.D, 0, len(e))
		for _, field := range e {
			value, err := evalExpr(doc, field.Value)
			if err != nil {
				return nil, err
			}
			evaluated = append(evaluated, bson.E{Key: field.Key, Value: value})
		}
		return evaluated, nil
	case bson.M:
		d, err := asDoc(e)
		if err != nil {
			return nil, err
		}
		return evalExpr(doc, d)
	case bson.A:
		return evalArray(doc, e)
	case []any:
		return evalArray(doc, e)
	default:
		return e, nil
	}
}

func evalArray(doc bson.D, exprs []any) ([]any, error) {
	out := make([]any, len(exprs))
	for i, expr := range exprs {
		value, err := evalExpr(doc, expr)
		if err != nil {
			return nil, err
		}
		out[i] = value
	}
	return out, nil
}

func evalOperator(doc bson.D, name string, argument any) (any, error) {
	switch name {
	case "$add", "$sum":
		operands, err := operandList(doc, argument)
		if err != nil {
			return nil, err
		}
		total := any(int64(0))
		for _, operand := range operands {
			if operand == nil {
				continue
			}
			total, err = addNumbers(total, operand)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
		}
		return total, nil
	case "$subtract":
		operands, err := operandList(doc, argument)
		if err != nil {
			return nil, err
		}
		if len(operands) != 2 {
			return nil, fmt.Errorf("$subtract requires two operands")
		}
		return subtractNumbers(operands[0], operands[1])
	case "$multiply":
		operands, err := operandList(doc, argument)
		if err != nil {
			return nil, err
		}
		total := any(int64(1))
		for _, operand := range operands {
			total, err = multiplyNumbers(total, operand)
			if err != nil {
				return nil, fmt.Errorf("$multiply: %w", err)
			}
		}
		return total, nil
	case "$literal":
		return argument, nil
	default:
		return nil, fmt.Errorf("unsupported expression operator '%s'", name)
	}
}

func operandList(doc bson.D, argument any) ([]any, error) {
	switch a := argument.(type) {
	case bson.A:
		return evalArray(doc, a)
	case []any:
		return evalArray(doc, a)
	default:
		value, err := evalExpr(doc, argument)
		if err != nil {
			return nil, err
		}
		return []any{value}, nil
	}
}

func isInclusion(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	if n, ok := toInt64(v); ok {
		return n != 0
	}
	return false
}

func isExclusion(v any) bool {
	if b, ok := v.(bool); ok {
		return !b
	}
	if n, ok := toInt64(v); ok {
		return n == 0
	}
	return false
}

// lookupPath resolves a (possibly dotted) field path through nested
// documents.
func lookupPath(doc bson.D, path string) (any, bool) {
	head, rest, nested := strings.Cut(path, ".")
	value, exists := lookupField(doc, head)
	if !exists || !nested {
		return value, exists
	}
	child, ok := value.(bson.D)
	if !ok {
		return nil, false
	}
	return lookupPath(child, rest)
}
