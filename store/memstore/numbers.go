package memstore

import (
	"fmt"
	"strings"
	"time"
)

// Numeric helpers shared by updates, accumulators and sorting. BSON
// integers widen to int64; any float operand makes the result float64.

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

func addNumbers(a, b any) (any, error) {
	if isFloat(a) || isFloat(b) {
		fa, okA := toFloat64(a)
		fb, okB := toFloat64(b)
		if !okA || !okB {
			return nil, fmt.Errorf("cannot add %T and %T", a, b)
		}
		return fa + fb, nil
	}

	ia, okA := toInt64(a)
	ib, okB := toInt64(b)
	if !okA || !okB {
		return nil, fmt.Errorf("cannot add %T and %T", a, b)
	}
	return ia + ib, nil
}

func subtractNumbers(a, b any) (any, error) {
	if isFloat(a) || isFloat(b) {
		fa, okA := toFloat64(a)
		fb, okB := toFloat64(b)
		if !okA || !okB {
			return nil, fmt.Errorf("cannot subtract %T and %T", a, b)
		}
		return fa - fb, nil
	}

	ia, okA := toInt64(a)
	ib, okB := toInt64(b)
	if !okA || !okB {
		return nil, fmt.Errorf("cannot subtract %T and %T", a, b)
	}
	return ia - ib, nil
}

func multiplyNumbers(a, b any) (any, error) {
	if isFloat(a) || isFloat(b) {
		fa, okA := toFloat64(a)
		fb, okB := toFloat64(b)
		if !okA || !okB {
			return nil, fmt.Errorf("cannot multiply %T and %T", a, b)
		}
		return fa * fb, nil
	}

	ia, okA := toInt64(a)
	ib, okB := toInt64(b)
	if !okA || !okB {
		return nil, fmt.Errorf("cannot multiply %T and %T", a, b)
	}
	return ia * ib, nil
}

// compareValues orders two BSON values of compatible types: numbers by
// value, strings lexically, times chronologically. Incomparable pairs
// fall back to their printed form, which keeps sorting total and
// deterministic.
func compareValues(a, b any) int {
	fa, okA := toFloat64(a)
	fb, okB := toFloat64(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}

	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb)
	}

	ta, okA := a.(time.Time)
	tb, okB := b.(time.Time)
	if okA && okB {
		return ta.Compare(tb)
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
