package store

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/gridstats/nfldb/internal/query"
)

// matches evaluates a constraint tree against one record. An empty tree
// matches everything.
func matches(rec Record, constraint query.M) bool {
	for key, cond := range constraint {
		switch key {
		case "$and":
			for _, sub := range subTrees(cond) {
				if !matches(rec, sub) {
					return false
				}
			}
		case "$or":
			subs := subTrees(cond)
			matched := false
			for _, sub := range subs {
				if matches(rec, sub) {
					matched = true
					break
				}
			}
			if len(subs) > 0 && !matched {
				return false
			}
		case "$nor":
			for _, sub := range subTrees(cond) {
				if matches(rec, sub) {
					return false
				}
			}
		default:
			if !matchesField(rec, key, cond) {
				return false
			}
		}
	}
	return true
}

func matchesField(rec Record, field string, cond any) bool {
	value, exists := rec[field]
	if ops, ok := operatorDoc(cond); ok {
		return evalOperators(value, exists, ops)
	}
	return equalsOrContains(value, cond)
}

func evalOperators(value any, exists bool, ops query.M) bool {
	var pattern string
	var options string
	hasRegex := false
	for op, operand := range ops {
		switch op {
		case "$regex":
			pattern, _ = operand.(string)
			hasRegex = true
		case "$options":
			options, _ = operand.(string)
		case "$eq":
			if operand == nil {
				if exists && value != nil {
					return false
				}
			} else if !equalsOrContains(value, operand) {
				return false
			}
		case "$ne":
			if operand == nil {
				if !exists || value == nil {
					return false
				}
			} else if equalsOrContains(value, operand) {
				return false
			}
		case "$in":
			if !inSet(value, operand) {
				return false
			}
		case "$nin":
			if inSet(value, operand) {
				return false
			}
		case "$gt":
			if c, ok := compareValues(value, operand); !ok || c <= 0 {
				return false
			}
		case "$gte":
			if c, ok := compareValues(value, operand); !ok || c < 0 {
				return false
			}
		case "$lt":
			if c, ok := compareValues(value, operand); !ok || c >= 0 {
				return false
			}
		case "$lte":
			if c, ok := compareValues(value, operand); !ok || c > 0 {
				return false
			}
		case "$not":
			inner, ok := operatorDoc(operand)
			if !ok {
				return false
			}
			if evalOperators(value, exists, inner) {
				return false
			}
		case "$exists":
			want, _ := operand.(bool)
			if exists != want {
				return false
			}
		default:
			return false
		}
	}
	if hasRegex {
		if !regexMatch(value, pattern, options) {
			return false
		}
	}
	return true
}

func regexMatch(value any, pattern, options string) bool {
	if strings.Contains(options, "i") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}

	if list, ok := toSlice(value); ok {
		for _, elem := range list {
			if s, ok := elem.(string); ok && re.MatchString(s) {
				return true
			}
		}
		return false
	}
	s, ok := value.(string)
	return ok && re.MatchString(s)
}

// inSet implements $in: the field value equals any operand element, or when
// the field holds a list, any of its elements does.
func inSet(value any, operand any) bool {
	candidates, ok := toSlice(operand)
	if !ok {
		return false
	}
	for _, c := range candidates {
		if equalsOrContains(value, c) {
			return true
		}
	}
	return false
}

// equalsOrContains is list-aware equality: a list field matches when any
// element equals the operand.
func equalsOrContains(value any, operand any) bool {
	if list, ok := toSlice(value); ok {
		if other, ok := toSlice(operand); ok {
			return reflect.DeepEqual(list, other)
		}
		for _, elem := range list {
			if equalValues(elem, operand) {
				return true
			}
		}
		return false
	}
	return equalValues(value, operand)
}

func equalValues(a, b any) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	if at, aok := a.(time.Time); aok {
		bt, bok := b.(time.Time)
		return bok && at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

func compareValues(a, b any) (int, bool) {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if at, aok := a.(time.Time); aok {
		bt, bok := b.(time.Time)
		if !bok {
			return 0, false
		}
		return at.Compare(bt), true
	}
	if as, aok := a.(string); aok {
		bs, bok := b.(string)
		if !bok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
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

// toSlice reflects arbitrary slice types ([]string, []int, []any, ...) into
// []any. Strings are not treated as slices.
func toSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// subTrees normalizes a combinator payload into []query.M.
func subTrees(v any) []query.M {
	switch list := v.(type) {
	case []query.M:
		return list
	case []any:
		out := make([]query.M, 0, len(list))
		for _, item := range list {
			if m, ok := item.(query.M); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

// operatorDoc reports whether cond is an operator document (every key begins
// with '$') rather than a literal value.
func operatorDoc(cond any) (query.M, bool) {
	m, ok := cond.(query.M)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}
