package sync

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/gridstats/nfldb/internal/store"
)

func equalFieldValues(a, b any) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	return reflect.DeepEqual(a, b)
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

func stringField(rec store.Record, name string) string {
	if s, ok := rec[name].(string); ok {
		return s
	}
	return ""
}

func intField(rec store.Record, name string) (int, bool) {
	switch n := rec[name].(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func boolField(rec store.Record, name string) bool {
	b, _ := rec[name].(bool)
	return b
}

// gsisNumber extracts the orderable numeric part of a game identifier.
// Identifiers that do not parse sort first.
func gsisNumber(rec store.Record) int64 {
	raw := strings.TrimSpace(stringField(rec, "gsis_id"))
	if raw == "" {
		if n, ok := intField(rec, "gsis_id"); ok {
			return int64(n)
		}
		return 0
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// profileKey normalizes a profile identifier for map keying across the
// int/float/string representations the feed and the store produce.
func profileKey(rec store.Record) (string, bool) {
	v, ok := rec["profile_id"]
	if !ok || v == nil {
		return "", false
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatInt(int64(f), 10), true
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s), true
	}
	return fmt.Sprintf("%v", v), true
}

func toStringSlice(v any) []string {
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out
	case []any:
		out := make([]string, 0, len(list))
		for _, elem := range list {
			if s, ok := elem.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// unionTeams merges team codes into a sorted, de-duplicated history.
func unionTeams(existing []string, extra ...string) []string {
	set := make(map[string]struct{}, len(existing)+len(extra))
	for _, t := range existing {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	for _, t := range extra {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
