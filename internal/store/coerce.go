package store

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/gridstats/nfldb/internal/entity"
)

// Offsets in seconds for the timezone abbreviations the upstream feed emits.
var tzOffsets = map[string]int{
	"EST": -18000,
	"CST": -21600,
	"WST": -25200,
	"PST": -28800,
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006",
}

// applyColumnTypes coerces a record's values to their declared column types.
// Entities without a descriptor pass through untouched. A value that fails
// to parse aborts with ErrCoerce; a nil or empty-string datetime is removed
// rather than treated as an error.
func applyColumnTypes(rec Record, desc *entity.Descriptor) error {
	if desc == nil {
		return nil
	}
	for name, value := range rec {
		ctype, ok := desc.ColumnType(name)
		if !ok {
			continue
		}
		switch ctype {
		case entity.Int:
			n, err := coerceInt(value)
			if err != nil {
				return errors.Wrapf(ErrCoerce, "%s.%s=%v to int", desc.Name, name, value)
			}
			rec[name] = n
		case entity.Float:
			f, err := coerceFloat(value)
			if err != nil {
				return errors.Wrapf(ErrCoerce, "%s.%s=%v to float", desc.Name, name, value)
			}
			rec[name] = f
		case entity.DateTime:
			t, ok, err := coerceDateTime(value)
			if err != nil {
				return errors.Wrapf(ErrCoerce, "%s.%s=%v to datetime", desc.Name, name, value)
			}
			if !ok {
				delete(rec, name)
				continue
			}
			rec[name] = t
		}
	}
	return nil
}

func coerceInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, errors.Newf("unsupported int source %T", v)
	}
}

func coerceFloat(v any) (float64, error) {
	switch f := v.(type) {
	case float64:
		return f, nil
	case float32:
		return float64(f), nil
	case int:
		return float64(f), nil
	case int64:
		return float64(f), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(f), 64)
	default:
		return 0, errors.Newf("unsupported float source %T", v)
	}
}

// coerceDateTime returns (zero, false, nil) for absent input so callers can
// drop the field instead of storing a zero time.
func coerceDateTime(v any) (time.Time, bool, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return t, true, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false, nil
		}
		parsed, err := parseTimestamp(s)
		if err != nil {
			return time.Time{}, false, err
		}
		return parsed, true, nil
	default:
		return time.Time{}, false, errors.Newf("unsupported datetime source %T", v)
	}
}

func parseTimestamp(s string) (time.Time, error) {
	loc := time.UTC
	if i := strings.LastIndexByte(s, ' '); i > 0 {
		if offset, ok := tzOffsets[s[i+1:]]; ok {
			loc = time.FixedZone(s[i+1:], offset)
			s = s[:i]
		}
	}

	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
