package rowstore

import "time"

// Backends decode rows from JSON or BSON, so numeric fields arrive as any of
// the machine number types and timestamps either typed or as RFC 3339 strings.
// These helpers coerce row values into what the domain models expect.

// String returns the field as a string, or "" when absent or not a string.
func String(row Row, field string) string {
	s, _ := row[field].(string)
	return s
}

// Int returns the field as an int, coercing the numeric types the backends
// produce. Absent or non-numeric fields yield 0.
func Int(row Row, field string) int {
	switch v := row[field].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	}
	return 0
}

// Time returns the field as a time.Time, accepting typed timestamps as well as
// RFC 3339 strings. Absent or unparsable fields yield the zero time.
func Time(row Row, field string) time.Time {
	switch v := row[field].(type) {
	case time.Time:
		return v
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return ts
		}
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts
		}
	}
	return time.Time{}
}
