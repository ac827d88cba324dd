package utils

import "time"

// EpochMillis converts a timestamp to milliseconds since the Unix epoch.
// Returns nil for a nil timestamp so it can be bound to a nullable column.
func EpochMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// TimeFromMillis reconstructs a timestamp from epoch milliseconds.
func TimeFromMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}

func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0)
	for _, v := range slice {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}
