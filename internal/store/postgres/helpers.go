package postgres

import "time"

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func intPtr(v *int32) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

// limitOrAll maps a non-positive limit to LIMIT NULL, which returns every row.
func limitOrAll(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
