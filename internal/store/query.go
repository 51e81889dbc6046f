package store

import "time"

// ListOptions filters and paginates ListRuns.
type ListOptions struct {
	Project string
	Status  Status
	Since   *time.Time
	Limit   int    // default 20, max 200
	Cursor  string // StartedAt of the last run of the previous page
}

const (
	defaultLimit = 20
	maxLimit     = 200
)

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return defaultLimit
	}
	if o.Limit > maxLimit {
		return maxLimit
	}
	return o.Limit
}

func (o ListOptions) cursor() (time.Time, bool) {
	if o.Cursor == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, o.Cursor)
	return t, err == nil
}

func encodeCursor(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }
