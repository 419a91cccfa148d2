package sqlite

import (
	"fmt"
	"time"
)

// parseRFC3339 parses recorded_at. SQLite has no datetime type; rows hold
// timeLayout TEXT, which is valid RFC 3339.
func parseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
