package journal

import "context"

// Repository persists journal entries. Each call appends a row.
type Repository interface {
	Save(ctx context.Context, entry *Entry) error
}
