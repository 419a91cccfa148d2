// Package sqlite provides a SQLite-backed journal.Repository.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/subfusion/checkout/internal/checkout/journal"

	// Pure-Go driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("sqlite: journal entry not found")

const schema = `
CREATE TABLE IF NOT EXISTS checkout_journal (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    txn_id      TEXT    NOT NULL,
    event       TEXT    NOT NULL,
    path        TEXT    NOT NULL DEFAULT '',
    reason      TEXT    NOT NULL DEFAULT '',
    payload     TEXT,
    trace_id    TEXT    NOT NULL DEFAULT '',
    span_id     TEXT    NOT NULL DEFAULT '',
    recorded_at TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_checkout_journal_txn ON checkout_journal(txn_id, recorded_at);
CREATE INDEX IF NOT EXISTS idx_checkout_journal_trace ON checkout_journal(trace_id);
`

// Fixed-width so that TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Save appends entry. Safe for concurrent use.
func (r *Repository) Save(ctx context.Context, entry *journal.Entry) error {
	const q = `
		INSERT INTO checkout_journal
			(txn_id, event, path, reason, payload, trace_id, span_id, recorded_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.TxnID,
		string(entry.Event),
		entry.Path,
		entry.Reason,
		nullableString(entry.Payload),
		entry.TraceID,
		entry.SpanID,
		entry.At.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save journal entry for %q: %w", entry.TxnID, err)
	}
	return nil
}

// Latest returns the most recent entry for txnID.
func (r *Repository) Latest(ctx context.Context, txnID string) (*journal.Entry, error) {
	const q = `
		SELECT txn_id, event, path, reason, COALESCE(payload,''), trace_id, span_id, recorded_at
		FROM   checkout_journal
		WHERE  txn_id = ?
		ORDER  BY recorded_at DESC, id DESC
		LIMIT  1`

	entry, err := scanEntry(r.db.QueryRowContext(ctx, q, txnID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, txnID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: latest for %q: %w", txnID, err)
	}
	return entry, nil
}

// History returns every entry for txnID, oldest first.
func (r *Repository) History(ctx context.Context, txnID string) ([]*journal.Entry, error) {
	const q = `
		SELECT txn_id, event, path, reason, COALESCE(payload,''), trace_id, span_id, recorded_at
		FROM   checkout_journal
		WHERE  txn_id = ?
		ORDER  BY recorded_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, q, txnID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: history for %q: %w", txnID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*journal.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: history for %q: %w", txnID, err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: history for %q: %w", txnID, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*journal.Entry, error) {
	var entry journal.Entry
	var event, recordedAt string
	if err := s.Scan(
		&entry.TxnID,
		&event,
		&entry.Path,
		&entry.Reason,
		&entry.Payload,
		&entry.TraceID,
		&entry.SpanID,
		&recordedAt,
	); err != nil {
		return nil, err
	}
	entry.Event = journal.Event(event)

	at, err := parseRFC3339(recordedAt)
	if err != nil {
		return nil, err
	}
	entry.At = at
	return &entry, nil
}

// nullableString stores NULL instead of an empty payload.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
