package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docstore/internal/models"
)

// ErrTx marks failures to begin, commit or roll back a transaction.
var ErrTx = errors.New("transaction failed")

// Tx is a write scope over the files table. Every row staged through a Tx
// becomes visible together on Commit, or not at all.
//
// A Tx holds a pooled connection for its whole lifetime. Callers must not use
// the Store directly while a Tx is open on the same goroutine.
type Tx struct {
	tx  *sql.Tx
	now func() time.Time
}

// BeginTx opens a write scope.
func (s *Store) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w: %w", ErrTx, err)
	}
	return &Tx{tx: tx, now: s.now}, nil
}

// WithTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Commit makes all staged writes visible.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w: %w", ErrTx, err)
	}
	return nil
}

// Rollback discards all staged writes. Rolling back a finished Tx is a no-op.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w: %w", ErrTx, err)
	}
	return nil
}

// UpsertInline stores content in the row for path, inserting it if absent.
func (t *Tx) UpsertInline(ctx context.Context, path, mediaType string, content []byte) error {
	if content == nil {
		content = []byte{}
	}
	return t.upsert(ctx, path, mediaType, models.LocationInline, content)
}

// UpsertOffloaded records that the bytes for path live in object storage.
func (t *Tx) UpsertOffloaded(ctx context.Context, path, mediaType string) error {
	return t.upsert(ctx, path, mediaType, models.LocationOffloaded, nil)
}

func (t *Tx) upsert(ctx context.Context, path, mediaType string, location models.Location, content []byte) error {
	if path == "" {
		return fmt.Errorf("path is required")
	}
	if mediaType == "" {
		return fmt.Errorf("media type is required")
	}

	// Offloaded rows carry SQL NULL, never an empty blob.
	var payload any
	if location == models.LocationInline {
		payload = content
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO files (path, mime, date_updated, location, content)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mime = excluded.mime,
			date_updated = excluded.date_updated,
			location = excluded.location,
			content = excluded.content
	`, path, mediaType, dbFormatTime(t.now()), string(location), payload)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", path, err)
	}
	return nil
}

// SelectInline returns up to limit inline rows, oldest first.
func (t *Tx) SelectInline(ctx context.Context, limit int) ([]models.File, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}
	rows, err := t.tx.QueryContext(ctx, `SELECT `+fileColumns+` FROM files
		WHERE location = ?
		ORDER BY date_updated ASC, path ASC
		LIMIT ?`, string(models.LocationInline), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	return files, rows.Err()
}

// MarkOffloaded flips an inline row to offloaded and drops its inline bytes.
// The media type and timestamp are left untouched.
func (t *Tx) MarkOffloaded(ctx context.Context, path string) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE files SET location = ?, content = NULL WHERE path = ? AND location = ?`,
		string(models.LocationOffloaded), path, string(models.LocationInline))
	if err != nil {
		return fmt.Errorf("mark offloaded %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("mark offloaded %s: expected 1 inline row, updated %d", path, n)
	}
	return nil
}
