package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docstore/internal/models"
)

const fileColumns = "path, mime, date_updated, location, content"

const dbTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when no row exists for a path.
var ErrNotFound = errors.New("file not found")

// LocationStats aggregates rows stored in one tier.
type LocationStats struct {
	Files       int64 `json:"files" yaml:"files"`
	InlineBytes int64 `json:"inline_bytes" yaml:"inline_bytes"`
}

// Stats summarizes the files table by location.
type Stats struct {
	Inline    LocationStats `json:"inline" yaml:"inline"`
	Offloaded LocationStats `json:"offloaded" yaml:"offloaded"`
}

// GetFile reads the row for path. The content of offloaded rows is empty.
func (s *Store) GetFile(ctx context.Context, path string) (*models.File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE path = ?`, path)
	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

// Stats counts rows and inline bytes per location.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	rows, err := s.db.QueryContext(ctx, `SELECT location, COUNT(*), COALESCE(SUM(LENGTH(content)), 0) FROM files GROUP BY location`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		var agg LocationStats
		if err := rows.Scan(&raw, &agg.Files, &agg.InlineBytes); err != nil {
			return stats, err
		}
		location, err := models.ParseLocation(raw)
		if err != nil {
			return stats, err
		}
		switch location {
		case models.LocationInline:
			stats.Inline = agg
		case models.LocationOffloaded:
			stats.Offloaded = agg
		}
	}
	return stats, rows.Err()
}

func scanFile(scanner interface {
	Scan(dest ...any) error
}) (*models.File, error) {
	file := models.File{}
	var updatedAt, location string
	var content []byte

	if err := scanner.Scan(&file.Path, &file.MediaType, &updatedAt, &location, &content); err != nil {
		return nil, err
	}

	parsedUpdated, err := dbParseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	file.UpdatedAt = parsedUpdated

	file.Location, err = models.ParseLocation(location)
	if err != nil {
		return nil, err
	}
	if file.Location == models.LocationInline && content == nil {
		content = []byte{}
	}
	file.Content = content

	return &file, nil
}

func dbFormatTime(t time.Time) string {
	return t.UTC().Format(dbTimeLayout)
}

// dbParseTime accepts the canonical layout plus the forms SQLite's own date
// functions produce, which appear in converted legacy rows.
func dbParseTime(raw string) (time.Time, error) {
	for _, layout := range []string{dbTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}
