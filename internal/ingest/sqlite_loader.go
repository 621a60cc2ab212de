package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/agentic-research/fmsx/api"
)

// ErrFileNotFound is returned by LoadFile for unknown ids.
var ErrFileNotFound = errors.New("file not found")

// Open opens a local query database read-only.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	return db, nil
}

// StreamAnnotations calls fn for each annotation in insertion order.
func StreamAnnotations(ctx context.Context, db *sql.DB, fn func(api.AnnotationResponse) error) error {
	rows, err := db.QueryContext(ctx, "SELECT record FROM annotations ORDER BY position")
	if err != nil {
		return fmt.Errorf("query annotations: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		var a api.AnnotationResponse
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return fmt.Errorf("parse annotation json: %w", err)
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	return rows.Err()
}

// StreamFiles iterates over all file records in insertion order, calling fn
// for each one. Only one parsed record is alive at a time.
func StreamFiles(ctx context.Context, db *sql.DB, fn func(id string, rec api.FileRecord) error) error {
	rows, err := db.QueryContext(ctx, "SELECT id, record FROM files ORDER BY position")
	if err != nil {
		return fmt.Errorf("query files: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		var rec api.FileRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return fmt.Errorf("parse record json: %w", err)
		}
		if err := fn(id, rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// LoadFile returns the raw JSON record for one file id.
func LoadFile(ctx context.Context, db *sql.DB, id string) ([]byte, error) {
	var raw string
	err := db.QueryRowContext(ctx, "SELECT record FROM files WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return []byte(raw), nil
}
