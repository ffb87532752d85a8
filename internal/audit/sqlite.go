package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite audit store. It creates the database
// file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a row into a Record struct.
func scanRecord(s scanner) (*Record, error) {
	rec := &Record{}
	var result string

	err := s.Scan(
		&rec.ID, &rec.Profile, &rec.Classification, &rec.RiskLevel,
		&rec.Recommendation, &rec.CompositeScore, &rec.Confidence,
		&result, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Result = json.RawMessage(result)
	return rec, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		classification TEXT NOT NULL,
		risk_level TEXT NOT NULL,
		recommendation TEXT NOT NULL,
		composite_score REAL NOT NULL,
		confidence REAL NOT NULL,
		result TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_assessments_profile ON assessments(profile);
	CREATE INDEX IF NOT EXISTS idx_assessments_classification ON assessments(classification);
	CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessments(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores an assessment record, updating any existing row with the same ID.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	now := time.Now()

	var existingID string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM assessments WHERE id = ?", record.ID,
	).Scan(&existingID)

	if err == nil {
		_, err = s.db.ExecContext(ctx, `
			UPDATE assessments SET
				profile = ?,
				classification = ?,
				risk_level = ?,
				recommendation = ?,
				composite_score = ?,
				confidence = ?,
				result = ?
			WHERE id = ?
		`,
			record.Profile,
			record.Classification,
			record.RiskLevel,
			record.Recommendation,
			record.CompositeScore,
			record.Confidence,
			string(record.Result),
			record.ID,
		)
		return err
	}

	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	record.CreatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (
			id, profile, classification, risk_level, recommendation,
			composite_score, confidence, result, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.Profile,
		record.Classification,
		record.RiskLevel,
		record.Recommendation,
		record.CompositeScore,
		record.Confidence,
		string(record.Result),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	return nil
}

// Get retrieves a record by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, profile, classification, risk_level, recommendation,
			composite_score, confidence, result, created_at
		FROM assessments
		WHERE id = ?
		LIMIT 1
	`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

// List returns records, newest first, optionally filtered by profile.
func (s *SQLiteStore) List(ctx context.Context, profile string, limit, offset int) ([]*Record, error) {
	query := `
		SELECT id, profile, classification, risk_level, recommendation,
			composite_score, confidence, result, created_at
		FROM assessments
	`
	args := []any{}
	if profile != "" {
		query += " WHERE profile = ?"
		args = append(args, profile)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Count returns the total number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessments").Scan(&count)
	return count, err
}

// Delete removes a record by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM assessments WHERE id = ?", id)
	return err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON writes all records to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, "", maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Records:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
