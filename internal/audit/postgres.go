package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL audit store over an existing
// connection and ensures the schema exists.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return store, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL audit store from a
// connection string.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS assessments (
			id TEXT PRIMARY KEY,
			profile TEXT NOT NULL,
			classification TEXT NOT NULL,
			risk_level TEXT NOT NULL,
			recommendation TEXT NOT NULL,
			composite_score DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			result JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_assessments_profile ON assessments(profile);
		CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessments(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save stores an assessment record, updating any existing row with the same ID.
func (s *PostgresStore) Save(ctx context.Context, record *Record) error {
	now := time.Now()

	query := `
		INSERT INTO assessments (
			id, profile, classification, risk_level, recommendation,
			composite_score, confidence, result, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			profile = EXCLUDED.profile,
			classification = EXCLUDED.classification,
			risk_level = EXCLUDED.risk_level,
			recommendation = EXCLUDED.recommendation,
			composite_score = EXCLUDED.composite_score,
			confidence = EXCLUDED.confidence,
			result = EXCLUDED.result
		RETURNING created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		record.ID,
		record.Profile,
		record.Classification,
		record.RiskLevel,
		record.Recommendation,
		record.CompositeScore,
		record.Confidence,
		string(record.Result),
		now,
	).Scan(&record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

// Get retrieves a record by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, profile, classification, risk_level, recommendation,
			composite_score, confidence, result, created_at
		FROM assessments
		WHERE id = $1
		LIMIT 1
	`

	rec := &Record{}
	var result string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.Profile, &rec.Classification, &rec.RiskLevel,
		&rec.Recommendation, &rec.CompositeScore, &rec.Confidence,
		&result, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	rec.Result = json.RawMessage(result)
	return rec, nil
}

// List returns records, newest first, optionally filtered by profile.
func (s *PostgresStore) List(ctx context.Context, profile string, limit, offset int) ([]*Record, error) {
	query := `
		SELECT id, profile, classification, risk_level, recommendation,
			composite_score, confidence, result, created_at
		FROM assessments
	`
	args := []any{}
	if profile != "" {
		query += " WHERE profile = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3"
		args = append(args, profile, limit, offset)
	} else {
		query += " ORDER BY created_at DESC LIMIT $1 OFFSET $2"
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		var result string
		if err := rows.Scan(
			&rec.ID, &rec.Profile, &rec.Classification, &rec.RiskLevel,
			&rec.Recommendation, &rec.CompositeScore, &rec.Confidence,
			&result, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.Result = json.RawMessage(result)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the total number of stored records.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessments").Scan(&count)
	return count, err
}

// Delete removes a record by ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM assessments WHERE id = $1", id)
	return err
}

// ExportJSON writes all records to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
