// Package audit provides persistent storage for completed clinical
// assessments. Every scored result can be recorded with its full serialized
// state so past decisions remain reviewable and reconstitutable.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/clinical-scoring-server/internal/scoring"
)

// Record is a stored assessment. The serialized result carries the complete
// state needed to reconstitute the original ScoringResult; the remaining
// columns are denormalized for querying.
type Record struct {
	ID             string          `json:"id"`
	Profile        string          `json:"profile"`
	Classification string          `json:"classification"`
	RiskLevel      string          `json:"risk_level"`
	Recommendation string          `json:"recommendation"`
	CompositeScore float64         `json:"composite_score"`
	Confidence     float64         `json:"confidence"`
	Result         json.RawMessage `json:"result"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewRecord builds an audit record from a scored result.
func NewRecord(result *scoring.ScoringResult) (*Record, error) {
	serialized, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:             uuid.NewString(),
		Profile:        result.Profile(),
		Classification: result.Classification().String(),
		RiskLevel:      result.RiskLevel().String(),
		Recommendation: result.Recommendation().String(),
		CompositeScore: result.CompositeScore(),
		Confidence:     result.Confidence(),
		Result:         serialized,
	}, nil
}

// Reconstitute rebuilds the stored scoring result from the serialized state.
func (r *Record) Reconstitute() (*scoring.ScoringResult, error) {
	var dto scoring.ResultDTO
	if err := json.Unmarshal(r.Result, &dto); err != nil {
		return nil, err
	}
	return scoring.Reconstitute(&dto)
}

// Store defines the interface for assessment audit storage.
type Store interface {
	// Save stores an assessment record. Saving an existing ID updates it.
	Save(ctx context.Context, record *Record) error

	// Get retrieves a record by ID. Returns nil when no record exists.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns records, newest first, optionally filtered by profile.
	// An empty profile matches all records.
	List(ctx context.Context, profile string, limit, offset int) ([]*Record, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)

	// Delete removes a record by ID.
	Delete(ctx context.Context, id string) error

	// ExportJSON writes all records to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// Close closes the store and releases resources.
	Close() error
}

// Export is the JSON export envelope.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Records    []*Record `json:"records"`
}
