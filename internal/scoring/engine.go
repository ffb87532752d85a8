package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
)

// DefaultMemoizationSize is the default LRU capacity for scored results.
const DefaultMemoizationSize = 1024

// Engine is the scoring service façade. It wraps the pure pipeline with
// structured logging and an LRU memoization cache keyed by profile and
// indicator hash; memoization is safe because identical indicators always
// produce an identical assessment.
type Engine struct {
	logger   *logrus.Logger
	registry *Registry
	memo     *lru.Cache
}

// NewEngine creates a scoring engine. cacheSize <= 0 selects the default
// memoization capacity.
func NewEngine(logger *logrus.Logger, cacheSize int) (*Engine, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultMemoizationSize
	}
	memo, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create memoization cache: %w", err)
	}
	return &Engine{
		logger:   logger,
		registry: defaultRegistry,
		memo:     memo,
	}, nil
}

// Profiles returns the names of the available scoring profiles.
func (e *Engine) Profiles() []string {
	return e.registry.Names()
}

// Assess validates raw measurements against the named profile and runs the
// full pipeline. Pass ConfidenceDefault to use the profile default.
func (e *Engine) Assess(profileName string, raw map[string]float64, confidence float64) (*ScoringResult, error) {
	start := time.Now()

	if key, ok := memoKey(profileName, raw, confidence); ok {
		if cached, hit := e.memo.Get(key); hit {
			e.logger.WithFields(logrus.Fields{
				"profile": profileName,
				"source":  "memoized",
			}).Debug("Assessment served from memoization cache")
			return cached.(*ScoringResult), nil
		}
	}

	result, err := FromIndicators(profileName, raw, confidence)
	if err != nil {
		e.logger.WithError(err).WithField("profile", profileName).Warn("Assessment rejected")
		return nil, err
	}

	if key, ok := memoKey(profileName, raw, confidence); ok {
		e.memo.Add(key, result)
	}

	e.logger.WithFields(logrus.Fields{
		"profile":         result.Profile(),
		"composite_score": result.CompositeScore(),
		"classification":  result.Classification().String(),
		"risk_level":      result.RiskLevel().String(),
		"recommendation":  result.Recommendation().String(),
		"flag_count":      len(result.Flags()),
		"processing_time": time.Since(start),
	}).Info("Assessment completed")

	return result, nil
}

// Screen derives a screening assessment from a single headline value using
// the profile's estimation rules. Pass ConfidenceDefault to use the profile's
// screening default.
func (e *Engine) Screen(profileName string, headline float64, confidence float64) (*ScoringResult, error) {
	result, err := FromPartialSignal(profileName, headline, confidence)
	if err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"profile":  profileName,
			"headline": headline,
		}).Warn("Screening assessment rejected")
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"profile":        result.Profile(),
		"headline":       headline,
		"classification": result.Classification().String(),
		"confidence":     result.Confidence(),
	}).Info("Screening assessment completed")

	return result, nil
}

// Parse exposes the permissive multi-shape façade with engine logging.
func (e *Engine) Parse(profileName string, input any) ParseOutcome {
	outcome := Parse(profileName, input)
	if !outcome.OK {
		e.logger.WithError(outcome.Err).WithField("profile", profileName).Debug("Parse façade rejected input")
	}
	return outcome
}

// Reconstitute rebuilds a stored result without recomputation.
func (e *Engine) Reconstitute(dto *ResultDTO) (*ScoringResult, error) {
	result, err := Reconstitute(dto)
	if err != nil {
		e.logger.WithError(err).Warn("Failed to reconstitute stored assessment")
		return nil, err
	}
	return result, nil
}

// memoKey builds a deterministic cache key from the profile name, the raw
// measurements and the requested confidence. encoding/json orders map keys,
// so equal maps always produce equal keys.
func memoKey(profileName string, raw map[string]float64, confidence float64) (string, bool) {
	if raw == nil {
		return "", false
	}
	payload, err := json.Marshal(struct {
		Profile    string             `json:"profile"`
		Raw        map[string]float64 `json:"raw"`
		Confidence float64            `json:"confidence"`
	}{profileName, raw, confidence})
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), true
}
