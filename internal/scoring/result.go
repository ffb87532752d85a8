package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/clinical-scoring-server/internal/domain"
)

// defaultRegistry backs the package-level factories. Profiles are fixed
// clinical parameter tables, so a shared immutable registry is safe.
var defaultRegistry = NewRegistry()

// ConfidenceDefault is the sentinel confidence value that selects the
// profile's own constant. It is the only accepted value outside [0,1]; any
// other out-of-range confidence is rejected.
const ConfidenceDefault = -1.0

// ScoringResult is the immutable assessment aggregate. Every field is frozen
// at construction; derivations return new instances and no method mutates the
// receiver. A result is a pure value: it holds no back-references and
// participates in no shared mutable state.
type ScoringResult struct {
	profile           *Profile
	indicators        *domain.IndicatorSet
	composite         float64
	components        map[string]float64
	classification    domain.Classification
	riskLevel         domain.RiskLevel
	flags             []domain.RiskFlag
	contraindications []string
	recommendation    domain.Recommendation
	confidence        float64
	scoredAt          time.Time
}

// ResultDTO is the serialized shape of a ScoringResult. Timestamps are
// ISO-8601 (RFC 3339) strings; the composite is carried at full precision so
// reconstitution preserves equality.
type ResultDTO struct {
	Profile           string             `json:"profile"`
	AlgorithmVersion  string             `json:"algorithmVersion"`
	CompositeScore    float64            `json:"compositeScore"`
	ComponentScores   map[string]float64 `json:"componentScores"`
	Classification    string             `json:"classification"`
	RiskLevel         string             `json:"riskLevel"`
	Flags             []string           `json:"flags"`
	Contraindications []string           `json:"contraindications"`
	Recommendation    string             `json:"recommendation"`
	Indicators        map[string]float64 `json:"indicators"`
	Confidence        float64            `json:"confidence"`
	ScoredAt          string             `json:"scoredAt"`
}

// FromIndicators validates raw measurements against the named profile and
// runs the full pipeline. Pass ConfidenceDefault to use the profile's
// full-assessment constant; any other value outside [0,1] is rejected.
func FromIndicators(profileName string, raw map[string]float64, confidence float64) (*ScoringResult, error) {
	profile, err := defaultRegistry.Get(profileName)
	if err != nil {
		return nil, err
	}
	ind, err := profile.Validate(raw)
	if err != nil {
		return nil, err
	}
	if confidence == ConfidenceDefault {
		confidence = profile.DefaultConfidence
	}
	return assemble(profile, ind, confidence)
}

// FromPartialSignal expands a single headline value into a plausible full
// measurement set using the profile's fixed estimation rules and scores it.
// Pass ConfidenceDefault to use the profile's lower screening constant; any
// other value outside [0,1] is rejected.
func FromPartialSignal(profileName string, headline float64, confidence float64) (*ScoringResult, error) {
	profile, err := defaultRegistry.Get(profileName)
	if err != nil {
		return nil, err
	}
	ind, err := profile.Validate(profile.Estimate(headline))
	if err != nil {
		return nil, fmt.Errorf("headline estimation produced invalid indicators: %w", err)
	}
	if confidence == ConfidenceDefault {
		confidence = profile.ScreeningConfidence
	}
	return assemble(profile, ind, confidence)
}

// assemble runs score -> classify -> flags -> recommend over a validated set
// and freezes the aggregate.
func assemble(profile *Profile, ind *domain.IndicatorSet, confidence float64) (*ScoringResult, error) {
	if confidence < 0 || confidence > 1 {
		return nil, domain.ErrInvalidConfidence
	}

	composite, components := profile.Score(ind)
	classification := profile.Classify(composite, ind)
	flags, contraindications := profile.DetectFlags(ind)
	recommendation := profile.Resolve(classification, flags, ind)
	riskLevel := profile.riskLevel(classification, flags)

	return &ScoringResult{
		profile:           profile,
		indicators:        ind,
		composite:         composite,
		components:        components,
		classification:    classification,
		riskLevel:         riskLevel,
		flags:             flags,
		contraindications: contraindications,
		recommendation:    recommendation,
		confidence:        confidence,
		scoredAt:          time.Now().UTC(),
	}, nil
}

// Reconstitute rebuilds a result from a previously serialized record without
// recomputation. It fails with a ReconstitutionError when required fields are
// absent, the timestamp is not a valid RFC 3339 date string, or the
// confidence or composite score is out of range; it introduces no new
// clinical judgment.
func Reconstitute(dto *ResultDTO) (*ScoringResult, error) {
	if dto == nil {
		return nil, domain.NewReconstitutionError("record", "serialized record is required")
	}
	if dto.Profile == "" {
		return nil, domain.NewReconstitutionError("profile", "profile name is required")
	}
	profile, err := defaultRegistry.Get(dto.Profile)
	if err != nil {
		return nil, domain.NewReconstitutionError("profile", err.Error())
	}
	if dto.Classification == "" {
		return nil, domain.NewReconstitutionError("classification", "classification is required")
	}
	if profile.TierRank(domain.Classification(dto.Classification)) < 0 {
		return nil, domain.NewReconstitutionError("classification",
			fmt.Sprintf("%q is not a tier of profile %q", dto.Classification, dto.Profile))
	}
	if dto.RiskLevel == "" {
		return nil, domain.NewReconstitutionError("riskLevel", "risk level is required")
	}
	if !domain.RiskLevel(dto.RiskLevel).IsValid() {
		return nil, domain.NewReconstitutionError("riskLevel",
			fmt.Sprintf("%q is not a valid risk level", dto.RiskLevel))
	}
	if dto.Recommendation == "" {
		return nil, domain.NewReconstitutionError("recommendation", "recommendation is required")
	}
	if dto.Indicators == nil {
		return nil, domain.NewReconstitutionError("indicators", "indicators are required")
	}
	if dto.ScoredAt == "" {
		return nil, domain.NewReconstitutionError("scoredAt", "timestamp is required")
	}
	scoredAt, err := time.Parse(time.RFC3339, dto.ScoredAt)
	if err != nil {
		return nil, domain.NewReconstitutionError("scoredAt",
			fmt.Sprintf("%q is not a valid RFC 3339 timestamp", dto.ScoredAt))
	}
	ind, err := profile.Validate(dto.Indicators)
	if err != nil {
		return nil, domain.NewReconstitutionError("indicators", err.Error())
	}
	if dto.Confidence < 0 || dto.Confidence > 1 {
		return nil, domain.NewReconstitutionError("confidence", "confidence must be within [0,1]")
	}
	if dto.CompositeScore < 0 || dto.CompositeScore > 100 {
		return nil, domain.NewReconstitutionError("compositeScore", "composite score must be within [0,100]")
	}

	flags := make([]domain.RiskFlag, 0, len(dto.Flags))
	for _, f := range dto.Flags {
		flags = append(flags, domain.RiskFlag(f))
	}
	components := make(map[string]float64, len(dto.ComponentScores))
	for k, v := range dto.ComponentScores {
		components[k] = v
	}
	contraindications := append([]string(nil), dto.Contraindications...)

	return &ScoringResult{
		profile:           profile,
		indicators:        ind,
		composite:         dto.CompositeScore,
		components:        components,
		classification:    domain.Classification(dto.Classification),
		riskLevel:         domain.RiskLevel(dto.RiskLevel),
		flags:             flags,
		contraindications: contraindications,
		recommendation:    domain.Recommendation(dto.Recommendation),
		confidence:        dto.Confidence,
		scoredAt:          scoredAt.UTC(),
	}, nil
}

// Accessors. Slices and maps are copied on the way out so callers cannot
// reach the frozen state.

func (r *ScoringResult) Profile() string                       { return r.profile.Name }
func (r *ScoringResult) AlgorithmVersion() string              { return r.profile.AlgorithmVersion }
func (r *ScoringResult) Indicators() *domain.IndicatorSet      { return r.indicators }
func (r *ScoringResult) CompositeScore() float64               { return r.composite }
func (r *ScoringResult) Classification() domain.Classification { return r.classification }
func (r *ScoringResult) RiskLevel() domain.RiskLevel           { return r.riskLevel }
func (r *ScoringResult) Recommendation() domain.Recommendation { return r.recommendation }
func (r *ScoringResult) Confidence() float64                   { return r.confidence }
func (r *ScoringResult) ScoredAt() time.Time                   { return r.scoredAt }

// ComponentScores returns a copy of the named sub-scores.
func (r *ScoringResult) ComponentScores() map[string]float64 {
	out := make(map[string]float64, len(r.components))
	for k, v := range r.components {
		out[k] = v
	}
	return out
}

// Flags returns a copy of the risk flags in detection order.
func (r *ScoringResult) Flags() []domain.RiskFlag {
	return append([]domain.RiskFlag(nil), r.flags...)
}

// Contraindications returns a copy of the contraindication reasons.
func (r *ScoringResult) Contraindications() []string {
	return append([]string(nil), r.contraindications...)
}

// HasFlag reports whether the result carries the named risk flag.
func (r *ScoringResult) HasFlag(flag domain.RiskFlag) bool {
	return hasFlag(r.flags, flag)
}

// WithConfidence returns a new frozen result identical to the receiver except
// for the confidence value.
func (r *ScoringResult) WithConfidence(confidence float64) (*ScoringResult, error) {
	if confidence < 0 || confidence > 1 {
		return nil, domain.ErrInvalidConfidence
	}
	derived := *r
	derived.confidence = confidence
	return &derived, nil
}

// WithUpdatedIndicators merges the partial measurement map over the
// receiver's indicators and re-runs the full pipeline, returning a new frozen
// result with a fresh timestamp. The receiver is never altered.
func (r *ScoringResult) WithUpdatedIndicators(partial map[string]float64) (*ScoringResult, error) {
	merged := r.indicators.Map()
	for k, v := range partial {
		merged[k] = v
	}
	ind, err := r.profile.Validate(merged)
	if err != nil {
		return nil, err
	}
	return assemble(r.profile, ind, r.confidence)
}

// Equals compares the full indicator and classification state of two results.
// Confidence and the scoring timestamp are excluded: two assessments of the
// same measurements are the same assessment.
func (r *ScoringResult) Equals(other *ScoringResult) bool {
	if other == nil {
		return false
	}
	return r.canonicalState() == other.canonicalState()
}

// Hash returns a hex sha256 digest of the canonical indicator and
// classification state, suitable as a memoization or cache key.
func (r *ScoringResult) Hash() string {
	sum := sha256.Sum256([]byte(r.canonicalState()))
	return hex.EncodeToString(sum[:])
}

// canonicalState serializes the equality-relevant state deterministically
// (encoding/json orders map keys).
func (r *ScoringResult) canonicalState() string {
	state := struct {
		Profile           string             `json:"profile"`
		Version           string             `json:"version"`
		Indicators        map[string]float64 `json:"indicators"`
		Composite         float64            `json:"composite"`
		Components        map[string]float64 `json:"components"`
		Classification    string             `json:"classification"`
		RiskLevel         string             `json:"riskLevel"`
		Flags             []string           `json:"flags"`
		Contraindications []string           `json:"contraindications"`
		Recommendation    string             `json:"recommendation"`
	}{
		Profile:           r.profile.Name,
		Version:           r.profile.AlgorithmVersion,
		Indicators:        r.indicators.Map(),
		Composite:         r.composite,
		Components:        r.components,
		Classification:    r.classification.String(),
		RiskLevel:         r.riskLevel.String(),
		Flags:             flagStrings(r.flags),
		Contraindications: r.contraindications,
		Recommendation:    r.recommendation.String(),
	}
	raw, _ := json.Marshal(state)
	return string(raw)
}

// Compare orders results by classification severity, most severe first; ties
// are broken by composite score (lower score sorts first). Returns -1, 0 or 1.
func (r *ScoringResult) Compare(other *ScoringResult) int {
	rRank := r.profile.TierRank(r.classification)
	oRank := other.profile.TierRank(other.classification)
	switch {
	case rRank < oRank:
		return -1
	case rRank > oRank:
		return 1
	case r.composite < other.composite:
		return -1
	case r.composite > other.composite:
		return 1
	default:
		return 0
	}
}

// DTO returns the serializable shape of the result.
func (r *ScoringResult) DTO() *ResultDTO {
	return &ResultDTO{
		Profile:           r.profile.Name,
		AlgorithmVersion:  r.profile.AlgorithmVersion,
		CompositeScore:    r.composite,
		ComponentScores:   r.ComponentScores(),
		Classification:    r.classification.String(),
		RiskLevel:         r.riskLevel.String(),
		Flags:             flagStrings(r.flags),
		Contraindications: r.Contraindications(),
		Recommendation:    r.recommendation.String(),
		Indicators:        r.indicators.Map(),
		Confidence:        r.confidence,
		ScoredAt:          r.scoredAt.Format(time.RFC3339),
	}
}

// MarshalJSON serializes the result through its DTO.
func (r *ScoringResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.DTO())
}

// String returns a human-readable multi-field description with the composite
// rounded for display.
func (r *ScoringResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s assessment: score %.1f, classification %s, risk %s, recommendation %s, confidence %.2f",
		r.profile.Name, r.composite, r.classification, r.riskLevel, r.recommendation, r.confidence)
	if len(r.flags) > 0 {
		fmt.Fprintf(&b, ", flags %s", strings.Join(flagStrings(r.flags), "|"))
	}
	if len(r.contraindications) > 0 {
		fmt.Fprintf(&b, ", contraindicated: %s", strings.Join(r.contraindications, "; "))
	}
	return b.String()
}

// CompactString returns a terse tag-like summary, e.g.
// "respiratory/SEVERE/29.9/CPAP_THERAPY".
func (r *ScoringResult) CompactString() string {
	return fmt.Sprintf("%s/%s/%.1f/%s", r.profile.Name, r.classification, r.composite, r.recommendation)
}

func flagStrings(flags []domain.RiskFlag) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		out = append(out, f.String())
	}
	return out
}
