// Package scoring implements the clinical decision-support core: a single
// descriptor-driven pipeline (validate, score, classify, detect flags,
// recommend) parameterized per profile, plus the immutable ScoringResult
// value object and its parsing/serialization contract.
package scoring

import (
	"fmt"
	"math"

	"github.com/clinical-scoring-server/internal/domain"
)

// FieldSpec declares one named measurement: its closed range, unit,
// optionality and whether only integer values are accepted.
type FieldSpec struct {
	Name     string
	Min      float64
	Max      float64
	Unit     string
	Required bool
	Integer  bool
}

// CrossFieldRule declares that a floor measurement must not exceed the
// average measurement of the same quantity.
type CrossFieldRule struct {
	Floor   string
	Average string
}

// Component is one weighted sub-score of the composite. Score must be a
// monotone, total function returning a value the calculator clamps to [0,100].
type Component struct {
	Name   string
	Weight float64
	Score  func(ind *domain.IndicatorSet) float64
}

// Threshold maps a composite-score floor (inclusive) to a tier. Profiles list
// thresholds from best tier down; classification picks the first floor the
// score reaches.
type Threshold struct {
	Floor float64
	Tier  domain.Classification
}

// OverrideRule is an absolute override predicate: when Applies is true the
// classification is forced to the worst tier regardless of score, the flag is
// raised and Reason is recorded as a contraindication.
type OverrideRule struct {
	Flag    domain.RiskFlag
	Reason  string
	Applies func(ind *domain.IndicatorSet) bool
}

// FlagRule is an informational risk-flag predicate. Rules are independent of
// one another; evaluation order only fixes the deterministic output order.
type FlagRule struct {
	Flag    domain.RiskFlag
	Applies func(ind *domain.IndicatorSet) bool
}

// Profile is the full descriptor for one scoring profile. Both shipped
// profiles (respiratory, implant) run through the same pipeline; the
// descriptor carries everything that differs between them.
type Profile struct {
	Name             string
	AlgorithmVersion string

	Fields     []FieldSpec
	CrossRules []CrossFieldRule

	Components []Component

	// Tiers holds the ordered classification enumeration, worst first.
	Tiers      []domain.Classification
	Thresholds []Threshold

	Overrides []OverrideRule
	FlagRules []FlagRule

	// RiskLevels maps each tier to its base risk level; the pipeline
	// escalates one step when three or more flags accumulate.
	RiskLevels map[domain.Classification]domain.RiskLevel

	// Recommend resolves the treatment recommendation. It is an ordered
	// decision tree: the first matching rule wins.
	Recommend func(class domain.Classification, flags []domain.RiskFlag, ind *domain.IndicatorSet) domain.Recommendation

	// Estimate expands a single headline value into a plausible full
	// measurement map for screening use.
	Estimate func(headline float64) map[string]float64

	// HeadlineField names the measurement Estimate treats as the headline.
	HeadlineField string

	DefaultConfidence   float64
	ScreeningConfidence float64
}

// WorstTier returns the tier absolute overrides force.
func (p *Profile) WorstTier() domain.Classification {
	return p.Tiers[0]
}

// TierRank returns the severity rank of a tier: 0 for the worst tier,
// increasing toward the best. Unknown tiers return -1.
func (p *Profile) TierRank(c domain.Classification) int {
	for i, tier := range p.Tiers {
		if tier == c {
			return i
		}
	}
	return -1
}

// Field returns the declared spec for a measurement name.
func (p *Profile) Field(name string) (FieldSpec, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// clamp bounds v to [lo,hi] and maps non-finite input to lo, so component
// formulas stay total over any validated indicator set.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampScore bounds a sub-score or composite to [0,100].
func clampScore(v float64) float64 { return clamp(v, 0, 100) }

// linearScore maps v linearly onto [0,100] between worst and best anchor
// values, clamped at both ends. worst may be above or below best, so both
// increasing and decreasing indicators reduce to one helper.
func linearScore(v, worst, best float64) float64 {
	if worst == best {
		return 100
	}
	return clampScore((v - worst) / (best - worst) * 100)
}

// Registry holds the shipped profiles keyed by name.
type Registry struct {
	profiles map[string]*Profile
	names    []string
}

// NewRegistry builds a registry containing the respiratory and implant
// profiles.
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]*Profile)}
	for _, p := range []*Profile{RespiratoryProfile(), ImplantProfile()} {
		r.profiles[p.Name] = p
		r.names = append(r.names, p.Name)
	}
	return r
}

// Get returns the named profile.
func (r *Registry) Get(name string) (*Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProfile, name)
	}
	return p, nil
}

// Names returns the registered profile names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
