package scoring

import "github.com/clinical-scoring-server/internal/domain"

// Classify maps a composite score to a tier and applies the profile's
// absolute override predicates. Threshold intervals are half-open with an
// inclusive lower bound (a score equal to a tier floor belongs to that tier).
// Overrides take precedence unconditionally: a true override predicate forces
// the worst tier no matter how favorable the score is.
func (p *Profile) Classify(composite float64, ind *domain.IndicatorSet) domain.Classification {
	for _, rule := range p.Overrides {
		if rule.Applies(ind) {
			return p.WorstTier()
		}
	}
	return p.classifyByScore(composite)
}

// classifyByScore resolves the score-derived tier without overrides.
func (p *Profile) classifyByScore(composite float64) domain.Classification {
	for _, t := range p.Thresholds {
		if composite >= t.Floor {
			return t.Tier
		}
	}
	return p.WorstTier()
}

// riskLevel derives the risk level from the tier, escalated one step toward
// CRITICAL when three or more risk flags accumulate.
func (p *Profile) riskLevel(class domain.Classification, flags []domain.RiskFlag) domain.RiskLevel {
	level, ok := p.RiskLevels[class]
	if !ok {
		return domain.RiskCritical
	}
	if len(flags) >= 3 {
		level = level.Escalate()
	}
	return level
}
