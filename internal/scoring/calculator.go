package scoring

import "github.com/clinical-scoring-server/internal/domain"

// Score computes the weighted composite score and the named component
// sub-scores for a validated indicator set. Every sub-score and the composite
// are clamped to [0,100]; the function is pure and total over any set the
// profile's validator accepted.
func (p *Profile) Score(ind *domain.IndicatorSet) (float64, map[string]float64) {
	components := make(map[string]float64, len(p.Components))

	var composite float64
	for _, c := range p.Components {
		sub := clampScore(c.Score(ind))
		components[c.Name] = sub
		composite += c.Weight * sub
	}

	return clampScore(composite), components
}
