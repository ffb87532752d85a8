package scoring

import "github.com/clinical-scoring-server/internal/domain"

// Resolve runs the profile's recommendation decision tree. The tree is
// ordered and total: the first matching rule wins and every input resolves to
// exactly one recommendation.
func (p *Profile) Resolve(class domain.Classification, flags []domain.RiskFlag, ind *domain.IndicatorSet) domain.Recommendation {
	return p.Recommend(class, flags, ind)
}
