package scoring

import "github.com/clinical-scoring-server/internal/domain"

// DetectFlags evaluates every risk-flag rule and override predicate against
// the indicator set. Flags accumulate into a duplicate-free, deterministically
// ordered slice; contraindication reasons are exactly the override predicates
// that fired, keeping the detector and the classification engine in lock-step.
func (p *Profile) DetectFlags(ind *domain.IndicatorSet) ([]domain.RiskFlag, []string) {
	var (
		flags   []domain.RiskFlag
		reasons []string
		seen    = make(map[domain.RiskFlag]bool)
	)

	for _, rule := range p.Overrides {
		if rule.Applies(ind) {
			if !seen[rule.Flag] {
				seen[rule.Flag] = true
				flags = append(flags, rule.Flag)
			}
			reasons = append(reasons, rule.Reason)
		}
	}

	for _, rule := range p.FlagRules {
		if rule.Applies(ind) && !seen[rule.Flag] {
			seen[rule.Flag] = true
			flags = append(flags, rule.Flag)
		}
	}

	return flags, reasons
}

// hasFlag reports whether a flag is present in a detected flag slice.
func hasFlag(flags []domain.RiskFlag, want domain.RiskFlag) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
