package scoring

import (
	"fmt"
	"math"

	"github.com/clinical-scoring-server/internal/domain"
)

// Validate checks a raw measurement map against the profile's field
// declarations and cross-field rules and returns a frozen IndicatorSet.
// Construction is atomic: any violation aborts with a ValidationError that
// names the offending field, the received value and the valid range.
func (p *Profile) Validate(raw map[string]float64) (*domain.IndicatorSet, error) {
	if raw == nil {
		return nil, domain.ErrNilIndicators
	}

	accepted := make(map[string]float64, len(p.Fields))

	for _, field := range p.Fields {
		value, present := raw[field.Name]
		if !present {
			if field.Required {
				return nil, domain.NewValidationError(field.Name, 0, field.Min, field.Max, field.Unit,
					"required field is missing")
			}
			continue
		}

		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, domain.NewValidationError(field.Name, value, field.Min, field.Max, field.Unit,
				"value must be a finite number")
		}
		if field.Integer && value != math.Trunc(value) {
			return nil, domain.NewValidationError(field.Name, value, field.Min, field.Max, field.Unit,
				"value must be an integer")
		}
		if value < field.Min || value > field.Max {
			return nil, domain.NewValidationError(field.Name, value, field.Min, field.Max, field.Unit,
				fmt.Sprintf("value %g outside valid range [%g, %g]", value, field.Min, field.Max))
		}

		accepted[field.Name] = value
	}

	// Reject fields the profile does not declare so that typos surface
	// instead of silently dropping a measurement.
	for name, value := range raw {
		if _, ok := p.Field(name); !ok {
			return nil, domain.NewValidationError(name, value, 0, 0, "",
				fmt.Sprintf("field is not declared by profile %q", p.Name))
		}
	}

	for _, rule := range p.CrossRules {
		floor, hasFloor := accepted[rule.Floor]
		avg, hasAvg := accepted[rule.Average]
		if hasFloor && hasAvg && floor > avg {
			spec, _ := p.Field(rule.Floor)
			return nil, domain.NewValidationError(rule.Floor, floor, spec.Min, spec.Max, spec.Unit,
				fmt.Sprintf("%s (%g) must not exceed %s (%g)", rule.Floor, floor, rule.Average, avg))
		}
	}

	return domain.NewIndicatorSet(p.Name, accepted), nil
}
