package scoring

import (
	"math"

	"github.com/clinical-scoring-server/internal/domain"
)

// Respiratory profile measurement names.
const (
	FieldAHI             = "apneaHypopneaIndex"
	FieldODI             = "oxygenDesaturationIndex"
	FieldOxygenNadir     = "oxygenSaturationNadir"
	FieldOxygenAverage   = "oxygenSaturationAverage"
	FieldSleepEfficiency = "sleepEfficiency"
	FieldEpworthScore    = "epworthScore"
	FieldBodyMassIndex   = "bodyMassIndex"
	FieldSupineAHI       = "supineApneaIndex"
	FieldRemAHI          = "remApneaIndex"
)

// ProfileRespiratory is the registry name of the sleep-study scoring profile.
const ProfileRespiratory = "respiratory"

// Respiratory clinical cutoffs. The hypoxemia override boundary is inclusive:
// a nadir of exactly 75% contraindicates. The implant profile treats its
// glycemic boundary the opposite way; the asymmetry is intentional and pinned
// by tests.
const (
	severeHypoxemiaNadir    = 75.0
	extremeAHIFloor         = 80.0
	highDesaturationODI     = 30.0
	poorSleepEfficiency     = 70.0
	severeSleepinessScore   = 16.0
	obesityBMI              = 35.0
	elevatedBMI             = 30.0
	positionalRatio         = 2.0
	respiratoryConfidence   = 0.9
	respScreeningConfidence = 0.5
)

// RespiratoryProfile builds the sleep-study severity scoring profile:
// apnea-hypopnea frequency, oxygen desaturation, oxygenation floor/average,
// sleep efficiency and daytime sleepiness combined into a 0-100 composite.
func RespiratoryProfile() *Profile {
	return &Profile{
		Name:             ProfileRespiratory,
		AlgorithmVersion: "resp-1.2.0",

		Fields: []FieldSpec{
			{Name: FieldAHI, Min: 0, Max: 150, Unit: "events/h", Required: true},
			{Name: FieldODI, Min: 0, Max: 150, Unit: "events/h", Required: true},
			{Name: FieldOxygenNadir, Min: 40, Max: 100, Unit: "%", Required: true},
			{Name: FieldOxygenAverage, Min: 60, Max: 100, Unit: "%", Required: true},
			{Name: FieldSleepEfficiency, Min: 0, Max: 100, Unit: "%", Required: true},
			{Name: FieldEpworthScore, Min: 0, Max: 24, Unit: "points", Required: true, Integer: true},
			{Name: FieldBodyMassIndex, Min: 10, Max: 70, Unit: "kg/m2"},
			{Name: FieldSupineAHI, Min: 0, Max: 150, Unit: "events/h"},
			{Name: FieldRemAHI, Min: 0, Max: 150, Unit: "events/h"},
		},
		CrossRules: []CrossFieldRule{
			{Floor: FieldOxygenNadir, Average: FieldOxygenAverage},
		},

		Components: []Component{
			{
				Name:   "respiratoryDisturbance",
				Weight: 0.40,
				Score: func(ind *domain.IndicatorSet) float64 {
					// 0 events/h scores 100; 50+ events/h exhausts the component.
					return clampScore(100 - ind.Value(FieldAHI)*2)
				},
			},
			{
				Name:   "oxygenation",
				Weight: 0.30,
				Score: func(ind *domain.IndicatorSet) float64 {
					nadir := linearScore(ind.Value(FieldOxygenNadir), 40, 95)
					avg := linearScore(ind.Value(FieldOxygenAverage), 60, 97)
					odi := clampScore(100 - ind.Value(FieldODI)*2)
					return 0.4*nadir + 0.3*avg + 0.3*odi
				},
			},
			{
				Name:   "sleepQuality",
				Weight: 0.15,
				Score: func(ind *domain.IndicatorSet) float64 {
					return clampScore(ind.Value(FieldSleepEfficiency))
				},
			},
			{
				Name:   "daytimeImpairment",
				Weight: 0.15,
				Score: func(ind *domain.IndicatorSet) float64 {
					return linearScore(ind.Value(FieldEpworthScore), 24, 0)
				},
			},
		},

		Tiers: []domain.Classification{
			domain.ClassificationSevere,
			domain.ClassificationModerate,
			domain.ClassificationMild,
			domain.ClassificationNone,
		},
		Thresholds: []Threshold{
			{Floor: 80, Tier: domain.ClassificationNone},
			{Floor: 60, Tier: domain.ClassificationMild},
			{Floor: 40, Tier: domain.ClassificationModerate},
		},

		Overrides: []OverrideRule{
			{
				Flag:   domain.FlagSevereHypoxemia,
				Reason: "Oxygen saturation nadir at or below 75% indicates severe nocturnal hypoxemia",
				Applies: func(ind *domain.IndicatorSet) bool {
					return ind.Value(FieldOxygenNadir) <= severeHypoxemiaNadir
				},
			},
			{
				Flag:   domain.FlagExtremeAHI,
				Reason: "Apnea-hypopnea index of 80 events/h or more indicates extreme disease burden",
				Applies: func(ind *domain.IndicatorSet) bool {
					return ind.Value(FieldAHI) >= extremeAHIFloor
				},
			},
		},

		FlagRules: []FlagRule{
			{Flag: domain.FlagHighDesaturation, Applies: func(ind *domain.IndicatorSet) bool {
				return ind.Value(FieldODI) >= highDesaturationODI
			}},
			{Flag: domain.FlagPoorSleepEfficiency, Applies: func(ind *domain.IndicatorSet) bool {
				return ind.Value(FieldSleepEfficiency) < poorSleepEfficiency
			}},
			{Flag: domain.FlagSevereSleepiness, Applies: func(ind *domain.IndicatorSet) bool {
				return ind.Value(FieldEpworthScore) >= severeSleepinessScore
			}},
			{Flag: domain.FlagObesity, Applies: func(ind *domain.IndicatorSet) bool {
				bmi, ok := ind.Get(FieldBodyMassIndex)
				return ok && bmi >= obesityBMI
			}},
			{Flag: domain.FlagPositionalDependency, Applies: func(ind *domain.IndicatorSet) bool {
				supine, ok := ind.Get(FieldSupineAHI)
				return ok && supine > positionalRatio*ind.Value(FieldAHI)
			}},
			{Flag: domain.FlagREMPredominance, Applies: func(ind *domain.IndicatorSet) bool {
				rem, ok := ind.Get(FieldRemAHI)
				return ok && rem > positionalRatio*ind.Value(FieldAHI)
			}},
		},

		RiskLevels: map[domain.Classification]domain.RiskLevel{
			domain.ClassificationSevere:   domain.RiskCritical,
			domain.ClassificationModerate: domain.RiskHigh,
			domain.ClassificationMild:     domain.RiskModerate,
			domain.ClassificationNone:     domain.RiskLow,
		},

		Recommend: recommendRespiratory,

		Estimate:      estimateRespiratory,
		HeadlineField: FieldAHI,

		DefaultConfidence:   respiratoryConfidence,
		ScreeningConfidence: respScreeningConfidence,
	}
}

// recommendRespiratory is the ordered treatment decision tree for the
// respiratory profile. The worst tier always receives the most intensive
// therapy; a positional dependency beats the generic tier protocol; elevated
// body mass alongside mild disease resolves conservatively.
func recommendRespiratory(class domain.Classification, flags []domain.RiskFlag, ind *domain.IndicatorSet) domain.Recommendation {
	switch {
	case class == domain.ClassificationSevere:
		return domain.RecommendationCPAPTherapy
	case class == domain.ClassificationNone && len(flags) == 0:
		return domain.RecommendationNoIntervention
	case hasFlag(flags, domain.FlagPositionalDependency):
		return domain.RecommendationPositionalTherapy
	case class == domain.ClassificationMild && bmiAtLeast(ind, elevatedBMI):
		return domain.RecommendationLifestyleModification
	case class == domain.ClassificationNone:
		return domain.RecommendationNoIntervention
	default:
		return domain.RecommendationOralAppliance
	}
}

func bmiAtLeast(ind *domain.IndicatorSet, threshold float64) bool {
	bmi, ok := ind.Get(FieldBodyMassIndex)
	return ok && bmi >= threshold
}

// estimateRespiratory derives a plausible full measurement set from a single
// headline apnea-hypopnea index, for screening use. The estimates are fixed
// regressions chosen so that the derived composite stays monotone in the
// headline value.
func estimateRespiratory(ahi float64) map[string]float64 {
	ahi = clamp(ahi, 0, 150)
	return map[string]float64{
		FieldAHI:             ahi,
		FieldODI:             clamp(ahi*0.8, 0, 150),
		FieldOxygenNadir:     clamp(92-ahi*0.15, 40, 92),
		FieldOxygenAverage:   clamp(96-ahi*0.05, 60, 96),
		FieldSleepEfficiency: clamp(90-ahi*0.4, 0, 100),
		FieldEpworthScore:    math.Round(clamp(ahi/3, 0, 24)),
	}
}
