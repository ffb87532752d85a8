package scoring

import (
	"math"

	"github.com/clinical-scoring-server/internal/domain"
)

// Implant profile measurement names.
const (
	FieldBoneDensityClass  = "boneDensityClass"
	FieldBoneHeight        = "boneHeightMm"
	FieldBoneWidth         = "boneWidthMm"
	FieldHbA1c             = "hba1cPercent"
	FieldSmokingStatus     = "smokingStatus"
	FieldASAClass          = "asaClass"
	FieldOralHygieneScore  = "oralHygieneScore"
	FieldPeriodontalStatus = "periodontalStatus"
	FieldInsertionTorque   = "insertionTorqueNcm"
	FieldBoneGraftRequired = "boneGraftRequired"
	FieldHeadNeckRadiation = "headNeckRadiation"
	FieldIVBisphosphonates = "ivBisphosphonates"
	FieldAge               = "age"
)

// ProfileImplant is the registry name of the implant eligibility profile.
const ProfileImplant = "implant"

// Implant clinical cutoffs. The glycemic override boundary is exclusive: an
// HbA1c of exactly 8.0% stays on the non-contraindicated side, unlike the
// respiratory hypoxemia boundary which contraindicates at exactly its
// threshold. The asymmetry mirrors the per-profile source guidance and is
// pinned by tests.
const (
	uncontrolledHbA1c    = 8.0
	elevatedHbA1c        = 7.0
	severeASAClass       = 4.0
	heavySmokingStatus   = 4.0
	smokerStatus         = 3.0
	poorBoneHeight       = 6.0
	poorBoneWidth        = 4.0
	periodontalModerate  = 2.0
	immediateLoadTorque  = 45.0
	adequateTorque       = 35.0
	implantConfidence    = 0.9
	implantScreeningConf = 0.5
)

// ImplantProfile builds the dental implant eligibility profile: bone quality,
// systemic health, oral health, procedural factors and patient factors
// combined into a 0-100 eligibility composite.
func ImplantProfile() *Profile {
	return &Profile{
		Name:             ProfileImplant,
		AlgorithmVersion: "implant-1.1.0",

		Fields: []FieldSpec{
			{Name: FieldBoneDensityClass, Min: 1, Max: 4, Unit: "Lekholm-Zarb class", Required: true, Integer: true},
			{Name: FieldBoneHeight, Min: 4, Max: 30, Unit: "mm", Required: true},
			{Name: FieldBoneWidth, Min: 3, Max: 15, Unit: "mm", Required: true},
			{Name: FieldHbA1c, Min: 4, Max: 15, Unit: "%"},
			{Name: FieldSmokingStatus, Min: 0, Max: 4, Unit: "grade", Required: true, Integer: true},
			{Name: FieldASAClass, Min: 1, Max: 5, Unit: "ASA class", Required: true, Integer: true},
			{Name: FieldOralHygieneScore, Min: 0, Max: 100, Unit: "points", Required: true},
			{Name: FieldPeriodontalStatus, Min: 0, Max: 3, Unit: "grade", Integer: true},
			{Name: FieldInsertionTorque, Min: 10, Max: 80, Unit: "Ncm"},
			{Name: FieldBoneGraftRequired, Min: 0, Max: 1, Unit: "flag", Integer: true},
			{Name: FieldHeadNeckRadiation, Min: 0, Max: 1, Unit: "flag", Integer: true},
			{Name: FieldIVBisphosphonates, Min: 0, Max: 1, Unit: "flag", Integer: true},
			{Name: FieldAge, Min: 18, Max: 100, Unit: "years", Required: true, Integer: true},
		},

		Components: []Component{
			{
				Name:   "boneQuality",
				Weight: 0.30,
				Score: func(ind *domain.IndicatorSet) float64 {
					density := boneDensityScore(ind.Value(FieldBoneDensityClass))
					height := linearScore(ind.Value(FieldBoneHeight), 4, 12)
					width := linearScore(ind.Value(FieldBoneWidth), 3, 7)
					return 0.4*density + 0.35*height + 0.25*width
				},
			},
			{
				Name:   "systemicHealth",
				Weight: 0.25,
				Score: func(ind *domain.IndicatorSet) float64 {
					hba1c := 85.0 // unknown glycemic status scores mid-favorably
					if v, ok := ind.Get(FieldHbA1c); ok {
						hba1c = clampScore(100 - (v-5)*18)
					}
					asa := asaScore(ind.Value(FieldASAClass))
					return 0.55*hba1c + 0.45*asa
				},
			},
			{
				Name:   "oralHealth",
				Weight: 0.20,
				Score: func(ind *domain.IndicatorSet) float64 {
					perio, _ := ind.Get(FieldPeriodontalStatus)
					return clampScore(ind.Value(FieldOralHygieneScore) - perio*15)
				},
			},
			{
				Name:   "proceduralFactors",
				Weight: 0.10,
				Score: func(ind *domain.IndicatorSet) float64 {
					score := 100.0
					if ind.Value(FieldBoneGraftRequired) == 1 {
						score -= 40
					}
					if torque, ok := ind.Get(FieldInsertionTorque); ok && torque < adequateTorque {
						score -= 20
					}
					return clampScore(score)
				},
			},
			{
				Name:   "patientFactors",
				Weight: 0.15,
				Score: func(ind *domain.IndicatorSet) float64 {
					smoking := smokingScore(ind.Value(FieldSmokingStatus))
					age := clampScore(100 - math.Max(0, ind.Value(FieldAge)-40))
					return 0.6*smoking + 0.4*age
				},
			},
		},

		Tiers: []domain.Classification{
			domain.ClassificationContraindicated,
			domain.ClassificationConditional,
			domain.ClassificationSuitable,
			domain.ClassificationIdeal,
		},
		Thresholds: []Threshold{
			{Floor: 80, Tier: domain.ClassificationIdeal},
			{Floor: 60, Tier: domain.ClassificationSuitable},
			{Floor: 40, Tier: domain.ClassificationConditional},
		},

		Overrides: []OverrideRule{
			{
				Flag:   domain.FlagHeadNeckRadiation,
				Reason: "History of head and neck radiation carries osteoradionecrosis risk",
				Applies: func(ind *domain.IndicatorSet) bool {
					return ind.Value(FieldHeadNeckRadiation) == 1
				},
			},
			{
				Flag:   domain.FlagIVBisphosphonates,
				Reason: "Intravenous bisphosphonate therapy carries medication-related osteonecrosis risk",
				Applies: func(ind *domain.IndicatorSet) bool {
					return ind.Value(FieldIVBisphosphonates) == 1
				},
			},
			{
				Flag:   domain.FlagUncontrolledDiabetes,
				Reason: "HbA1c above 8.0% indicates uncontrolled diabetes",
				Applies: func(ind *domain.IndicatorSet) bool {
					v, ok := ind.Get(FieldHbA1c)
					return ok && v > uncontrolledHbA1c
				},
			},
			{
				Flag:   domain.FlagSevereSystemicDisease,
				Reason: "ASA class IV or higher indicates severe systemic disease",
				Applies: func(ind *domain.IndicatorSet) bool {
					return ind.Value(FieldASAClass) >= severeASAClass
				},
			},
			{
				Flag:   domain.FlagHeavySmoker,
				Reason: "Heavy smoking severely impairs osseointegration",
				Applies: func(ind *domain.IndicatorSet) bool {
					return ind.Value(FieldSmokingStatus) == heavySmokingStatus
				},
			},
		},

		FlagRules: []FlagRule{
			{Flag: domain.FlagSmoker, Applies: func(ind *domain.IndicatorSet) bool {
				return ind.Value(FieldSmokingStatus) >= smokerStatus
			}},
			{Flag: domain.FlagElevatedHbA1c, Applies: func(ind *domain.IndicatorSet) bool {
				v, ok := ind.Get(FieldHbA1c)
				return ok && v > elevatedHbA1c && v <= uncontrolledHbA1c
			}},
			{Flag: domain.FlagPoorBoneQuality, Applies: func(ind *domain.IndicatorSet) bool {
				return ind.Value(FieldBoneDensityClass) == 4 ||
					ind.Value(FieldBoneHeight) < poorBoneHeight ||
					ind.Value(FieldBoneWidth) < poorBoneWidth
			}},
			{Flag: domain.FlagPeriodontalDisease, Applies: func(ind *domain.IndicatorSet) bool {
				v, ok := ind.Get(FieldPeriodontalStatus)
				return ok && v >= periodontalModerate
			}},
			{Flag: domain.FlagLimitedBoneVolume, Applies: func(ind *domain.IndicatorSet) bool {
				return ind.Value(FieldBoneGraftRequired) == 1
			}},
		},

		RiskLevels: map[domain.Classification]domain.RiskLevel{
			domain.ClassificationContraindicated: domain.RiskCritical,
			domain.ClassificationConditional:     domain.RiskHigh,
			domain.ClassificationSuitable:        domain.RiskModerate,
			domain.ClassificationIdeal:           domain.RiskLow,
		},

		Recommend: recommendImplant,

		Estimate:      estimateImplant,
		HeadlineField: "preliminaryScore",

		DefaultConfidence:   implantConfidence,
		ScreeningConfidence: implantScreeningConf,
	}
}

// boneDensityScore maps a Lekholm-Zarb density class to a sub-score. Class 1
// (dense cortical bone) is best for primary stability; class 4 (low-density
// trabecular bone) is worst.
func boneDensityScore(class float64) float64 {
	switch class {
	case 1:
		return 100
	case 2:
		return 85
	case 3:
		return 60
	default:
		return 30
	}
}

// asaScore maps an ASA physical status class to a sub-score.
func asaScore(class float64) float64 {
	switch class {
	case 1:
		return 100
	case 2:
		return 80
	case 3:
		return 50
	case 4:
		return 20
	default:
		return 0
	}
}

// smokingScore maps smoking grade 0 (never) through 4 (heavy) to a sub-score.
func smokingScore(grade float64) float64 {
	switch grade {
	case 0:
		return 100
	case 1:
		return 80
	case 2:
		return 60
	case 3:
		return 35
	default:
		return 10
	}
}

// recommendImplant is the ordered treatment decision tree for the implant
// profile. A contraindicated site is never recommended; an ideal site with no
// complicating flags proceeds with the standard protocol, or immediate
// loading when primary stability allows; a grafting need staged-protocols
// ahead of the generic path; smokers and poorly controlled glycemia load
// conservatively.
func recommendImplant(class domain.Classification, flags []domain.RiskFlag, ind *domain.IndicatorSet) domain.Recommendation {
	torque, hasTorque := ind.Get(FieldInsertionTorque)

	switch {
	case class == domain.ClassificationContraindicated:
		return domain.RecommendationNotRecommended
	case class == domain.ClassificationIdeal && len(flags) == 0:
		if hasTorque && torque >= immediateLoadTorque {
			return domain.RecommendationImmediateLoad
		}
		return domain.RecommendationStandardProtocol
	case hasFlag(flags, domain.FlagLimitedBoneVolume):
		return domain.RecommendationStagedProtocol
	case hasFlag(flags, domain.FlagSmoker) || hasFlag(flags, domain.FlagElevatedHbA1c):
		return domain.RecommendationDelayedLoading
	case class == domain.ClassificationConditional:
		return domain.RecommendationDelayedLoading
	default:
		return domain.RecommendationStandardProtocol
	}
}

// estimateImplant derives a plausible full measurement set from a single
// preliminary 0-100 eligibility estimate, for screening use before a full
// work-up is available.
func estimateImplant(score float64) map[string]float64 {
	score = clamp(score, 0, 100)

	density := 4.0
	switch {
	case score >= 80:
		density = 1
	case score >= 60:
		density = 2
	case score >= 40:
		density = 3
	}

	asa := 3.0
	if score >= 60 {
		asa = 2
	}
	smoking := 2.0
	if score >= 70 {
		smoking = 0
	}

	return map[string]float64{
		FieldBoneDensityClass: density,
		FieldBoneHeight:       clamp(4+score*0.1, 4, 30),
		FieldBoneWidth:        clamp(3+score*0.05, 3, 15),
		FieldSmokingStatus:    smoking,
		FieldASAClass:         asa,
		FieldOralHygieneScore: clamp(score, 30, 95),
		FieldAge:              55,
	}
}
