// Package domain contains core business entities and types for clinical
// decision-support scoring: severity/eligibility classifications, risk levels,
// risk flags and treatment recommendations shared by every scoring profile.
package domain

import "errors"

// Classification represents an ordered severity or eligibility tier.
// Each profile declares its own closed, ordered tier list (worst first);
// the values below cover both shipped profiles.
type Classification string

// Respiratory profile tiers (worst to best).
const (
	ClassificationSevere   Classification = "SEVERE"
	ClassificationModerate Classification = "MODERATE"
	ClassificationMild     Classification = "MILD"
	ClassificationNone     Classification = "NONE"
)

// Implant eligibility tiers (worst to best).
const (
	ClassificationContraindicated Classification = "CONTRAINDICATED"
	ClassificationConditional     Classification = "CONDITIONAL"
	ClassificationSuitable        Classification = "SUITABLE"
	ClassificationIdeal           Classification = "IDEAL"
)

// RiskLevel represents the ordered patient risk level attached to a result.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// riskOrder is the total order over risk levels, lowest first.
var riskOrder = []RiskLevel{RiskLow, RiskModerate, RiskHigh, RiskCritical}

// Recommendation represents the resolved treatment recommendation.
type Recommendation string

// Respiratory profile recommendations.
const (
	RecommendationNoIntervention        Recommendation = "NO_INTERVENTION"
	RecommendationLifestyleModification Recommendation = "LIFESTYLE_MODIFICATION"
	RecommendationPositionalTherapy     Recommendation = "POSITIONAL_THERAPY"
	RecommendationOralAppliance         Recommendation = "ORAL_APPLIANCE"
	RecommendationCPAPTherapy           Recommendation = "CPAP_THERAPY"
)

// Implant profile recommendations.
const (
	RecommendationNotRecommended   Recommendation = "NOT_RECOMMENDED"
	RecommendationStandardProtocol Recommendation = "STANDARD_PROTOCOL"
	RecommendationImmediateLoad    Recommendation = "IMMEDIATE_LOAD_PROTOCOL"
	RecommendationStagedProtocol   Recommendation = "STAGED_PROTOCOL"
	RecommendationDelayedLoading   Recommendation = "DELAYED_LOADING"
)

// RiskFlag is a named, independently evaluated boolean risk indicator.
type RiskFlag string

// Respiratory profile flags.
const (
	FlagSevereHypoxemia      RiskFlag = "SEVERE_HYPOXEMIA"
	FlagExtremeAHI           RiskFlag = "EXTREME_AHI"
	FlagHighDesaturation     RiskFlag = "HIGH_DESATURATION"
	FlagPoorSleepEfficiency  RiskFlag = "POOR_SLEEP_EFFICIENCY"
	FlagSevereSleepiness     RiskFlag = "SEVERE_SLEEPINESS"
	FlagObesity              RiskFlag = "OBESITY"
	FlagPositionalDependency RiskFlag = "POSITIONAL_DEPENDENCY"
	FlagREMPredominance      RiskFlag = "REM_PREDOMINANCE"
)

// Implant profile flags.
const (
	FlagHeadNeckRadiation     RiskFlag = "HEAD_NECK_RADIATION"
	FlagIVBisphosphonates     RiskFlag = "IV_BISPHOSPHONATES"
	FlagUncontrolledDiabetes  RiskFlag = "UNCONTROLLED_DIABETES"
	FlagSevereSystemicDisease RiskFlag = "SEVERE_SYSTEMIC_DISEASE"
	FlagHeavySmoker           RiskFlag = "HEAVY_SMOKER"
	FlagSmoker                RiskFlag = "SMOKER"
	FlagElevatedHbA1c         RiskFlag = "ELEVATED_HBA1C"
	FlagPoorBoneQuality       RiskFlag = "POOR_BONE_QUALITY"
	FlagPeriodontalDisease    RiskFlag = "PERIODONTAL_DISEASE"
	FlagLimitedBoneVolume     RiskFlag = "LIMITED_BONE_VOLUME"
)

var (
	ErrUnknownProfile    = errors.New("unknown scoring profile")
	ErrInvalidRiskLevel  = errors.New("invalid risk level")
	ErrInvalidConfidence = errors.New("confidence must be within [0,1]")
	ErrNilIndicators     = errors.New("indicator payload is required")
)

// IsValid reports whether the risk level is one of the declared levels.
func (r RiskLevel) IsValid() bool {
	for _, level := range riskOrder {
		if r == level {
			return true
		}
	}
	return false
}

// String returns the string representation of the risk level.
func (r RiskLevel) String() string { return string(r) }

// Rank returns the position of the risk level in the total order, lowest
// risk first. Unknown levels rank above CRITICAL so that a corrupted value
// never sorts as safe.
func (r RiskLevel) Rank() int {
	for i, level := range riskOrder {
		if r == level {
			return i
		}
	}
	return len(riskOrder)
}

// Escalate returns the risk level one step closer to CRITICAL.
func (r RiskLevel) Escalate() RiskLevel {
	rank := r.Rank()
	if rank >= len(riskOrder)-1 {
		return RiskCritical
	}
	return riskOrder[rank+1]
}

// String returns the string representation of the classification.
func (c Classification) String() string { return string(c) }

// String returns the string representation of the recommendation.
func (rec Recommendation) String() string { return string(rec) }

// String returns the string representation of the risk flag.
func (f RiskFlag) String() string { return string(f) }

// LogFields returns structured logging fields for audit trails.
func (c Classification) LogFields() map[string]any {
	return map[string]any{
		"classification": string(c),
	}
}
