package scoring

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-scoring-server/internal/domain"
)

func mustAssess(t *testing.T, profile string, raw map[string]float64) *ScoringResult {
	t.Helper()
	result, err := FromIndicators(profile, raw, -1)
	require.NoError(t, err)
	return result
}

func TestUnknownProfileRejected(t *testing.T) {
	_, err := FromIndicators("cardiology", validRespiratoryInput(), -1)
	assert.ErrorIs(t, err, domain.ErrUnknownProfile)
}

func TestConfidenceDefaultsAndValidation(t *testing.T) {
	full := mustAssess(t, ProfileRespiratory, validRespiratoryInput())
	assert.InDelta(t, 0.9, full.Confidence(), 1e-9)

	explicit, err := FromIndicators(ProfileRespiratory, validRespiratoryInput(), 0.7)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, explicit.Confidence(), 1e-9)

	_, err = FromIndicators(ProfileRespiratory, validRespiratoryInput(), 1.5)
	assert.ErrorIs(t, err, domain.ErrInvalidConfidence)

	// Only the sentinel selects the default; an explicit negative confidence
	// is rejected like any other out-of-range value.
	_, err = FromIndicators(ProfileRespiratory, validRespiratoryInput(), -0.5)
	assert.ErrorIs(t, err, domain.ErrInvalidConfidence)

	_, err = FromPartialSignal(ProfileRespiratory, 30, -0.5)
	assert.ErrorIs(t, err, domain.ErrInvalidConfidence)

	screened, err := FromPartialSignal(ProfileRespiratory, 30, ConfidenceDefault)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, screened.Confidence(), 1e-9)
}

func TestSerializationRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		profile string
		raw     map[string]float64
	}{
		{ProfileRespiratory, severeRespiratoryInput()},
		{ProfileImplant, idealImplantInput()},
	} {
		t.Run(tc.profile, func(t *testing.T) {
			original := mustAssess(t, tc.profile, tc.raw)

			data, err := json.Marshal(original)
			require.NoError(t, err)

			var dto ResultDTO
			require.NoError(t, json.Unmarshal(data, &dto))

			restored, err := Reconstitute(&dto)
			require.NoError(t, err)

			assert.True(t, original.Equals(restored))
			assert.Equal(t, original.Hash(), restored.Hash())
			assert.Equal(t, original.CompositeScore(), restored.CompositeScore())
			assert.Equal(t, original.Classification(), restored.Classification())
			assert.Equal(t, original.RiskLevel(), restored.RiskLevel())
			assert.Equal(t, original.Recommendation(), restored.Recommendation())
			assert.ElementsMatch(t, original.Flags(), restored.Flags())
		})
	}
}

func TestReconstituteRejectsMalformedRecords(t *testing.T) {
	valid := mustAssess(t, ProfileRespiratory, validRespiratoryInput()).DTO()

	tests := []struct {
		name   string
		mutate func(*ResultDTO)
		field  string
	}{
		{"MissingProfile", func(d *ResultDTO) { d.Profile = "" }, "profile"},
		{"UnknownProfile", func(d *ResultDTO) { d.Profile = "cardiology" }, "profile"},
		{"MissingClassification", func(d *ResultDTO) { d.Classification = "" }, "classification"},
		{"ForeignTier", func(d *ResultDTO) { d.Classification = "IDEAL" }, "classification"},
		{"MissingRiskLevel", func(d *ResultDTO) { d.RiskLevel = "" }, "riskLevel"},
		{"InvalidRiskLevel", func(d *ResultDTO) { d.RiskLevel = "EXTREME" }, "riskLevel"},
		{"MissingRecommendation", func(d *ResultDTO) { d.Recommendation = "" }, "recommendation"},
		{"MissingIndicators", func(d *ResultDTO) { d.Indicators = nil }, "indicators"},
		{"OutOfRangeIndicator", func(d *ResultDTO) { d.Indicators[FieldAHI] = 900 }, "indicators"},
		{"MissingTimestamp", func(d *ResultDTO) { d.ScoredAt = "" }, "scoredAt"},
		{"MalformedTimestamp", func(d *ResultDTO) { d.ScoredAt = "yesterday" }, "scoredAt"},
		{"InvalidConfidence", func(d *ResultDTO) { d.Confidence = 2 }, "confidence"},
		{"CompositeAboveRange", func(d *ResultDTO) { d.CompositeScore = 500 }, "compositeScore"},
		{"CompositeBelowRange", func(d *ResultDTO) { d.CompositeScore = -1 }, "compositeScore"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dto := *valid
			dto.Indicators = map[string]float64{}
			for k, v := range valid.Indicators {
				dto.Indicators[k] = v
			}
			tt.mutate(&dto)

			_, err := Reconstitute(&dto)
			var rerr *domain.ReconstitutionError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, tt.field, rerr.Field)
		})
	}
}

func TestReconstituteNilRecord(t *testing.T) {
	_, err := Reconstitute(nil)
	var rerr *domain.ReconstitutionError
	assert.ErrorAs(t, err, &rerr)
}

func TestEqualityIgnoresConfidenceAndTimestamp(t *testing.T) {
	a := mustAssess(t, ProfileRespiratory, severeRespiratoryInput())

	b, err := a.WithConfidence(0.3)
	require.NoError(t, err)

	assert.True(t, a.Equals(b))
	assert.Equal(t, a.Hash(), b.Hash())

	dto := a.DTO()
	dto.ScoredAt = time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339)
	later, err := Reconstitute(dto)
	require.NoError(t, err)
	assert.True(t, a.Equals(later))
}

func TestEqualityDistinguishesIndicators(t *testing.T) {
	a := mustAssess(t, ProfileRespiratory, validRespiratoryInput())

	raw := validRespiratoryInput()
	raw[FieldAHI] = 13
	b := mustAssess(t, ProfileRespiratory, raw)

	assert.False(t, a.Equals(b))
	assert.NotEqual(t, a.Hash(), b.Hash())
	assert.False(t, a.Equals(nil))
}

func TestWithConfidenceDoesNotMutateReceiver(t *testing.T) {
	original := mustAssess(t, ProfileRespiratory, validRespiratoryInput())
	require.InDelta(t, 0.9, original.Confidence(), 1e-9)

	derived, err := original.WithConfidence(0.4)
	require.NoError(t, err)

	assert.InDelta(t, 0.4, derived.Confidence(), 1e-9)
	assert.InDelta(t, 0.9, original.Confidence(), 1e-9)

	_, err = original.WithConfidence(-0.1)
	assert.ErrorIs(t, err, domain.ErrInvalidConfidence)
}

func TestWithUpdatedIndicatorsRecomputes(t *testing.T) {
	original := mustAssess(t, ProfileRespiratory, validRespiratoryInput())
	require.NotEqual(t, domain.ClassificationSevere, original.Classification())

	updated, err := original.WithUpdatedIndicators(map[string]float64{
		FieldAHI:         90,
		FieldOxygenNadir: 65,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ClassificationSevere, updated.Classification())
	assert.True(t, updated.HasFlag(domain.FlagSevereHypoxemia))
	assert.Less(t, updated.CompositeScore(), original.CompositeScore())

	// Receiver stays frozen.
	assert.NotEqual(t, domain.ClassificationSevere, original.Classification())
	assert.InDelta(t, 12, original.Indicators().Value(FieldAHI), 1e-9)

	_, err = original.WithUpdatedIndicators(map[string]float64{FieldAHI: -5})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAccessorsReturnCopies(t *testing.T) {
	result := mustAssess(t, ProfileRespiratory, severeRespiratoryInput())

	flags := result.Flags()
	require.NotEmpty(t, flags)
	flags[0] = domain.RiskFlag("TAMPERED")
	assert.NotEqual(t, domain.RiskFlag("TAMPERED"), result.Flags()[0])

	components := result.ComponentScores()
	components["respiratoryDisturbance"] = 999
	assert.NotEqual(t, 999.0, result.ComponentScores()["respiratoryDisturbance"])

	reasons := result.Contraindications()
	require.NotEmpty(t, reasons)
	reasons[0] = "tampered"
	assert.NotEqual(t, "tampered", result.Contraindications()[0])
}

func TestCompareOrdersBySeverity(t *testing.T) {
	severe := mustAssess(t, ProfileRespiratory, severeRespiratoryInput())
	healthy := mustAssess(t, ProfileRespiratory, healthyRespiratoryInput())
	mid := mustAssess(t, ProfileRespiratory, validRespiratoryInput())

	assert.Equal(t, -1, severe.Compare(healthy))
	assert.Equal(t, 1, healthy.Compare(severe))
	assert.Equal(t, 0, severe.Compare(severe))
	assert.Equal(t, -1, severe.Compare(mid))
}

func TestStringFormatting(t *testing.T) {
	result := mustAssess(t, ProfileRespiratory, severeRespiratoryInput())

	s := result.String()
	assert.Contains(t, s, "respiratory")
	assert.Contains(t, s, "29.9")
	assert.Contains(t, s, "SEVERE")
	assert.Contains(t, s, "CPAP_THERAPY")
	assert.Contains(t, s, "SEVERE_HYPOXEMIA")

	compact := result.CompactString()
	assert.Equal(t, "respiratory/SEVERE/29.9/CPAP_THERAPY", compact)
	assert.Equal(t, 4, len(strings.Split(compact, "/")))
}

func TestDTOCarriesFullState(t *testing.T) {
	result := mustAssess(t, ProfileImplant, idealImplantInput())
	dto := result.DTO()

	assert.Equal(t, ProfileImplant, dto.Profile)
	assert.Equal(t, "implant-1.1.0", dto.AlgorithmVersion)
	assert.Equal(t, result.CompositeScore(), dto.CompositeScore)
	assert.Len(t, dto.ComponentScores, len(ImplantProfile().Components))
	assert.Equal(t, "IDEAL", dto.Classification)

	_, err := time.Parse(time.RFC3339, dto.ScoredAt)
	assert.NoError(t, err)
}
