package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-scoring-server/internal/domain"
)

func validRespiratoryInput() map[string]float64 {
	return map[string]float64{
		FieldAHI:             12,
		FieldODI:             8,
		FieldOxygenNadir:     88,
		FieldOxygenAverage:   94,
		FieldSleepEfficiency: 85,
		FieldEpworthScore:    6,
	}
}

func validImplantInput() map[string]float64 {
	return map[string]float64{
		FieldBoneDensityClass: 2,
		FieldBoneHeight:       13,
		FieldBoneWidth:        7,
		FieldSmokingStatus:    0,
		FieldASAClass:         1,
		FieldOralHygieneScore: 90,
		FieldAge:              45,
	}
}

func TestValidateAcceptsValidInput(t *testing.T) {
	for _, profile := range []*Profile{RespiratoryProfile(), ImplantProfile()} {
		t.Run(profile.Name, func(t *testing.T) {
			raw := validRespiratoryInput()
			if profile.Name == ProfileImplant {
				raw = validImplantInput()
			}
			ind, err := profile.Validate(raw)
			require.NoError(t, err)
			require.NotNil(t, ind)
			assert.Equal(t, profile.Name, ind.Profile())
			assert.Equal(t, len(raw), ind.Len())
		})
	}
}

func TestValidateRejectsNilInput(t *testing.T) {
	_, err := RespiratoryProfile().Validate(nil)
	assert.ErrorIs(t, err, domain.ErrNilIndicators)
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	profile := RespiratoryProfile()
	raw := validRespiratoryInput()
	delete(raw, FieldOxygenNadir)

	_, err := profile.Validate(raw)
	require.Error(t, err)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, FieldOxygenNadir, verr.Field)
	assert.Equal(t, 40.0, verr.Min)
	assert.Equal(t, 100.0, verr.Max)
}

func TestValidateRejectsNonFiniteValues(t *testing.T) {
	tests := []struct {
		name  string
		value float64
	}{
		{"NaN", math.NaN()},
		{"PositiveInfinity", math.Inf(1)},
		{"NegativeInfinity", math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRespiratoryInput()
			raw[FieldAHI] = tt.value

			_, err := RespiratoryProfile().Validate(raw)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, FieldAHI, verr.Field)
		})
	}
}

func TestValidateRejectsNonIntegerForIntegerFields(t *testing.T) {
	raw := validRespiratoryInput()
	raw[FieldEpworthScore] = 6.5

	_, err := RespiratoryProfile().Validate(raw)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, FieldEpworthScore, verr.Field)
	assert.Contains(t, verr.Message, "integer")
}

func TestValidateRejectsUndeclaredField(t *testing.T) {
	raw := validRespiratoryInput()
	raw["shoeSize"] = 43

	_, err := RespiratoryProfile().Validate(raw)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "shoeSize", verr.Field)
}

func TestValidateCrossFieldNadirAboveAverage(t *testing.T) {
	raw := validRespiratoryInput()
	raw[FieldOxygenNadir] = 96
	raw[FieldOxygenAverage] = 90

	_, err := RespiratoryProfile().Validate(raw)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, FieldOxygenNadir, verr.Field)
	assert.Contains(t, verr.Message, FieldOxygenAverage)
}

func TestValidateCrossFieldNadirEqualAverageAccepted(t *testing.T) {
	raw := validRespiratoryInput()
	raw[FieldOxygenNadir] = 90
	raw[FieldOxygenAverage] = 90

	_, err := RespiratoryProfile().Validate(raw)
	assert.NoError(t, err)
}

// TestValidationBoundaries checks, for every declared field of both profiles,
// that the extremes are accepted and one unit outside each extreme is
// rejected.
func TestValidationBoundaries(t *testing.T) {
	profiles := map[string]map[string]float64{
		ProfileRespiratory: validRespiratoryInput(),
		ProfileImplant:     validImplantInput(),
	}

	for _, profile := range []*Profile{RespiratoryProfile(), ImplantProfile()} {
		for _, field := range profile.Fields {
			step := 1.0
			if !field.Integer {
				step = 0.01
			}

			cases := []struct {
				name    string
				value   float64
				wantErr bool
			}{
				{"AtMin", field.Min, false},
				{"AtMax", field.Max, false},
				{"BelowMin", field.Min - step, true},
				{"AboveMax", field.Max + step, true},
			}

			for _, tc := range cases {
				t.Run(profile.Name+"/"+field.Name+"/"+tc.name, func(t *testing.T) {
					raw := map[string]float64{}
					for k, v := range profiles[profile.Name] {
						raw[k] = v
					}
					raw[field.Name] = tc.value

					// Keep the nadir/average ordering constraint satisfied so
					// only the range check under test can fire.
					if profile.Name == ProfileRespiratory && tc.value >= 40 && tc.value <= 100 {
						switch field.Name {
						case FieldOxygenNadir:
							if raw[FieldOxygenAverage] < tc.value {
								raw[FieldOxygenAverage] = 100
							}
						case FieldOxygenAverage:
							if raw[FieldOxygenNadir] > tc.value {
								raw[FieldOxygenNadir] = 40
							}
						}
					}

					_, err := profile.Validate(raw)
					if tc.wantErr {
						var verr *domain.ValidationError
						require.ErrorAs(t, err, &verr)
						assert.Equal(t, field.Name, verr.Field)
					} else {
						assert.NoError(t, err)
					}
				})
			}
		}
	}
}
