package scoring

import (
	"encoding/json"
	"fmt"

	"github.com/clinical-scoring-server/internal/domain"
)

// ParseOutcome is the structured success/failure wrapper returned by Parse.
// Batch and UI callers can short-circuit on OK without exception-style
// control flow.
type ParseOutcome struct {
	OK     bool
	Result *ScoringResult
	Err    error
}

func parseFailure(err error) ParseOutcome { return ParseOutcome{Err: err} }

func parseSuccess(r *ScoringResult) ParseOutcome { return ParseOutcome{OK: true, Result: r} }

// Parse is the permissive multi-shape façade in front of the pipeline. It
// accepts, for the named profile:
//
//   - an existing *ScoringResult (identity-preserving pass-through),
//   - a full serialized record (*ResultDTO, ResultDTO, raw JSON bytes, or a
//     generic map carrying the serialized keys), routed to Reconstitute,
//   - an indicators-only payload (map of field name to numeric value),
//     routed through validation and the full pipeline,
//   - a single numeric headline value, routed to the screening path.
//
// Shape dispatch happens exactly once, here; nothing downstream inspects
// input shapes. Parse never panics and never returns a throwable: all
// failures come back inside the outcome.
func Parse(profileName string, input any) ParseOutcome {
	switch v := input.(type) {
	case nil:
		return parseFailure(domain.ErrNilIndicators)

	case *ScoringResult:
		if v == nil {
			return parseFailure(domain.ErrNilIndicators)
		}
		return parseSuccess(v)

	case *ResultDTO:
		return reconstituteOutcome(v)
	case ResultDTO:
		return reconstituteOutcome(&v)

	case []byte:
		return parseJSON(profileName, v)
	case json.RawMessage:
		return parseJSON(profileName, []byte(v))

	case map[string]float64:
		return fromIndicatorsOutcome(profileName, v)

	case map[string]any:
		if looksSerialized(v) {
			dto, err := dtoFromMap(v)
			if err != nil {
				return parseFailure(err)
			}
			return reconstituteOutcome(dto)
		}
		raw, err := numericMap(v)
		if err != nil {
			return parseFailure(err)
		}
		return fromIndicatorsOutcome(profileName, raw)

	case float64:
		return screenOutcome(profileName, v)
	case float32:
		return screenOutcome(profileName, float64(v))
	case int:
		return screenOutcome(profileName, float64(v))
	case int64:
		return screenOutcome(profileName, float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return parseFailure(fmt.Errorf("unparseable numeric input %q: %w", v.String(), err))
		}
		return screenOutcome(profileName, f)

	default:
		return parseFailure(fmt.Errorf("unsupported input shape %T", input))
	}
}

func reconstituteOutcome(dto *ResultDTO) ParseOutcome {
	result, err := Reconstitute(dto)
	if err != nil {
		return parseFailure(err)
	}
	return parseSuccess(result)
}

func fromIndicatorsOutcome(profileName string, raw map[string]float64) ParseOutcome {
	result, err := FromIndicators(profileName, raw, ConfidenceDefault)
	if err != nil {
		return parseFailure(err)
	}
	return parseSuccess(result)
}

func screenOutcome(profileName string, headline float64) ParseOutcome {
	result, err := FromPartialSignal(profileName, headline, ConfidenceDefault)
	if err != nil {
		return parseFailure(err)
	}
	return parseSuccess(result)
}

// parseJSON decodes raw JSON and re-dispatches on the decoded shape.
func parseJSON(profileName string, raw []byte) ParseOutcome {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return parseFailure(fmt.Errorf("invalid JSON payload: %w", err))
	}
	switch decoded.(type) {
	case map[string]any, float64, nil:
		return Parse(profileName, decoded)
	default:
		return parseFailure(fmt.Errorf("unsupported JSON payload shape %T", decoded))
	}
}

// looksSerialized reports whether a generic map carries the serialized-result
// keys rather than bare indicators.
func looksSerialized(m map[string]any) bool {
	_, hasScore := m["compositeScore"]
	_, hasClass := m["classification"]
	_, hasScoredAt := m["scoredAt"]
	return hasScore && hasClass && hasScoredAt
}

// dtoFromMap converts a generic serialized map into a typed DTO.
func dtoFromMap(m map[string]any) (*ResultDTO, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, domain.NewReconstitutionError("record", err.Error())
	}
	dto := &ResultDTO{}
	if err := json.Unmarshal(raw, dto); err != nil {
		return nil, domain.NewReconstitutionError("record", err.Error())
	}
	return dto, nil
}

// numericMap narrows a generic map to named numeric measurements.
func numericMap(m map[string]any) (map[string]float64, error) {
	out := make(map[string]float64, len(m))
	for name, value := range m {
		switch v := value.(type) {
		case float64:
			out[name] = v
		case int:
			out[name] = float64(v)
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return nil, domain.NewValidationError(name, 0, 0, 0, "",
					fmt.Sprintf("unparseable numeric value %q", v.String()))
			}
			out[name] = f
		default:
			return nil, domain.NewValidationError(name, 0, 0, 0, "",
				fmt.Sprintf("expected a numeric value, got %T", value))
		}
	}
	return out, nil
}
