package domain

import "sort"

// IndicatorSet is an immutable record of validated clinical measurements.
// Construction is atomic: the validator either produces a fully valid set or
// an error, never a partially valid one. The backing map is private and
// copied on the way in and out, so a set can be shared freely across
// goroutines.
type IndicatorSet struct {
	profile string
	values  map[string]float64
}

// NewIndicatorSet freezes a validated measurement map for the given profile.
// Intended for use by profile validators; it copies the input map.
func NewIndicatorSet(profile string, values map[string]float64) *IndicatorSet {
	frozen := make(map[string]float64, len(values))
	for k, v := range values {
		frozen[k] = v
	}
	return &IndicatorSet{profile: profile, values: frozen}
}

// Profile returns the name of the profile the set was validated against.
func (s *IndicatorSet) Profile() string { return s.profile }

// Get returns the named measurement and whether it is present.
func (s *IndicatorSet) Get(name string) (float64, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Value returns the named measurement, or 0 when absent. Use Get when the
// field is optional.
func (s *IndicatorSet) Value(name string) float64 {
	return s.values[name]
}

// Has reports whether the named measurement is present.
func (s *IndicatorSet) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Len returns the number of measurements in the set.
func (s *IndicatorSet) Len() int { return len(s.values) }

// Names returns the measurement names in deterministic (sorted) order.
func (s *IndicatorSet) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Map returns a copy of the measurements. Mutating the copy does not affect
// the set.
func (s *IndicatorSet) Map() map[string]float64 {
	out := make(map[string]float64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Equals reports whether two sets hold identical measurements for the same
// profile.
func (s *IndicatorSet) Equals(other *IndicatorSet) bool {
	if other == nil || s.profile != other.profile || len(s.values) != len(other.values) {
		return false
	}
	for k, v := range s.values {
		ov, ok := other.values[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}
