// Package tier holds the tier list vocabulary and the pure planners that keep
// rank_within_tier dense (1..N) inside each (tier_type, tier) bucket.
package tier

import (
	"fmt"
	"strings"
)

// Tier is one ranking band.
type Tier string

const (
	S   Tier = "S"
	A   Tier = "A"
	B   Tier = "B"
	C   Tier = "C"
	D   Tier = "D"
	E   Tier = "E"
	F   Tier = "F"
	DNF Tier = "DNF"
)

var tierOrder = map[Tier]int{S: 0, A: 1, B: 2, C: 3, D: 4, E: 5, F: 6, DNF: 7} //nolint:gochecknoglobals // fixed vocabulary

// Tiers returns every tier from best to worst.
func Tiers() []Tier { return []Tier{S, A, B, C, D, E, F, DNF} }

// ParseTier accepts a tier name in any case.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := tierOrder[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
	return t, nil
}

// Order is the display position of t; unknown tiers sort after DNF.
func (t Tier) Order() int {
	if o, ok := tierOrder[t]; ok {
		return o
	}
	return len(tierOrder)
}

// Type names a ranking view.
type Type string

const (
	Overall         Type = "overall"
	PreEvolved      Type = "pre_evolved"
	MiddleEvolution Type = "middle_evolution"
	FullyEvolved    Type = "fully_evolved"

	// LegacyEvolved is the older spelling of FullyEvolved still found in data.
	LegacyEvolved = "evolved"
)

// Types returns every ranking view.
func Types() []Type { return []Type{Overall, PreEvolved, MiddleEvolution, FullyEvolved} }

// ParseType resolves a stored or requested tier_type, mapping the legacy alias.
func ParseType(s string) (Type, error) {
	switch s {
	case string(Overall), string(PreEvolved), string(MiddleEvolution), string(FullyEvolved):
		return Type(s), nil
	case LegacyEvolved:
		return FullyEvolved, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// StoredValues lists every tier_type value that belongs to t.
func (t Type) StoredValues() []string {
	if t == FullyEvolved {
		return []string{string(FullyEvolved), LegacyEvolved}
	}
	return []string{string(t)}
}

// Matches reports whether a stored tier_type value belongs to t.
func (t Type) Matches(stored string) bool {
	for _, v := range t.StoredValues() {
		if v == stored {
			return true
		}
	}
	return false
}
