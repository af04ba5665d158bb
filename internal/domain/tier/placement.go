package tier

import (
	"slices"

	"github.com/okian/solodex/internal/domain/entity"
)

// TierPlacement fields.
const (
	FieldPokemonID = "pokemon_id"
	FieldTierType  = "tier_type"
	FieldTier      = "tier"
	FieldRank      = "rank_within_tier"
)

// Placement is the typed view of a TierPlacement record.
type Placement struct {
	ID        string
	PokemonID string
	TierType  string // stored value, possibly the legacy alias
	Tier      Tier
	Rank      int // 0 when unset
}

// FromRecord reads a TierPlacement record.
func FromRecord(r entity.Record) Placement {
	rank, _ := r.IntField(FieldRank)
	return Placement{
		ID:        r.ID(),
		PokemonID: r.StringField(FieldPokemonID),
		TierType:  r.StringField(FieldTierType),
		Tier:      Tier(r.StringField(FieldTier)),
		Rank:      rank,
	}
}

// FromRecords reads a slice of TierPlacement records.
func FromRecords(recs []entity.Record) []Placement {
	out := make([]Placement, len(recs))
	for i, r := range recs {
		out[i] = FromRecord(r)
	}
	return out
}

// Record renders p as a create body. The id is left to the store.
func (p Placement) Record() entity.Record {
	return entity.Record{
		FieldPokemonID: p.PokemonID,
		FieldTierType:  p.TierType,
		FieldTier:      string(p.Tier),
		FieldRank:      p.Rank,
	}
}

// Bucket returns the placements of one (type, tier) bucket ordered by rank.
// Unranked placements count as rank 0; ties keep input order.
func Bucket(all []Placement, t Type, tr Tier) []Placement {
	var out []Placement
	for _, p := range all {
		if p.Tier == tr && t.Matches(p.TierType) {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b Placement) int { return a.Rank - b.Rank })
	return out
}

// Find returns the placement of pokemonID within view t, if any.
func Find(all []Placement, t Type, pokemonID string) (Placement, bool) {
	for _, p := range all {
		if p.PokemonID == pokemonID && t.Matches(p.TierType) {
			return p, true
		}
	}
	return Placement{}, false
}

// IsDense reports whether bucket ranks are exactly 1..N in order.
func IsDense(bucket []Placement) bool {
	for i, p := range bucket {
		if p.Rank != i+1 {
			return false
		}
	}
	return true
}
