package runstats

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/internal/domain/tier"
)

// TotalPokemon is the size of the Gen 1 dex the challenge covers.
const TotalPokemon = 151

// Pokemon and RunStatistics fields.
const (
	FieldCompletionTime  = "completion_time"
	FieldCompletionLevel = "completion_level"
	FieldPokedexNumber   = "pokedex_number"
	FieldEvolutionStage  = "evolution_stage"
	FieldIsEvolved       = "is_evolved"
	FieldMovesUsed       = "moves_used"
	FieldPokemonID       = "pokemon_id"
)

// TierCount is one row of the tier distribution chart.
type TierCount struct {
	Tier       tier.Tier `json:"tier"`
	Evolved    int       `json:"evolved"`
	PreEvolved int       `json:"pre_evolved"`
}

// Overview summarises challenge progress.
type Overview struct {
	TotalPokemon     int         `json:"total_pokemon"`
	Completed        int         `json:"completed"`
	Remaining        int         `json:"remaining"`
	DNF              int         `json:"dnf_count"`
	AvgTime          string      `json:"avg_time"`
	AvgLevel         string      `json:"avg_level"`
	TierDistribution []TierCount `json:"tier_distribution"`
}

// BuildOverview joins Pokemon with TierPlacement rows by pokemon_id. A
// Pokemon counts as completed when it has a completion_time and no DNF
// placement. Averages are "N/A" when nothing qualifies.
func BuildOverview(pokemon, placements []entity.Record) Overview {
	ps := tier.FromRecords(placements)

	dnf := map[string]bool{}
	dnfCount := 0
	for _, p := range ps {
		if p.Tier == tier.DNF {
			dnf[p.PokemonID] = true
			dnfCount++
		}
	}

	var (
		completed  int
		timed      int
		total      time.Duration
		levelled   int
		levelTotal float64
	)
	for _, r := range pokemon {
		ct := r.StringField(FieldCompletionTime)
		if ct == "" || dnf[r.ID()] {
			continue
		}
		completed++
		if d, ok := ParseCompletionTime(ct); ok {
			timed++
			total += d
		}
		if lvl, ok := level(r[FieldCompletionLevel]); ok && lvl != 0 {
			levelled++
			levelTotal += lvl
		}
	}

	ov := Overview{
		TotalPokemon: TotalPokemon,
		Completed:    completed,
		Remaining:    TotalPokemon - completed - dnfCount,
		DNF:          dnfCount,
		AvgTime:      "N/A",
		AvgLevel:     "N/A",
	}
	if timed > 0 && total > 0 {
		ov.AvgTime = FormatClock(total / time.Duration(timed))
	}
	if levelled > 0 {
		ov.AvgLevel = strconv.FormatFloat(levelTotal/float64(levelled), 'f', 1, 64)
	}

	for _, t := range tier.Tiers() {
		row := TierCount{Tier: t}
		for _, p := range ps {
			if p.Tier != t {
				continue
			}
			switch {
			case tier.FullyEvolved.Matches(p.TierType):
				row.Evolved++
			case p.TierType == string(tier.PreEvolved):
				row.PreEvolved++
			}
		}
		ov.TierDistribution = append(ov.TierDistribution, row)
	}
	return ov
}

func level(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
