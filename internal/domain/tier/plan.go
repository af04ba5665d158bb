package tier

import "fmt"

// RankUpdate assigns a new rank_within_tier to one placement.
type RankUpdate struct {
	ID   string
	Rank int
}

// MovePlan describes moving one placement into another tier of the same view.
type MovePlan struct {
	ID     string
	Tier   Tier
	Rank   int
	Source []RankUpdate // re-sequenced source bucket, moved placement excluded
	Dest   []RankUpdate // re-sequenced destination bucket, moved placement excluded
}

// Resequence numbers bucket 1..N in its current order and returns the
// updates for placements whose rank changes.
func Resequence(bucket []Placement) []RankUpdate {
	var out []RankUpdate
	for i, p := range bucket {
		if p.Rank != i+1 {
			out = append(out, RankUpdate{ID: p.ID, Rank: i + 1})
		}
	}
	return out
}

// NextRank is the rank appended placements receive.
func NextRank(bucket []Placement) int {
	highest := 0
	for _, p := range bucket {
		highest = max(highest, p.Rank)
	}
	return highest + 1
}

// PlanRemove re-sequences bucket without the placement id.
func PlanRemove(bucket []Placement, id string) ([]RankUpdate, error) {
	i := indexOf(bucket, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotInBucket, id)
	}
	return Resequence(without(bucket, i)), nil
}

// PlanReorder moves the placement at index from to index to within bucket.
func PlanReorder(bucket []Placement, from, to int) ([]RankUpdate, error) {
	if from < 0 || from >= len(bucket) || to < 0 || to >= len(bucket) {
		return nil, fmt.Errorf("%w: %d -> %d of %d", ErrIndex, from, to, len(bucket))
	}
	items := without(bucket, from)
	items = insertAt(items, to, bucket[from])
	return Resequence(items), nil
}

// PlanMove moves placement id out of source and into dest at destIndex.
// destIndex past the end appends.
func PlanMove(source, dest []Placement, id string, destTier Tier, destIndex int) (MovePlan, error) {
	i := indexOf(source, id)
	if i < 0 {
		return MovePlan{}, fmt.Errorf("%w: %s", ErrNotInBucket, id)
	}
	if destIndex < 0 {
		return MovePlan{}, fmt.Errorf("%w: %d", ErrIndex, destIndex)
	}
	destIndex = min(destIndex, len(dest))

	moved := source[i]
	plan := MovePlan{
		ID:     id,
		Tier:   destTier,
		Rank:   destIndex + 1,
		Source: Resequence(without(source, i)),
	}
	for _, u := range Resequence(insertAt(dest, destIndex, moved)) {
		if u.ID != id {
			plan.Dest = append(plan.Dest, u)
		}
	}
	return plan, nil
}

// ApplyRanks returns a copy of bucket with updates applied, for previews.
func ApplyRanks(bucket []Placement, updates []RankUpdate) []Placement {
	ranks := make(map[string]int, len(updates))
	for _, u := range updates {
		ranks[u.ID] = u.Rank
	}
	out := make([]Placement, len(bucket))
	for i, p := range bucket {
		if r, ok := ranks[p.ID]; ok {
			p.Rank = r
		}
		out[i] = p
	}
	return out
}

func indexOf(bucket []Placement, id string) int {
	for i, p := range bucket {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func without(bucket []Placement, i int) []Placement {
	out := make([]Placement, 0, len(bucket)-1)
	out = append(out, bucket[:i]...)
	return append(out, bucket[i+1:]...)
}

func insertAt(bucket []Placement, i int, p Placement) []Placement {
	out := make([]Placement, 0, len(bucket)+1)
	out = append(out, bucket[:i]...)
	out = append(out, p)
	return append(out, bucket[i:]...)
}
