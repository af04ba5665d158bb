package client

import (
	"context"
	"fmt"

	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/internal/domain/tier"
)

// TierBoard edits tier lists through the entity API. It expands the legacy
// "evolved" tier_type when reading the fully evolved view and keeps every
// bucket it touches densely ranked from 1.
type TierBoard struct {
	placements *EntityHandler
}

// TierBoard returns a board over the TierPlacement kind.
func (c *Client) TierBoard() *TierBoard {
	return &TierBoard{placements: c.Entity(entity.TierPlacement)}
}

// View returns every placement of one tier_type view.
func (b *TierBoard) View(ctx context.Context, t tier.Type) ([]tier.Placement, error) {
	var all []entity.Record
	for _, stored := range t.StoredValues() {
		recs, err := b.placements.Filter(ctx, map[string]any{tier.FieldTierType: stored}, ListOptions{})
		if err != nil {
			return nil, fmt.Errorf("load %s view: %w", t, err)
		}
		all = append(all, recs...)
	}
	return tier.FromRecords(all), nil
}

// Bucket returns one (view, tier) bucket ordered by rank.
func (b *TierBoard) Bucket(ctx context.Context, t tier.Type, tr tier.Tier) ([]tier.Placement, error) {
	all, err := b.View(ctx, t)
	if err != nil {
		return nil, err
	}
	return tier.Bucket(all, t, tr), nil
}

// Add appends pokemonID to the end of a bucket.
func (b *TierBoard) Add(ctx context.Context, t tier.Type, tr tier.Tier, pokemonID string) (tier.Placement, error) {
	all, err := b.View(ctx, t)
	if err != nil {
		return tier.Placement{}, err
	}
	if p, ok := tier.Find(all, t, pokemonID); ok {
		return tier.Placement{}, fmt.Errorf("%w: %s in %s/%s", ErrAlreadyPlaced, pokemonID, t, p.Tier)
	}
	p := tier.Placement{
		PokemonID: pokemonID,
		TierType:  string(t),
		Tier:      tr,
		Rank:      tier.NextRank(tier.Bucket(all, t, tr)),
	}
	rec, err := b.placements.Create(ctx, p.Record())
	if err != nil {
		return tier.Placement{}, fmt.Errorf("add %s: %w", pokemonID, err)
	}
	return tier.FromRecord(rec), nil
}

// Remove deletes a placement and closes the gap it leaves.
func (b *TierBoard) Remove(ctx context.Context, placementID string) error {
	p, t, err := b.lookup(ctx, placementID)
	if err != nil {
		return err
	}
	bucket, err := b.Bucket(ctx, t, p.Tier)
	if err != nil {
		return err
	}
	updates, err := tier.PlanRemove(bucket, placementID)
	if err != nil {
		return err
	}
	if err := b.placements.Delete(ctx, placementID); err != nil {
		return fmt.Errorf("remove %s: %w", placementID, err)
	}
	return b.apply(ctx, updates)
}

// Reorder moves the placement at index from to index to inside one bucket.
func (b *TierBoard) Reorder(ctx context.Context, t tier.Type, tr tier.Tier, from, to int) error {
	bucket, err := b.Bucket(ctx, t, tr)
	if err != nil {
		return err
	}
	updates, err := tier.PlanReorder(bucket, from, to)
	if err != nil {
		return err
	}
	return b.apply(ctx, updates)
}

// Move puts a placement into destTier at destIndex within the same view.
// Moving inside its own tier is a reorder.
func (b *TierBoard) Move(ctx context.Context, placementID string, destTier tier.Tier, destIndex int) error {
	p, t, err := b.lookup(ctx, placementID)
	if err != nil {
		return err
	}
	all, err := b.View(ctx, t)
	if err != nil {
		return err
	}
	source := tier.Bucket(all, t, p.Tier)

	if p.Tier == destTier {
		from := -1
		for i, q := range source {
			if q.ID == placementID {
				from = i
			}
		}
		to := min(max(destIndex, 0), len(source)-1)
		updates, err := tier.PlanReorder(source, from, to)
		if err != nil {
			return err
		}
		return b.apply(ctx, updates)
	}

	plan, err := tier.PlanMove(source, tier.Bucket(all, t, destTier), placementID, destTier, destIndex)
	if err != nil {
		return err
	}
	if _, err := b.placements.Patch(ctx, plan.ID, entity.Record{
		tier.FieldTier: string(plan.Tier),
		tier.FieldRank: plan.Rank,
	}); err != nil {
		return fmt.Errorf("move %s: %w", placementID, err)
	}
	if err := b.apply(ctx, plan.Source); err != nil {
		return err
	}
	return b.apply(ctx, plan.Dest)
}

func (b *TierBoard) lookup(ctx context.Context, placementID string) (tier.Placement, tier.Type, error) {
	rec, err := b.placements.Get(ctx, placementID)
	if err != nil {
		return tier.Placement{}, "", fmt.Errorf("load placement %s: %w", placementID, err)
	}
	p := tier.FromRecord(rec)
	t, err := tier.ParseType(p.TierType)
	if err != nil {
		return tier.Placement{}, "", err
	}
	return p, t, nil
}

func (b *TierBoard) apply(ctx context.Context, updates []tier.RankUpdate) error {
	for _, u := range updates {
		if _, err := b.placements.Patch(ctx, u.ID, entity.Record{tier.FieldRank: u.Rank}); err != nil {
			return fmt.Errorf("rank %s: %w", u.ID, err)
		}
	}
	return nil
}
