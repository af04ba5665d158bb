package client_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/solodex/internal/client"
	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/internal/domain/tier"
)

func pokemonIDs(bucket []tier.Placement) []string {
	out := make([]string, len(bucket))
	for i, p := range bucket {
		out[i] = p.PokemonID
	}
	return out
}

func TestTierBoard_AddRemove(t *testing.T) {
	Convey("Given four pokemon placed in overall S", t, func() {
		ctx := context.Background()
		board := newTestClient(t).TierBoard()

		var placed []tier.Placement
		for _, id := range []string{"p1", "p2", "p3", "p4"} {
			p, err := board.Add(ctx, tier.Overall, tier.S, id)
			So(err, ShouldBeNil)
			placed = append(placed, p)
		}
		So(placed[3].Rank, ShouldEqual, 4)

		Convey("When one of them is placed again in the same view", func() {
			_, err := board.Add(ctx, tier.Overall, tier.A, "p2")
			So(errors.Is(err, client.ErrAlreadyPlaced), ShouldBeTrue)
		})

		Convey("When the second is removed", func() {
			So(board.Remove(ctx, placed[1].ID), ShouldBeNil)

			Convey("Then the rest close the gap", func() {
				bucket, err := board.Bucket(ctx, tier.Overall, tier.S)
				So(err, ShouldBeNil)
				So(pokemonIDs(bucket), ShouldResemble, []string{"p1", "p3", "p4"})
				So(tier.IsDense(bucket), ShouldBeTrue)
			})
		})
	})
}

func TestTierBoard_ReorderAndMove(t *testing.T) {
	Convey("Given three pokemon in B and one in C", t, func() {
		ctx := context.Background()
		board := newTestClient(t).TierBoard()

		ids := map[string]string{}
		for _, id := range []string{"a", "b", "c"} {
			p, err := board.Add(ctx, tier.PreEvolved, tier.B, id)
			So(err, ShouldBeNil)
			ids[id] = p.ID
		}
		_, err := board.Add(ctx, tier.PreEvolved, tier.C, "z")
		So(err, ShouldBeNil)

		Convey("When the last is moved to the front", func() {
			So(board.Reorder(ctx, tier.PreEvolved, tier.B, 2, 0), ShouldBeNil)

			Convey("Then the bucket is re-ranked densely", func() {
				bucket, err := board.Bucket(ctx, tier.PreEvolved, tier.B)
				So(err, ShouldBeNil)
				So(pokemonIDs(bucket), ShouldResemble, []string{"c", "a", "b"})
				So(tier.IsDense(bucket), ShouldBeTrue)
			})
		})

		Convey("When reordering past the end", func() {
			So(board.Reorder(ctx, tier.PreEvolved, tier.B, 0, 9), ShouldNotBeNil)
		})

		Convey("When one moves to the front of another tier", func() {
			So(board.Move(ctx, ids["a"], tier.C, 0), ShouldBeNil)

			Convey("Then both buckets stay dense", func() {
				source, err := board.Bucket(ctx, tier.PreEvolved, tier.B)
				So(err, ShouldBeNil)
				dest, err := board.Bucket(ctx, tier.PreEvolved, tier.C)
				So(err, ShouldBeNil)
				So(pokemonIDs(source), ShouldResemble, []string{"b", "c"})
				So(pokemonIDs(dest), ShouldResemble, []string{"a", "z"})
				So(tier.IsDense(source), ShouldBeTrue)
				So(tier.IsDense(dest), ShouldBeTrue)
			})

			Convey("And is moved within that tier past the end", func() {
				So(board.Move(ctx, ids["a"], tier.C, 5), ShouldBeNil)
				dest, err := board.Bucket(ctx, tier.PreEvolved, tier.C)
				So(err, ShouldBeNil)
				So(pokemonIDs(dest), ShouldResemble, []string{"z", "a"})
			})
		})
	})
}

func TestTierBoard_ExpandsLegacyAlias(t *testing.T) {
	Convey("Given placements under the legacy and current fully evolved names", t, func() {
		ctx := context.Background()
		c := newTestClient(t)
		placements := c.Entity(entity.TierPlacement)

		_, err := placements.Create(ctx, entity.Record{"pokemon_id": "old", "tier_type": "evolved", "tier": "A", "rank_within_tier": 1})
		So(err, ShouldBeNil)
		_, err = placements.Create(ctx, entity.Record{"pokemon_id": "new", "tier_type": "fully_evolved", "tier": "A", "rank_within_tier": 2})
		So(err, ShouldBeNil)
		board := c.TierBoard()

		Convey("Then the board shows both while the server matches exactly", func() {
			bucket, err := board.Bucket(ctx, tier.FullyEvolved, tier.A)
			So(err, ShouldBeNil)
			So(pokemonIDs(bucket), ShouldResemble, []string{"old", "new"})

			exact, err := placements.Filter(ctx, map[string]any{"tier_type": "fully_evolved"}, client.ListOptions{})
			So(err, ShouldBeNil)
			So(exact, ShouldHaveLength, 1)
		})

		Convey("When the legacy placement is removed", func() {
			bucket, err := board.Bucket(ctx, tier.FullyEvolved, tier.A)
			So(err, ShouldBeNil)
			So(board.Remove(ctx, bucket[0].ID), ShouldBeNil)

			Convey("Then the survivor is ranked first", func() {
				bucket, err := board.Bucket(ctx, tier.FullyEvolved, tier.A)
				So(err, ShouldBeNil)
				So(bucket, ShouldHaveLength, 1)
				So(bucket[0].Rank, ShouldEqual, 1)
			})
		})
	})
}
