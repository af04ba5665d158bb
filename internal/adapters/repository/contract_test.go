package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/internal/domain/query"
)

// runStoreContract exercises the behaviour every backend shares.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("create assigns unique ids", func(t *testing.T) {
		s := newStore(t)
		seen := map[string]bool{}
		for i := range 50 {
			rec, err := s.Create(ctx, entity.Pokemon, entity.Record{"name": fmt.Sprintf("mon-%d", i)})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			id := rec.ID()
			if id == "" {
				t.Fatal("expected an id to be assigned")
			}
			if seen[id] {
				t.Fatalf("duplicate id %q", id)
			}
			seen[id] = true
		}
		list, err := s.List(ctx, entity.Pokemon)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 50 {
			t.Errorf("expected 50 records, got %d", len(list))
		}
	})

	t.Run("create keeps a supplied id and rejects duplicates", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Create(ctx, entity.Move, entity.Record{"id": "tackle", "power": 35}); err != nil {
			t.Fatalf("create: %v", err)
		}
		_, err := s.Create(ctx, entity.Move, entity.Record{"id": "tackle", "power": 40})
		if !errors.Is(err, ErrDuplicateID) {
			t.Fatalf("expected ErrDuplicateID, got %v", err)
		}
		got, err := s.Get(ctx, entity.Move, "tackle")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if query.Stringify(got["power"]) != "35" {
			t.Errorf("expected the first record to survive, got power %v", got["power"])
		}
	})

	t.Run("ids are unique per kind only", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Create(ctx, entity.Pokemon, entity.Record{"id": "1"}); err != nil {
			t.Fatalf("create pokemon: %v", err)
		}
		if _, err := s.Create(ctx, entity.Move, entity.Record{"id": "1"}); err != nil {
			t.Fatalf("create move with same id: %v", err)
		}
	})

	t.Run("mutations are visible to the next read", func(t *testing.T) {
		s := newStore(t)
		a, _ := s.Create(ctx, entity.TierPlacement, entity.Record{"tier": "S", "pokemon_id": "1"})
		b, _ := s.Create(ctx, entity.TierPlacement, entity.Record{"tier": "A", "pokemon_id": "2"})
		c, _ := s.Create(ctx, entity.TierPlacement, entity.Record{"tier": "B", "pokemon_id": "3"})

		if _, err := s.Replace(ctx, entity.TierPlacement, b.ID(), entity.Record{"tier": "S"}); err != nil {
			t.Fatalf("replace: %v", err)
		}
		if err := s.Delete(ctx, entity.TierPlacement, a.ID()); err != nil {
			t.Fatalf("delete: %v", err)
		}

		list, err := s.List(ctx, entity.TierPlacement)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 records, got %d", len(list))
		}
		if list[0].ID() != b.ID() || list[1].ID() != c.ID() {
			t.Errorf("expected insertion order [%s %s], got [%s %s]", b.ID(), c.ID(), list[0].ID(), list[1].ID())
		}
		if list[0]["tier"] != "S" {
			t.Errorf("expected updated tier S, got %v", list[0]["tier"])
		}
		if _, err := s.Get(ctx, entity.TierPlacement, a.ID()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected deleted record to be gone, got %v", err)
		}
	})

	t.Run("replace is a shallow merge that keeps the id", func(t *testing.T) {
		s := newStore(t)
		rec, _ := s.Create(ctx, entity.Pokemon, entity.Record{
			"name": "Bulbasaur", "type_primary": "Grass",
			"base_stats": map[string]any{"hp": 45, "attack": 49},
		})
		got, err := s.Replace(ctx, entity.Pokemon, rec.ID(), entity.Record{
			"id":              "hijack",
			"completion_time": "3:45",
			"base_stats":      map[string]any{"speed": 45},
		})
		if err != nil {
			t.Fatalf("replace: %v", err)
		}
		if got.ID() != rec.ID() {
			t.Errorf("expected id %s to be kept, got %s", rec.ID(), got.ID())
		}
		if got["name"] != "Bulbasaur" || got["type_primary"] != "Grass" || got["completion_time"] != "3:45" {
			t.Errorf("unexpected merge result %v", got)
		}
		stats, _ := got["base_stats"].(map[string]any)
		if len(stats) != 1 || query.Stringify(stats["speed"]) != "45" {
			t.Errorf("expected nested object to be replaced wholesale, got %v", got["base_stats"])
		}
		again, err := s.Get(ctx, entity.Pokemon, rec.ID())
		if err != nil || again["completion_time"] != "3:45" {
			t.Errorf("expected stored record to carry the patch, got %v (%v)", again, err)
		}
	})

	t.Run("missing ids report ErrNotFound", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Get(ctx, entity.User, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("get: expected ErrNotFound, got %v", err)
		}
		if _, err := s.Replace(ctx, entity.User, "nope", entity.Record{"a": 1}); !errors.Is(err, ErrNotFound) {
			t.Errorf("replace: expected ErrNotFound, got %v", err)
		}
		if err := s.Delete(ctx, entity.User, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("delete: expected ErrNotFound, got %v", err)
		}
		if err := s.Delete(ctx, entity.User, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("second delete: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("find matches query apply", func(t *testing.T) {
		s := newStore(t)
		for i, tt := range []string{"fully_evolved", "evolved", "fully_evolved", "overall"} {
			_, err := s.Create(ctx, entity.TierPlacement, entity.Record{
				"id": fmt.Sprintf("p%d", i), "tier_type": tt, "rank_within_tier": json.Number(fmt.Sprint(4 - i)),
			})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
		}
		q, err := query.Parse(url.Values{"q": {`{"tier_type":"fully_evolved"}`}, "sort": {"rank_within_tier"}})
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		got, err := Find(ctx, s, entity.TierPlacement, q)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(got) != 2 || got[0].ID() != "p2" || got[1].ID() != "p0" {
			t.Errorf("expected [p2 p0], got %v", got)
		}
	})

	t.Run("find compares list fields by their joined form", func(t *testing.T) {
		s := newStore(t)
		recs := []entity.Record{
			{"id": "p1", "name": "Bulbasaur", "moves_tm": []any{"Cut"}},
			{"id": "p2", "name": "Ivysaur", "moves_tm": []any{"Cut", "Toxic"}},
			{"id": "p3", "name": "Venusaur", "moves_tm": "Cut"},
			{"id": "p4", "name": "Charmander", "base_stats": map[string]any{"hp": json.Number("39")}},
		}
		for _, r := range recs {
			if _, err := s.Create(ctx, entity.Pokemon, r); err != nil {
				t.Fatalf("create: %v", err)
			}
		}
		all, err := s.List(ctx, entity.Pokemon)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, values := range []url.Values{
			{"moves_tm": {"Cut"}},
			{"moves_tm": {"Cut,Toxic"}},
			{"q": {`{"moves_tm":"Cut"}`}, "sort": {"name"}, "limit": {"1"}},
			{"name": {"Bulbasaur"}, "moves_tm": {"Cut"}},
		} {
			q, _ := query.Parse(values)
			got, err := Find(ctx, s, entity.Pokemon, q)
			if err != nil {
				t.Fatalf("find %v: %v", values, err)
			}
			want := q.Apply(all)
			if len(got) != len(want) {
				t.Fatalf("find %v: got %v, want %v", values, got, want)
			}
			for i := range want {
				if got[i].ID() != want[i].ID() {
					t.Errorf("find %v: got %v, want %v", values, got, want)
				}
			}
		}
		q, _ := query.Parse(url.Values{"moves_tm": {"Cut"}})
		if got, _ := Find(ctx, s, entity.Pokemon, q); len(got) != 2 {
			t.Errorf("expected the one-element list and the plain string to match, got %v", got)
		}
	})

	t.Run("replace stores dotted keys literally", func(t *testing.T) {
		s := newStore(t)
		rec, err := s.Create(ctx, entity.Pokemon, entity.Record{"name": "Pikachu", "base_stats": map[string]any{"hp": json.Number("35")}})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := s.Replace(ctx, entity.Pokemon, rec.ID(), entity.Record{"base_stats.hp": "max", "id": "other"})
		if err != nil {
			t.Fatalf("replace: %v", err)
		}
		if got.ID() != rec.ID() || got["base_stats.hp"] != "max" {
			t.Errorf("expected literal key and kept id, got %v", got)
		}
		stats, _ := got["base_stats"].(map[string]any)
		if len(stats) != 1 || query.Stringify(stats["hp"]) != "35" {
			t.Errorf("expected nested object untouched, got %v", got["base_stats"])
		}
		again, err := s.Get(ctx, entity.Pokemon, rec.ID())
		if err != nil || again["base_stats.hp"] != "max" || again["name"] != "Pikachu" {
			t.Errorf("expected stored record to carry the literal key, got %v (%v)", again, err)
		}
	})

	t.Run("returned records are copies", func(t *testing.T) {
		s := newStore(t)
		rec, _ := s.Create(ctx, entity.RulesContent, entity.Record{"title": "Rules"})
		rec["title"] = "mutated"
		list, _ := s.List(ctx, entity.RulesContent)
		list[0]["title"] = "mutated again"
		got, _ := s.Get(ctx, entity.RulesContent, rec.ID())
		if got["title"] != "Rules" {
			t.Errorf("expected stored title to be unchanged, got %v", got["title"])
		}
	})

	t.Run("upsert replaces by id and appends new ids", func(t *testing.T) {
		s := newStore(t)
		u, ok := s.(Upserter)
		if !ok {
			t.Skip("store does not upsert")
		}
		_, _ = s.Create(ctx, entity.User, entity.Record{"id": "u1", "email": "a@x", "role": "viewer"})
		n, err := u.Upsert(ctx, entity.User, []entity.Record{
			{"id": "u1", "email": "a@x", "role": "admin"},
			{"id": "u2", "email": "b@x", "role": "viewer"},
			{"email": "no-id@x"},
		})
		if err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 upserted, got %d", n)
		}
		list, _ := s.List(ctx, entity.User)
		if len(list) != 2 || list[0]["role"] != "admin" || list[1].ID() != "u2" {
			t.Errorf("unexpected collection after upsert: %v", list)
		}
	})
}
