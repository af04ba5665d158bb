package repository

import (
	"context"
	"encoding/json"
	"os"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/internal/domain/query"
)

func TestBuildFilter(t *testing.T) {
	term := func(field, want string) bson.A {
		path := "$" + field
		typ := bson.D{{Key: "$type", Value: path}}
		return bson.A{
			bson.D{{Key: "$ne", Value: bson.A{typ, "missing"}}},
			bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "$not", Value: bson.A{
					bson.D{{Key: "$in", Value: bson.A{typ, bson.A{"string", "int", "long", "bool", "null"}}}},
				}}},
				bson.D{{Key: "$eq", Value: bson.A{
					bson.D{{Key: "$convert", Value: bson.D{
						{Key: "input", Value: path},
						{Key: "to", Value: "string"},
						{Key: "onError", Value: nil},
						{Key: "onNull", Value: "null"},
					}}},
					want,
				}}},
			}}},
		}
	}

	for _, tc := range []struct{ field, want string }{
		{"tier_type", "fully_evolved"},
		{"moves_tm", "Cut"},
	} {
		filter, ok := BuildFilter(map[string]string{tc.field: tc.want})
		if !ok {
			t.Fatalf("expected %s filter to be pushed down", tc.field)
		}
		want := bson.D{{Key: "$expr", Value: bson.D{{Key: "$and", Value: term(tc.field, tc.want)}}}}
		if !reflect.DeepEqual(filter, want) {
			t.Errorf("unexpected filter for %s:\n got %#v\nwant %#v", tc.field, filter, want)
		}
	}

	empty, ok := BuildFilter(nil)
	if !ok || len(empty) != 0 {
		t.Errorf("expected empty filter, got %#v", empty)
	}

	for _, field := range []string{"base_stats.hp", "$where", ""} {
		if _, ok := BuildFilter(map[string]string{field: "x"}); ok {
			t.Errorf("expected field %q to fall back to in-process filtering", field)
		}
	}
}

func TestHasLiteralKeys(t *testing.T) {
	cases := []struct {
		patch entity.Record
		want  bool
	}{
		{entity.Record{"name": "Bulbasaur", "base_stats": map[string]any{"hp.max": 45}}, false},
		{entity.Record{"base_stats.hp": 45}, true},
		{entity.Record{"$inc": 1}, true},
		{entity.Record{"price$": 1}, false},
		{entity.Record{}, false},
	}
	for _, tc := range cases {
		if got := HasLiteralKeys(tc.patch); got != tc.want {
			t.Errorf("HasLiteralKeys(%v) = %v, want %v", tc.patch, got, tc.want)
		}
	}
}

func TestFindOptions(t *testing.T) {
	q := query.New()
	q.Skip, q.Limit = 5, 10
	q.Fields = []string{"name", "id"}

	opts := FindOptions(q)
	if opts.Skip == nil || *opts.Skip != 5 {
		t.Errorf("expected skip 5, got %v", opts.Skip)
	}
	if opts.Limit == nil || *opts.Limit != 10 {
		t.Errorf("expected limit 10, got %v", opts.Limit)
	}
	wantProj := bson.D{{Key: "_id", Value: 0}, {Key: "id", Value: 1}, {Key: "name", Value: 1}}
	if !reflect.DeepEqual(opts.Projection, wantProj) {
		t.Errorf("unexpected projection %#v", opts.Projection)
	}

	none := FindOptions(query.New())
	if none.Limit != nil || none.Skip != nil {
		t.Errorf("expected no skip or limit, got %v %v", none.Skip, none.Limit)
	}
}

func TestBSONConversion(t *testing.T) {
	rec := entity.Record{
		"_id":            "drop me",
		"id":             "1",
		"pokedex_number": json.Number("1"),
		"rank":           json.Number("2.5"),
		"base_stats":     map[string]any{"hp": json.Number("45")},
		"moves_tm":       []any{"Cut", json.Number("7")},
	}
	doc := ToBSON(rec)
	if _, ok := doc["_id"]; ok {
		t.Error("expected _id to be dropped")
	}
	if doc["pokedex_number"] != int64(1) || doc["rank"] != 2.5 {
		t.Errorf("expected json numbers converted, got %#v %#v", doc["pokedex_number"], doc["rank"])
	}
	if stats, ok := doc["base_stats"].(bson.M); !ok || stats["hp"] != int64(45) {
		t.Errorf("expected nested conversion, got %#v", doc["base_stats"])
	}

	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	back := FromBSON(bson.M{
		"_id":     primitive.NewObjectID(),
		"id":      "1",
		"level":   int32(40),
		"when":    primitive.NewDateTimeFromTime(when),
		"nested":  bson.D{{Key: "a", Value: bson.A{int32(1)}}},
		"learned": bson.A{bson.M{"level": int32(7), "move": "Leech Seed"}},
	})
	if _, ok := back["_id"]; ok {
		t.Error("expected _id to be hidden")
	}
	if back["level"] != int64(40) || back["when"] != "2024-01-02T03:04:05Z" {
		t.Errorf("unexpected scalar conversion %#v %#v", back["level"], back["when"])
	}
	nested, _ := back["nested"].(map[string]any)
	if arr, _ := nested["a"].([]any); len(arr) != 1 || arr[0] != int64(1) {
		t.Errorf("unexpected nested conversion %#v", back["nested"])
	}
	learned, _ := back["learned"].([]any)
	if m, _ := learned[0].(map[string]any); m["move"] != "Leech Seed" {
		t.Errorf("unexpected list conversion %#v", back["learned"])
	}
}

// TestMongoStore_Contract runs against a live server when SOLODEX_TEST_MONGO_URI is set.
func TestMongoStore_Contract(t *testing.T) {
	uri := os.Getenv("SOLODEX_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SOLODEX_TEST_MONGO_URI not set")
	}
	runStoreContract(t, func(t *testing.T) Store {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db := "solodex_test_" + primitive.NewObjectID().Hex()
		s, err := NewMongoStore(ctx, uri, db)
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		t.Cleanup(func() {
			_ = s.db.Drop(context.Background())
			_ = s.Close(context.Background())
		})
		return s
	})
}
