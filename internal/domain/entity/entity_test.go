package entity_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/okian/solodex/internal/domain/entity"
	"github.com/smartystreets/goconvey/convey"
)

func TestParseKind(t *testing.T) {
	convey.Convey("Given entity kind names", t, func() {
		convey.Convey("When parsing each known kind", func() {
			convey.Convey("Then every one resolves", func() {
				for _, k := range entity.Kinds() {
					got, err := entity.ParseKind(string(k))
					convey.So(err, convey.ShouldBeNil)
					convey.So(got, convey.ShouldEqual, k)
					convey.So(got.Describe().File, convey.ShouldEqual, string(k)+".json")
				}
			})
		})

		convey.Convey("When parsing an unknown or differently cased name", func() {
			_, err1 := entity.ParseKind("Trainer")
			_, err2 := entity.ParseKind("pokemon")

			convey.Convey("Then ErrUnknownKind is returned", func() {
				convey.So(errors.Is(err1, entity.ErrUnknownKind), convey.ShouldBeTrue)
				convey.So(errors.Is(err2, entity.ErrUnknownKind), convey.ShouldBeTrue)
				convey.So(entity.Kind("Trainer").Valid(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("Then collections follow the pluralised model names", func() {
			convey.So(entity.Pokemon.Describe().Collection, convey.ShouldEqual, "pokemons")
			convey.So(entity.RunStatistics.Describe().Collection, convey.ShouldEqual, "runstatistics")
			convey.So(entity.User.Describe().Unique, convey.ShouldResemble, []string{"email"})
		})
	})
}

func TestMerge(t *testing.T) {
	convey.Convey("Given a stored record", t, func() {
		base := entity.Record{"a": 1, "b": 2, "stats": map[string]any{"hp": 45, "atk": 49}}

		convey.Convey("When merging a patch with a new field", func() {
			out := entity.Merge(base, entity.Record{"f": "v"})

			convey.Convey("Then no field is dropped", func() {
				convey.So(out, convey.ShouldResemble, entity.Record{
					"a": 1, "b": 2, "f": "v", "stats": map[string]any{"hp": 45, "atk": 49},
				})
			})
		})

		convey.Convey("When the patch overwrites a top-level key", func() {
			out := entity.Merge(base, entity.Record{"b": 3})

			convey.Convey("Then the patch wins", func() {
				convey.So(out["b"], convey.ShouldEqual, 3)
				convey.So(out["a"], convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the patch carries a nested object", func() {
			out := entity.Merge(base, entity.Record{"stats": map[string]any{"spd": 45}})

			convey.Convey("Then the nested object is replaced wholesale", func() {
				convey.So(out["stats"], convey.ShouldResemble, map[string]any{"spd": 45})
			})
		})

		convey.Convey("When merging", func() {
			_ = entity.Merge(base, entity.Record{"a": 9, "z": true})

			convey.Convey("Then the inputs are left untouched", func() {
				convey.So(base["a"], convey.ShouldEqual, 1)
				_, ok := base["z"]
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When merging an empty patch", func() {
			out := entity.Merge(base, nil)

			convey.Convey("Then the result equals the base", func() {
				convey.So(out, convey.ShouldResemble, base)
			})
		})
	})
}

func TestRecordHelpers(t *testing.T) {
	convey.Convey("Given record ids of various shapes", t, func() {
		convey.So(entity.Record{"id": "abc"}.ID(), convey.ShouldEqual, "abc")
		convey.So(entity.Record{"id": json.Number("1700000000000")}.ID(), convey.ShouldEqual, "1700000000000")
		convey.So(entity.Record{"id": float64(42)}.ID(), convey.ShouldEqual, "42")
		convey.So(entity.Record{}.ID(), convey.ShouldEqual, "")
	})

	convey.Convey("Given a clone", t, func() {
		r := entity.Record{"id": "1", "name": "Bulbasaur"}
		c := r.Clone()
		c["name"] = "Ivysaur"

		convey.So(r["name"], convey.ShouldEqual, "Bulbasaur")
	})

	convey.Convey("Given timestamp stamping", t, func() {
		now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		r := entity.Record{"created_date": "2020-01-01T00:00:00Z"}
		entity.StampCreated(r, now)

		convey.So(r["created_date"], convey.ShouldEqual, "2020-01-01T00:00:00Z")
		convey.So(r["updated_date"], convey.ShouldEqual, "2024-03-01T12:00:00Z")

		entity.StampUpdated(r, now.Add(time.Hour))
		convey.So(r["updated_date"], convey.ShouldEqual, "2024-03-01T13:00:00Z")
	})
}

func TestUniqueID(t *testing.T) {
	convey.Convey("Given an id generator", t, func() {
		convey.Convey("When many ids are generated", func() {
			seen := map[string]bool{}
			for range 500 {
				id, err := entity.UniqueID(nil, func(id string) (bool, error) { return seen[id], nil })
				convey.So(err, convey.ShouldBeNil)
				seen[id] = true
			}

			convey.Convey("Then none repeat", func() {
				convey.So(len(seen), convey.ShouldEqual, 500)
			})
		})

		convey.Convey("When every candidate is taken", func() {
			_, err := entity.UniqueID(nil, func(string) (bool, error) { return true, nil })

			convey.Convey("Then generation gives up with an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the lookup fails", func() {
			boom := errors.New("boom")
			_, err := entity.UniqueID(nil, func(string) (bool, error) { return false, boom })

			convey.Convey("Then the lookup error is returned", func() {
				convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
			})
		})
	})
}

func TestRecordAccessors(t *testing.T) {
	convey.Convey("Given a record with mixed numeric encodings", t, func() {
		r := entity.Record{
			"a": json.Number("3"), "b": float64(4), "c": "5", "d": 6,
			"e": json.Number("2.5"), "f": "x", "name": "Mew",
		}

		for key, want := range map[string]int{"a": 3, "b": 4, "c": 5, "d": 6} {
			got, ok := r.IntField(key)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(got, convey.ShouldEqual, want)
		}
		_, ok := r.IntField("e")
		convey.So(ok, convey.ShouldBeFalse)
		_, ok = r.IntField("f")
		convey.So(ok, convey.ShouldBeFalse)
		_, ok = r.IntField("missing")
		convey.So(ok, convey.ShouldBeFalse)

		convey.So(r.StringField("name"), convey.ShouldEqual, "Mew")
		convey.So(r.StringField("a"), convey.ShouldEqual, "")
	})
}
