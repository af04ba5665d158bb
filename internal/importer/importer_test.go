package importer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/solodex/internal/adapters/http/api"
	"github.com/okian/solodex/internal/adapters/repository"
	service "github.com/okian/solodex/internal/app"
	"github.com/okian/solodex/internal/client"
	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/internal/importer"
)

func newTestClient(t *testing.T) *client.Client {
	t.Helper()
	store, err := repository.NewFileStore(t.TempDir())
	So(err, ShouldBeNil)
	srv := httptest.NewServer(api.NewServer(service.New(store)).Router())
	t.Cleanup(srv.Close)
	c, err := client.New(srv.URL, client.WithHTTPClient(srv.Client()))
	So(err, ShouldBeNil)
	return c
}

func TestParse(t *testing.T) {
	Convey("Given an upload body", t, func() {
		Convey("When it is an array with a non-object row", func() {
			rows, err := importer.Parse([]byte(`[{"pokemon_id":"a","moves_used":["Surf"]}, 7]`))

			Convey("Then objects decode and the stray row is nil", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				So(rows[0]["pokemon_id"], ShouldEqual, "a")
				So(rows[1], ShouldBeNil)
			})
		})

		Convey("When it is a single object", func() {
			_, err := importer.Parse([]byte(`{"pokemon_id":"a"}`))
			So(errors.Is(err, importer.ErrNotArray), ShouldBeTrue)
		})

		Convey("When it is not JSON", func() {
			_, err := importer.Parse([]byte(`[{`))
			So(errors.Is(err, importer.ErrInvalidJSON), ShouldBeTrue)
		})
	})
}

func TestMovesUsed(t *testing.T) {
	Convey("Given run statistics for two pokemon", t, func() {
		ctx := context.Background()
		c := newTestClient(t)
		stats := c.Entity(entity.RunStatistics)

		_, err := stats.Create(ctx, entity.Record{"pokemon_id": "p1", "moves_used": []string{"Tackle"}})
		So(err, ShouldBeNil)
		_, err = stats.Create(ctx, entity.Record{"pokemon_id": "p2"})
		So(err, ShouldBeNil)

		Convey("When a mixed upload is applied", func() {
			rows, err := importer.Parse([]byte(`[
				{"pokemon_id": "p1", "moves_used": ["Thunder", " ", "Psychic"]},
				{"pokemon_id": "p2", "moves_used": "Surf, Ice Beam ,Thunderbolt"},
				{"moves_used": ["Cut"]},
				{"pokemon_id": "p3", "moves_used": ["Fly"]},
				{"pokemon_id": "p1"},
				{"pokemon_id": "p2", "moves_used": " , "},
				{"pokemon_id": "p2", "moves_used": 12}
			]`))
			So(err, ShouldBeNil)
			results := importer.FromClient(c, importer.WithConcurrency(2)).MovesUsed(ctx, rows)

			Convey("Then every row is reported in input order", func() {
				So(results, ShouldResemble, []importer.Result{
					{Key: "p1", Status: importer.StatusSuccess, Message: "Updated with 2 moves"},
					{Key: "p2", Status: importer.StatusSuccess, Message: "Updated with 3 moves"},
					{Key: "Row 3", Status: importer.StatusError, Message: "Missing pokemon_id"},
					{Key: "p3", Status: importer.StatusWarning, Message: "No RunStatistics record found for this Pokemon"},
					{Key: "p1", Status: importer.StatusError, Message: "Missing moves_used"},
					{Key: "p2", Status: importer.StatusError, Message: "No valid moves found"},
					{Key: "p2", Status: importer.StatusError, Message: "Error: moves_used must be an array or comma-separated string"},
				})
			})

			Convey("Then the comma string is split and trimmed", func() {
				got, err := stats.Filter(ctx, map[string]any{"pokemon_id": "p2"}, client.ListOptions{})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0]["moves_used"], ShouldResemble, []any{"Surf", "Ice Beam", "Thunderbolt"})
			})

			Convey("Then Summarize counts each status", func() {
				counts := importer.Summarize(results)
				So(counts[importer.StatusSuccess], ShouldEqual, 2)
				So(counts[importer.StatusWarning], ShouldEqual, 1)
				So(counts[importer.StatusError], ShouldEqual, 4)
			})
		})
	})
}

func TestLearnsets(t *testing.T) {
	Convey("Given two pokemon", t, func() {
		ctx := context.Background()
		c := newTestClient(t)
		pokemon := c.Entity(entity.Pokemon)

		pika, err := pokemon.Create(ctx, entity.Record{"name": "Pikachu"})
		So(err, ShouldBeNil)
		_, err = pokemon.Create(ctx, entity.Record{"name": "Mew"})
		So(err, ShouldBeNil)

		Convey("When learnsets are uploaded", func() {
			rows, err := importer.Parse([]byte(`[
				{"name": "PIKACHU", "level_up_moves": [{"level": 1, "move": "Thundershock"}, {"level": "9", "move": "Thunder Wave"}], "tm_moves": ["Mega Punch"]},
				{"name": "Mew"},
				{"name": "Missingno", "tm_moves": []},
				{"tm_moves": ["Cut"]}
			]`))
			So(err, ShouldBeNil)
			results := importer.FromClient(c).Learnsets(ctx, rows)

			Convey("Then each row gets its outcome", func() {
				So(results, ShouldResemble, []importer.Result{
					{Key: "PIKACHU", Status: importer.StatusSuccess, Message: "Updated with 2 level-up, 1 TM moves"},
					{Key: "Mew", Status: importer.StatusWarning, Message: "No moves data to update"},
					{Key: "Missingno", Status: importer.StatusError, Message: "Pokemon not found in database"},
					{Key: "Row 4", Status: importer.StatusError, Message: "Missing name field"},
				})
			})

			Convey("Then the matched pokemon carries both lists", func() {
				got, err := pokemon.Get(ctx, pika.ID())
				So(err, ShouldBeNil)
				levelUp, ok := got["moves_level_up"].([]any)
				So(ok, ShouldBeTrue)
				So(levelUp, ShouldHaveLength, 2)
				second, ok := levelUp[1].(map[string]any)
				So(ok, ShouldBeTrue)
				So(second["move"], ShouldEqual, "Thunder Wave")
				So(second["level"], ShouldEqual, json.Number("9"))
				So(got["moves_tm"], ShouldResemble, []any{"Mega Punch"})
			})
		})
	})
}

type brokenEntities struct{}

func (brokenEntities) List(context.Context, client.ListOptions) ([]entity.Record, error) {
	return nil, errors.New("server down")
}

func (brokenEntities) Filter(context.Context, map[string]any, client.ListOptions) ([]entity.Record, error) {
	return nil, errors.New("server down")
}

func (brokenEntities) Update(context.Context, string, entity.Record) (entity.Record, error) {
	return nil, errors.New("server down")
}

func TestImporterReportsBackendErrorsPerRow(t *testing.T) {
	Convey("Given a backend that always fails", t, func() {
		ctx := context.Background()
		im := importer.New(brokenEntities{}, brokenEntities{})

		Convey("When moves are imported", func() {
			moves := im.MovesUsed(ctx, []map[string]any{{"pokemon_id": "p1", "moves_used": "Surf"}})

			Convey("Then the row carries the error", func() {
				So(moves, ShouldHaveLength, 1)
				So(moves[0].Status, ShouldEqual, importer.StatusError)
				So(moves[0].Message, ShouldEqual, "Error: server down")
			})
		})

		Convey("When learnsets are imported", func() {
			learn := im.Learnsets(ctx, []map[string]any{{"name": "Mew"}, {}})

			Convey("Then every row fails with its own key", func() {
				So(learn, ShouldHaveLength, 2)
				So(learn[0].Key, ShouldEqual, "Mew")
				So(learn[1].Key, ShouldEqual, "Row 2")
				So(learn[1].Status, ShouldEqual, importer.StatusError)
			})
		})
	})
}

// slowStats serves one RunStatistics per pokemon_id and records the order
// updates land in. Updates carrying "Slow" take longer than the rest.
type slowStats struct {
	mu      sync.Mutex
	applied map[string][]string
}

func (s *slowStats) List(context.Context, client.ListOptions) ([]entity.Record, error) {
	return nil, nil
}

func (s *slowStats) Filter(_ context.Context, filter map[string]any, _ client.ListOptions) ([]entity.Record, error) {
	return []entity.Record{{"id": "stats-" + filter["pokemon_id"].(string)}}, nil
}

func (s *slowStats) Update(_ context.Context, id string, data entity.Record) (entity.Record, error) {
	moves := strings.Join(data["moves_used"].([]string), ",")
	if strings.Contains(moves, "Slow") {
		time.Sleep(50 * time.Millisecond)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied[id] = append(s.applied[id], moves)
	return data, nil
}

func TestRowsForTheSameRecordApplyInOrder(t *testing.T) {
	Convey("Given several rows for the same pokemon", t, func() {
		stats := &slowStats{applied: map[string][]string{}}
		im := importer.New(stats, stats, importer.WithConcurrency(4))

		results := im.MovesUsed(context.Background(), []map[string]any{
			{"pokemon_id": "p1", "moves_used": "Slow"},
			{"pokemon_id": "p2", "moves_used": "Surf"},
			{"pokemon_id": "p1", "moves_used": "Fast"},
			{"pokemon_id": "p1", "moves_used": "Last"},
		})

		Convey("Then they land in input order and the last row wins", func() {
			So(importer.Summarize(results)[importer.StatusSuccess], ShouldEqual, 4)
			So(stats.applied["stats-p1"], ShouldResemble, []string{"Slow", "Fast", "Last"})
			So(stats.applied["stats-p2"], ShouldResemble, []string{"Surf"})
		})
	})
}
