// Package importer applies bulk JSON uploads row by row. A bad row is
// reported and skipped; it never stops the batch.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/okian/solodex/internal/client"
	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/internal/domain/runstats"
	"github.com/okian/solodex/pkg/logger"
	"github.com/okian/solodex/pkg/metrics"
)

// Status is the outcome of one row.
type Status string

// Row outcomes.
const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Flow names used in metrics.
const (
	FlowMovesUsed = "moves_used"
	FlowLearnsets = "learnsets"
)

const defaultConcurrency = 4

// Result reports one row. Key is the row's pokemon_id or name, or
// "Row N" when the row has neither.
type Result struct {
	Key     string `json:"key"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Entities is the slice of the entity API the importer needs.
type Entities interface {
	List(ctx context.Context, opts client.ListOptions) ([]entity.Record, error)
	Filter(ctx context.Context, filter map[string]any, opts client.ListOptions) ([]entity.Record, error)
	Update(ctx context.Context, id string, data entity.Record) (entity.Record, error)
}

// Importer runs the bulk flows.
type Importer struct {
	stats       Entities
	pokemon     Entities
	concurrency int
	log         logger.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithConcurrency bounds how many rows are in flight.
func WithConcurrency(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.concurrency = n
		}
	}
}

// WithLogger sets a custom logger for the importer.
func WithLogger(l logger.Logger) Option {
	return func(im *Importer) {
		if l != nil {
			im.log = l
		}
	}
}

// New returns an importer over the RunStatistics and Pokemon kinds.
func New(stats, pokemon Entities, opts ...Option) *Importer {
	im := &Importer{
		stats:       stats,
		pokemon:     pokemon,
		concurrency: defaultConcurrency,
		log:         logger.NamedOrNop("importer"),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// FromClient wires an importer to a server.
func FromClient(c *client.Client, opts ...Option) *Importer {
	return New(c.Entity(entity.RunStatistics), c.Entity(entity.Pokemon), opts...)
}

// Parse decodes an upload, which must be a JSON array of objects.
func Parse(raw []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, ErrNotArray
	}
	rows := make([]map[string]any, len(items))
	for i, it := range items {
		// non-object rows become empty and fail validation
		rows[i], _ = it.(map[string]any)
	}
	return rows, nil
}

// MovesUsed sets moves_used on the first RunStatistics of each row's
// pokemon_id. moves_used may be an array or a comma separated string.
func (im *Importer) MovesUsed(ctx context.Context, rows []map[string]any) []Result {
	return im.run(ctx, FlowMovesUsed, rows, pokemonIDKey, im.movesUsedRow)
}

func (im *Importer) movesUsedRow(ctx context.Context, i int, row map[string]any) Result {
	pokemonID := text(row[runstats.FieldPokemonID])
	if pokemonID == "" {
		return Result{Key: rowKey(i), Status: StatusError, Message: "Missing pokemon_id"}
	}
	raw, ok := row[runstats.FieldMovesUsed]
	if !ok || raw == nil || raw == "" {
		return Result{Key: pokemonID, Status: StatusError, Message: "Missing moves_used"}
	}
	moves, err := moveList(raw)
	if err != nil {
		return Result{Key: pokemonID, Status: StatusError, Message: "Error: " + err.Error()}
	}
	if len(moves) == 0 {
		return Result{Key: pokemonID, Status: StatusError, Message: "No valid moves found"}
	}

	existing, err := im.stats.Filter(ctx, map[string]any{runstats.FieldPokemonID: pokemonID}, client.ListOptions{})
	if err != nil {
		return Result{Key: pokemonID, Status: StatusError, Message: "Error: " + err.Error()}
	}
	if len(existing) == 0 {
		return Result{Key: pokemonID, Status: StatusWarning, Message: "No RunStatistics record found for this Pokemon"}
	}
	if _, err := im.stats.Update(ctx, existing[0].ID(), entity.Record{runstats.FieldMovesUsed: moves}); err != nil {
		return Result{Key: pokemonID, Status: StatusError, Message: "Error: " + err.Error()}
	}
	return Result{Key: pokemonID, Status: StatusSuccess, Message: fmt.Sprintf("Updated with %d moves", len(moves))}
}

// LevelMove is one level-up learnset entry.
type LevelMove struct {
	Level int    `json:"level"`
	Move  string `json:"move"`
}

// Learnsets sets moves_level_up and moves_tm on the Pokemon whose name
// matches each row, ignoring case.
func (im *Importer) Learnsets(ctx context.Context, rows []map[string]any) []Result {
	all, err := im.pokemon.List(ctx, client.ListOptions{})
	if err != nil {
		out := make([]Result, len(rows))
		for i, row := range rows {
			key := text(row["name"])
			if key == "" {
				key = rowKey(i)
			}
			out[i] = Result{Key: key, Status: StatusError, Message: "Error: " + err.Error()}
			metrics.RecordImportRow(FlowLearnsets, string(StatusError))
		}
		return out
	}
	byName := make(map[string]entity.Record, len(all))
	for _, p := range all {
		name := strings.ToLower(p.StringField("name"))
		if _, dup := byName[name]; !dup {
			byName[name] = p
		}
	}

	return im.run(ctx, FlowLearnsets, rows, nameKey, func(ctx context.Context, i int, row map[string]any) Result {
		name := text(row["name"])
		if name == "" {
			return Result{Key: rowKey(i), Status: StatusError, Message: "Missing name field"}
		}
		target, ok := byName[strings.ToLower(name)]
		if !ok {
			return Result{Key: name, Status: StatusError, Message: "Pokemon not found in database"}
		}

		update := entity.Record{}
		var summary []string
		if levelUp, ok := row["level_up_moves"].([]any); ok {
			moves := make([]LevelMove, 0, len(levelUp))
			for _, m := range levelUp {
				entry, _ := m.(map[string]any)
				lvl, _ := entity.Record(entry).IntField("level")
				moves = append(moves, LevelMove{Level: lvl, Move: text(entry["move"])})
			}
			update["moves_level_up"] = moves
			summary = append(summary, fmt.Sprintf("%d level-up", len(moves)))
		}
		if tm, ok := row["tm_moves"].([]any); ok {
			update["moves_tm"] = tm
			summary = append(summary, fmt.Sprintf("%d TM", len(tm)))
		}
		if len(update) == 0 {
			return Result{Key: name, Status: StatusWarning, Message: "No moves data to update"}
		}
		if _, err := im.pokemon.Update(ctx, target.ID(), update); err != nil {
			return Result{Key: name, Status: StatusError, Message: "Error: " + err.Error()}
		}
		return Result{Key: name, Status: StatusSuccess, Message: "Updated with " + strings.Join(summary, ", ") + " moves"}
	})
}

type rowFunc func(ctx context.Context, i int, row map[string]any) Result

type keyFunc func(row map[string]any) string

// groupRows splits row indexes by key, in order of first appearance. Rows
// without a key form groups of their own.
func groupRows(rows []map[string]any, key keyFunc) [][]int {
	var groups [][]int
	byKey := make(map[string]int, len(rows))
	for i, row := range rows {
		k := key(row)
		if k == "" {
			groups = append(groups, []int{i})
			continue
		}
		if g, ok := byKey[k]; ok {
			groups[g] = append(groups[g], i)
			continue
		}
		byKey[k] = len(groups)
		groups = append(groups, []int{i})
	}
	return groups
}

func pokemonIDKey(row map[string]any) string { return text(row[runstats.FieldPokemonID]) }

func nameKey(row map[string]any) string { return strings.ToLower(text(row["name"])) }

// run applies fn to every row with bounded concurrency, keeping input order.
// Rows that share a key run one after another in input order, so the last
// row for a record wins as it would in a sequential upload.
func (im *Importer) run(ctx context.Context, flow string, rows []map[string]any, key keyFunc, fn rowFunc) []Result {
	results := make([]Result, len(rows))
	var g errgroup.Group
	g.SetLimit(im.concurrency)
	for _, idx := range groupRows(rows, key) {
		g.Go(func() error {
			for _, i := range idx {
				results[i] = fn(ctx, i, rows[i])
				metrics.RecordImportRow(flow, string(results[i].Status))
			}
			return nil
		})
	}
	_ = g.Wait()

	counts := Summarize(results)
	im.log.Info(ctx, "bulk import finished",
		logger.String("flow", flow),
		logger.Int("rows", len(rows)),
		logger.Int("success", counts[StatusSuccess]),
		logger.Int("warning", counts[StatusWarning]),
		logger.Int("error", counts[StatusError]))
	return results
}

// Summarize counts results by status.
func Summarize(results []Result) map[Status]int {
	out := map[Status]int{}
	for _, r := range results {
		out[r.Status]++
	}
	return out
}

func moveList(raw any) ([]string, error) {
	var parts []string
	switch v := raw.(type) {
	case []any:
		for _, m := range v {
			s, ok := m.(string)
			if !ok {
				return nil, ErrBadMoves
			}
			parts = append(parts, s)
		}
	case []string:
		parts = v
	case string:
		parts = strings.Split(v, ",")
	default:
		return nil, ErrBadMoves
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func rowKey(i int) string { return fmt.Sprintf("Row %d", i+1) }
