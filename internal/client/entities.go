package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/internal/domain/query"
)

const bulkConcurrency = 4

// ListOptions are the non-filter list controls. Zero values are omitted;
// a negative Limit sends limit=0.
type ListOptions struct {
	Sort   string // "-field" sorts descending
	Limit  int
	Skip   int
	Fields []string
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.Sort != "" {
		v.Set(query.ParamSort, o.Sort)
	}
	switch {
	case o.Limit > 0:
		v.Set(query.ParamLimit, strconv.Itoa(o.Limit))
	case o.Limit < 0:
		v.Set(query.ParamLimit, "0")
	}
	if o.Skip > 0 {
		v.Set(query.ParamSkip, strconv.Itoa(o.Skip))
	}
	if len(o.Fields) > 0 {
		v.Set(query.ParamFields, strings.Join(o.Fields, ","))
	}
	return v
}

// EntityHandler is the CRUD surface for one entity kind.
type EntityHandler struct {
	c    *Client
	kind entity.Kind
}

// Kind returns the handled kind.
func (h *EntityHandler) Kind() entity.Kind { return h.kind }

func (h *EntityHandler) path(id ...string) string {
	return h.c.apiPath(append([]string{"entities", string(h.kind)}, id...)...)
}

// List returns every record, shaped by opts.
func (h *EntityHandler) List(ctx context.Context, opts ListOptions) ([]entity.Record, error) {
	return h.list(ctx, opts.values())
}

// Filter returns the records matching every key of filter. The filter
// travels as JSON in the q parameter.
func (h *EntityHandler) Filter(ctx context.Context, filter map[string]any, opts ListOptions) ([]entity.Record, error) {
	v := opts.values()
	if len(filter) > 0 {
		raw, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("encode filter: %w", err)
		}
		v.Set(query.ParamFilterJSON, string(raw))
	}
	return h.list(ctx, v)
}

func (h *EntityHandler) list(ctx context.Context, v url.Values) ([]entity.Record, error) {
	var out []entity.Record
	if err := h.c.do(ctx, http.MethodGet, h.path(), v, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []entity.Record{}
	}
	return out, nil
}

// Get returns one record.
func (h *EntityHandler) Get(ctx context.Context, id string) (entity.Record, error) {
	var out entity.Record
	if err := h.c.do(ctx, http.MethodGet, h.path(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create stores data and returns it with its id.
func (h *EntityHandler) Create(ctx context.Context, data entity.Record) (entity.Record, error) {
	if data == nil {
		data = entity.Record{}
	}
	var out entity.Record
	if err := h.c.do(ctx, http.MethodPost, h.path(), nil, data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update merges data into the record with PUT.
func (h *EntityHandler) Update(ctx context.Context, id string, data entity.Record) (entity.Record, error) {
	return h.merge(ctx, http.MethodPut, id, data)
}

// Patch merges data into the record with PATCH.
func (h *EntityHandler) Patch(ctx context.Context, id string, data entity.Record) (entity.Record, error) {
	return h.merge(ctx, http.MethodPatch, id, data)
}

func (h *EntityHandler) merge(ctx context.Context, method, id string, data entity.Record) (entity.Record, error) {
	if data == nil {
		data = entity.Record{}
	}
	var out entity.Record
	if err := h.c.do(ctx, method, h.path(id), nil, data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes one record.
func (h *EntityHandler) Delete(ctx context.Context, id string) error {
	return h.c.do(ctx, http.MethodDelete, h.path(id), nil, nil, nil)
}

// BulkResult is the outcome of one BulkCreate row.
type BulkResult struct {
	Index  int
	Record entity.Record
	Err    error
}

// BulkCreate creates rows with bounded concurrency. A failing row never
// stops the others; results are in input order.
func (h *EntityHandler) BulkCreate(ctx context.Context, rows []entity.Record) []BulkResult {
	results := make([]BulkResult, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for i, row := range rows {
		g.Go(func() error {
			rec, err := h.Create(gctx, row)
			results[i] = BulkResult{Index: i, Record: rec, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
