// Package query turns an HTTP query string into a filter, sort key, skip,
// limit and projection, and applies them to a slice of records. Every store
// backend shares these semantics.
package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Reserved parameter names. They never become field filters.
const (
	ParamSort       = "sort"
	ParamSortAlt    = "_sort"
	ParamLimit      = "limit"
	ParamLimitAlt   = "_limit"
	ParamSkip       = "skip"
	ParamSkipAlt    = "_skip"
	ParamOrder      = "_order"
	ParamFilterJSON = "q"
	ParamFields     = "fields"
)

// NoLimit marks a Query without a limit.
const NoLimit = -1

var reserved = map[string]struct{}{ //nolint:gochecknoglobals // fixed reserved set
	ParamSortAlt: {}, ParamLimitAlt: {}, ParamOrder: {}, ParamSkipAlt: {},
	ParamSort: {}, ParamLimit: {}, ParamSkip: {}, ParamFilterJSON: {}, ParamFields: {},
}

// IsReserved reports whether key is a control parameter.
func IsReserved(key string) bool {
	_, ok := reserved[key]
	return ok
}

// Query is a parsed list request.
type Query struct {
	// Filters are ANDed exact matches on the string form of a field.
	Filters map[string]string
	// Sort names the single sort field; empty keeps storage order.
	Sort string
	// Desc reverses the sort direction.
	Desc bool
	// Limit caps the result size; NoLimit disables it.
	Limit int
	// Skip drops that many records after sorting.
	Skip int
	// Fields projects results onto these keys plus id; empty keeps all.
	Fields []string
}

// New returns an empty Query matching everything.
func New() Query {
	return Query{Filters: map[string]string{}, Limit: NoLimit}
}

// Parse builds a Query from URL values.
//
// Plain parameters use their first value. Terms from q override plain
// parameters of the same name. When q is not a JSON object the returned error
// wraps ErrMalformedFilter and the Query simply lacks those terms. Invalid
// limit and skip values are ignored.
func Parse(values url.Values) (Query, error) {
	q := New()
	for key, vals := range values {
		if IsReserved(key) || len(vals) == 0 {
			continue
		}
		q.Filters[key] = vals[0]
	}

	var warn error
	if raw := values.Get(ParamFilterJSON); raw != "" {
		terms, err := decodeFilter(raw)
		if err != nil {
			warn = fmt.Errorf("%w: %w", ErrMalformedFilter, err)
		}
		for k, v := range terms {
			q.Filters[k] = Stringify(v)
		}
	}

	q.Sort = first(values, ParamSort, ParamSortAlt)
	if strings.HasPrefix(q.Sort, "-") {
		q.Sort = strings.TrimPrefix(q.Sort, "-")
		q.Desc = true
	}
	if strings.EqualFold(values.Get(ParamOrder), "desc") {
		q.Desc = true
	}

	if n, ok := nonNegative(first(values, ParamLimit, ParamLimitAlt)); ok {
		q.Limit = n
	}
	if n, ok := nonNegative(first(values, ParamSkip, ParamSkipAlt)); ok {
		q.Skip = n
	}

	for _, f := range strings.Split(values.Get(ParamFields), ",") {
		if f = strings.TrimSpace(f); f != "" {
			q.Fields = append(q.Fields, f)
		}
	}
	return q, warn
}

func decodeFilter(raw string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var terms map[string]any
	if err := dec.Decode(&terms); err != nil {
		return nil, err
	}
	return terms, nil
}

// first returns the first non-empty value among keys, in order.
func first(values url.Values, keys ...string) string {
	for _, k := range keys {
		if v := values.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func nonNegative(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
