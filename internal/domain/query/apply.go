package query

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/solodex/internal/domain/entity"
)

// Apply filters, sorts, skips, limits and projects records, in that order.
// The input slice and its records are not modified.
func (q Query) Apply(records []entity.Record) []entity.Record {
	out := make([]entity.Record, 0, len(records))
	for _, r := range records {
		if Matches(r, q.Filters) {
			out = append(out, r)
		}
	}

	if q.Sort != "" {
		slices.SortStableFunc(out, func(a, b entity.Record) int {
			return compareField(a, b, q.Sort, q.Desc)
		})
	}

	if q.Skip > 0 {
		if q.Skip >= len(out) {
			out = out[:0]
		} else {
			out = out[q.Skip:]
		}
	}
	if q.Limit != NoLimit && q.Limit < len(out) {
		out = out[:q.Limit]
	}

	if len(q.Fields) > 0 {
		for i, r := range out {
			out[i] = Project(r, q.Fields)
		}
	}
	return out
}

// Matches reports whether every filter equals the string form of the field.
// A filter on a field the record lacks never matches.
func Matches(r entity.Record, filters map[string]string) bool {
	for k, want := range filters {
		v, ok := r[k]
		if !ok || Stringify(v) != want {
			return false
		}
	}
	return true
}

// Project keeps only the named fields and id.
func Project(r entity.Record, fields []string) entity.Record {
	out := make(entity.Record, len(fields)+1)
	if v, ok := r[entity.FieldID]; ok {
		out[entity.FieldID] = v
	}
	for _, f := range fields {
		if v, ok := r[f]; ok {
			out[f] = v
		}
	}
	return out
}

// compareField orders records by one field. Records without the field (or
// with null) sort last in either direction.
func compareField(a, b entity.Record, field string, desc bool) int {
	av, aok := a[field]
	bv, bok := b[field]
	aok = aok && av != nil
	bok = bok && bv != nil
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}
	c := Compare(av, bv)
	if desc {
		return -c
	}
	return c
}

// Compare orders two values numerically when both are numbers and by their
// string form otherwise.
func Compare(a, b any) int {
	af, aNum := number(a)
	bf, bNum := number(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(Stringify(a), Stringify(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Stringify renders a field value the way filters compare it: numbers in
// shortest decimal form, booleans as true/false, null as "null", lists joined
// by commas and objects as JSON.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := x.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprint(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			if e == nil {
				continue
			}
			parts[i] = Stringify(e)
		}
		return strings.Join(parts, ",")
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
