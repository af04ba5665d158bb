package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Well-known record fields.
const (
	FieldID          = "id"
	FieldCreatedDate = "created_date"
	FieldUpdatedDate = "updated_date"
)

// Record is one schemaless entity document. Kind-specific fields are advisory.
type Record map[string]any

// ID returns the record id in string form, or "" when absent.
func (r Record) ID() string {
	switch v := r[FieldID].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Clone returns a copy of the top level of r. Nested values are shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge returns a new record holding base overlaid with patch.
//
// The merge is shallow: top-level keys in patch overwrite base, nested maps
// and slices are replaced wholesale, and keys absent from patch are kept.
// Neither input is modified.
func Merge(base, patch Record) Record {
	out := make(Record, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// StampCreated sets created_date and updated_date when they are absent.
func StampCreated(r Record, now time.Time) {
	ts := now.UTC().Format(time.RFC3339)
	if _, ok := r[FieldCreatedDate]; !ok {
		r[FieldCreatedDate] = ts
	}
	if _, ok := r[FieldUpdatedDate]; !ok {
		r[FieldUpdatedDate] = ts
	}
}

// StampUpdated refreshes updated_date.
func StampUpdated(r Record, now time.Time) {
	r[FieldUpdatedDate] = now.UTC().Format(time.RFC3339)
}

// NewID returns a fresh 21 character nanoid.
func NewID() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id, nil
}

// UniqueID draws ids from gen (NewID when nil) until taken reports one as
// free.
func UniqueID(gen func() (string, error), taken func(id string) (bool, error)) (string, error) {
	if gen == nil {
		gen = NewID
	}
	const maxAttempts = 8
	for range maxAttempts {
		id, err := gen()
		if err != nil {
			return "", err
		}
		used, err := taken(id)
		if err != nil {
			return "", err
		}
		if !used {
			return id, nil
		}
	}
	return "", fmt.Errorf("generate id: %d collisions in a row", maxAttempts)
}

// StringField returns the field as a string when it holds one.
func (r Record) StringField(key string) string {
	s, _ := r[key].(string)
	return s
}

// IntField returns the field as an int when it holds a whole number, either as a
// JSON number or as a numeric string.
func (r Record) IntField(key string) (int, bool) {
	switch v := r[key].(type) {
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil || f != float64(int(f)) {
				return 0, false
			}
			return int(f), true
		}
		return int(i), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case string:
		i, err := strconv.Atoi(v)
		return i, err == nil
	default:
		return 0, false
	}
}
