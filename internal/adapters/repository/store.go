// Package repository defines the record store port and its backends: JSON
// files with an in-memory cache, MongoDB and SQLite.
package repository

import (
	"context"

	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/internal/domain/query"
)

// Store provides read/write access to one collection per entity kind.
type Store interface {
	// Backend names the implementation, e.g. "file".
	Backend() string

	// List returns every record of kind in storage order.
	List(ctx context.Context, kind entity.Kind) ([]entity.Record, error)

	// Get returns the record with id. Returns ErrNotFound if absent.
	Get(ctx context.Context, kind entity.Kind, id string) (entity.Record, error)

	// Create stores rec, assigning an unused id when rec has none.
	// Returns ErrDuplicateID if rec carries an id already in use.
	Create(ctx context.Context, kind entity.Kind, rec entity.Record) (entity.Record, error)

	// Replace shallow-merges patch onto the stored record and returns the
	// result. The stored id is kept. Returns ErrNotFound if absent.
	Replace(ctx context.Context, kind entity.Kind, id string, patch entity.Record) (entity.Record, error)

	// Delete removes the record with id. Returns ErrNotFound if absent.
	Delete(ctx context.Context, kind entity.Kind, id string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// Finder is implemented by stores that evaluate a query natively. Results
// must equal q.Apply over List.
type Finder interface {
	Find(ctx context.Context, kind entity.Kind, q query.Query) ([]entity.Record, error)
}

// Upserter is implemented by stores that can bulk load records by id.
type Upserter interface {
	Upsert(ctx context.Context, kind entity.Kind, recs []entity.Record) (int, error)
}

// Find evaluates q against s, natively when s is a Finder.
func Find(ctx context.Context, s Store, kind entity.Kind, q query.Query) ([]entity.Record, error) {
	if f, ok := s.(Finder); ok {
		return f.Find(ctx, kind, q)
	}
	recs, err := s.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	return q.Apply(recs), nil
}
