package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/pkg/logger"
	"github.com/okian/solodex/pkg/metrics"
)

const backendFile = "file"

// FileStore keeps one pretty-printed JSON array per kind in a directory and
// caches each collection after its first use.
//
// Every write runs under the kind's lock: the new collection is written to a
// temporary file, synced, renamed over the old file and only then swapped
// into the cache, so readers never see the cache ahead of the disk.
type FileStore struct {
	dir string
	settings

	mu    sync.Mutex
	kinds map[entity.Kind]*fileCollection
}

type fileCollection struct {
	mu      sync.Mutex
	loaded  bool
	records []entity.Record
}

var _ Store = (*FileStore)(nil)
var _ Upserter = (*FileStore)(nil)

// NewFileStore creates dir if needed and returns an empty store over it.
func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty data dir", ErrBackend)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %w", ErrBackend, err)
	}
	return &FileStore{
		dir:      dir,
		settings: newSettings(opts),
		kinds:    make(map[entity.Kind]*fileCollection),
	}, nil
}

// Backend implements Store.
func (s *FileStore) Backend() string { return backendFile }

// Close implements Store.
func (s *FileStore) Close(context.Context) error { return nil }

// List implements Store.
func (s *FileStore) List(ctx context.Context, kind entity.Kind) (recs []entity.Record, err error) {
	defer func(start time.Time) { observe(backendFile, kind, "list", start, err) }(time.Now())

	err = s.withCollection(ctx, kind, func(c *fileCollection) error {
		recs = make([]entity.Record, len(c.records))
		for i, r := range c.records {
			recs[i] = r.Clone()
		}
		return nil
	})
	return recs, err
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, kind entity.Kind, id string) (rec entity.Record, err error) {
	defer func(start time.Time) { observe(backendFile, kind, "get", start, err) }(time.Now())

	err = s.withCollection(ctx, kind, func(c *fileCollection) error {
		i := indexByID(c.records, id)
		if i < 0 {
			return ErrNotFound
		}
		rec = c.records[i].Clone()
		return nil
	})
	return rec, err
}

// Create implements Store.
func (s *FileStore) Create(ctx context.Context, kind entity.Kind, in entity.Record) (rec entity.Record, err error) {
	defer func(start time.Time) { observe(backendFile, kind, "create", start, err) }(time.Now())

	err = s.withCollection(ctx, kind, func(c *fileCollection) error {
		rec = in.Clone()
		if rec == nil {
			rec = entity.Record{}
		}
		if id := rec.ID(); id != "" {
			if indexByID(c.records, id) >= 0 {
				return fmt.Errorf("%w: %s", ErrDuplicateID, id)
			}
		} else {
			id, err := s.uniqueID(func(id string) (bool, error) { return indexByID(c.records, id) >= 0, nil })
			if err != nil {
				return err
			}
			rec[entity.FieldID] = id
		}
		next := make([]entity.Record, 0, len(c.records)+1)
		next = append(next, c.records...)
		next = append(next, rec)
		return s.commit(kind, c, next)
	})
	if err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// Replace implements Store.
func (s *FileStore) Replace(ctx context.Context, kind entity.Kind, id string, patch entity.Record) (rec entity.Record, err error) {
	defer func(start time.Time) { observe(backendFile, kind, "replace", start, err) }(time.Now())

	err = s.withCollection(ctx, kind, func(c *fileCollection) error {
		i := indexByID(c.records, id)
		if i < 0 {
			return ErrNotFound
		}
		rec = entity.Merge(c.records[i], patch)
		rec[entity.FieldID] = c.records[i][entity.FieldID]
		next := make([]entity.Record, len(c.records))
		copy(next, c.records)
		next[i] = rec
		return s.commit(kind, c, next)
	})
	if err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context, kind entity.Kind, id string) (err error) {
	defer func(start time.Time) { observe(backendFile, kind, "delete", start, err) }(time.Now())

	return s.withCollection(ctx, kind, func(c *fileCollection) error {
		i := indexByID(c.records, id)
		if i < 0 {
			return ErrNotFound
		}
		next := make([]entity.Record, 0, len(c.records)-1)
		next = append(next, c.records[:i]...)
		next = append(next, c.records[i+1:]...)
		return s.commit(kind, c, next)
	})
}

// Upsert replaces records whose id exists and appends the rest, in one write.
func (s *FileStore) Upsert(ctx context.Context, kind entity.Kind, recs []entity.Record) (n int, err error) {
	defer func(start time.Time) { observe(backendFile, kind, "upsert", start, err) }(time.Now())

	err = s.withCollection(ctx, kind, func(c *fileCollection) error {
		next := make([]entity.Record, len(c.records), len(c.records)+len(recs))
		copy(next, c.records)
		for _, r := range recs {
			id := r.ID()
			if id == "" {
				continue
			}
			if i := indexByID(next, id); i >= 0 {
				next[i] = r.Clone()
			} else {
				next = append(next, r.Clone())
			}
			n++
		}
		return s.commit(kind, c, next)
	})
	return n, err
}

// withCollection loads kind on first use and runs fn under its lock.
func (s *FileStore) withCollection(ctx context.Context, kind entity.Kind, fn func(*fileCollection) error) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", entity.ErrUnknownKind, kind)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	c, ok := s.kinds[kind]
	if !ok {
		c = &fileCollection{}
		s.kinds[kind] = c
	}
	s.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		recs, err := s.read(kind)
		if err != nil {
			return err
		}
		c.records, c.loaded = recs, true
		metrics.RecordCacheLoad(string(kind))
		metrics.UpdateRecordCount(string(kind), len(recs))
		s.log.Debug(ctx, "collection loaded", logger.String("kind", string(kind)), logger.Int("records", len(recs)))
	}
	return fn(c)
}

func (s *FileStore) path(kind entity.Kind) string {
	return filepath.Join(s.dir, kind.Describe().File)
}

// read decodes a collection file. A missing file is an empty collection.
func (s *FileStore) read(kind entity.Kind) ([]entity.Record, error) {
	raw, err := os.ReadFile(s.path(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return []entity.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrBackend, kind, err)
	}
	recs, err := DecodeRecords(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrBackend, kind, err)
	}
	return recs, nil
}

// commit persists next and swaps it into the cache. On failure the cache is
// left as it was.
func (s *FileStore) commit(kind entity.Kind, c *fileCollection, next []entity.Record) error {
	if err := s.write(kind, next); err != nil {
		return err
	}
	c.records = next
	metrics.UpdateRecordCount(string(kind), len(next))
	return nil
}

func (s *FileStore) write(kind entity.Kind, recs []entity.Record) error {
	raw, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrBackend, kind, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+string(kind)+"-*.json.tmp")
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrBackend, kind, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(append(raw, '\n')); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write %s: %w", ErrBackend, kind, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: sync %s: %w", ErrBackend, kind, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close %s: %w", ErrBackend, kind, err)
	}
	if err := os.Rename(tmpName, s.path(kind)); err != nil {
		cleanup()
		return fmt.Errorf("%w: rename %s: %w", ErrBackend, kind, err)
	}
	return nil
}

// DecodeRecords parses a JSON array of objects, keeping numbers exact.
func DecodeRecords(raw []byte) ([]entity.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var recs []entity.Record
	if err := dec.Decode(&recs); err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []entity.Record{}
	}
	return recs, nil
}

func indexByID(recs []entity.Record, id string) int {
	for i, r := range recs {
		if r.ID() == id {
			return i
		}
	}
	return -1
}
