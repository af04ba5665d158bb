package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/pkg/logger"
)

const backendSQLite = "sqlite"

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SQLiteStore keeps every record as a JSON body in one table keyed by
// (kind, id). seq preserves insertion order within a kind.
type SQLiteStore struct {
	db *sql.DB
	settings
}

var _ Store = (*SQLiteStore)(nil)
var _ Upserter = (*SQLiteStore)(nil)

// NewSQLiteStore opens path, applies pragmas and runs the embedded migrations.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{settings: newSettings(opts)}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrBackend, err)
	}
	// one connection keeps pragmas and writes serialised
	db.SetMaxOpenConns(1)
	s.db = db

	if err := s.optimize(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.log.Info(ctx, "sqlite store ready", logger.String("path", path))
	return s, nil
}

func (s *SQLiteStore) optimize(ctx context.Context) error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"busy_timeout", "5000"},
		{"temp_store", "MEMORY"},
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("%w: PRAGMA %s: %w", ErrBackend, p.name, err)
		}
		s.log.Debug(ctx, "sqlite pragma set", logger.String("pragma", p.name), logger.String("value", p.value))
	}
	return nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("%w: goose dialect: %w", ErrBackend, err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("%w: migrations: %w", ErrBackend, err)
	}
	return nil
}

// Backend implements Store.
func (s *SQLiteStore) Backend() string { return backendSQLite }

// Close implements Store.
func (s *SQLiteStore) Close(context.Context) error { return s.db.Close() }

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, kind entity.Kind) (recs []entity.Record, err error) {
	defer func(start time.Time) { observe(backendSQLite, kind, "list", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, `SELECT body FROM records WHERE kind = ? ORDER BY seq`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrBackend, kind, err)
	}
	defer func() { _ = rows.Close() }()

	recs = []entity.Record{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %w", ErrBackend, kind, err)
		}
		rec, err := decodeRecord(body)
		if err != nil {
			return nil, fmt.Errorf("%w: decode %s: %w", ErrBackend, kind, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrBackend, kind, err)
	}
	return recs, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, kind entity.Kind, id string) (rec entity.Record, err error) {
	defer func(start time.Time) { observe(backendSQLite, kind, "get", start, err) }(time.Now())
	return s.get(ctx, s.db, kind, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) get(ctx context.Context, q queryRower, kind entity.Kind, id string) (entity.Record, error) {
	var body string
	err := q.QueryRowContext(ctx, `SELECT body FROM records WHERE kind = ? AND id = ?`, string(kind), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrBackend, kind, err)
	}
	rec, err := decodeRecord(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrBackend, kind, err)
	}
	return rec, nil
}

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, kind entity.Kind, in entity.Record) (rec entity.Record, err error) {
	defer func(start time.Time) { observe(backendSQLite, kind, "create", start, err) }(time.Now())

	rec = in.Clone()
	if rec == nil {
		rec = entity.Record{}
	}
	if rec.ID() == "" {
		id, err := s.uniqueID(func(id string) (bool, error) {
			_, err := s.get(ctx, s.db, kind, id)
			if errors.Is(err, ErrNotFound) {
				return false, nil
			}
			return err == nil, err
		})
		if err != nil {
			return nil, err
		}
		rec[entity.FieldID] = id
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", ErrBackend, kind, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (kind, id, seq, body)
		 VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records WHERE kind = ?), ?)`,
		string(kind), rec.ID(), string(kind), string(body))
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID())
		}
		return nil, fmt.Errorf("%w: create %s: %w", ErrBackend, kind, err)
	}
	return rec, nil
}

// Replace implements Store.
func (s *SQLiteStore) Replace(ctx context.Context, kind entity.Kind, id string, patch entity.Record) (rec entity.Record, err error) {
	defer func(start time.Time) { observe(backendSQLite, kind, "replace", start, err) }(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", ErrBackend, err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := s.get(ctx, tx, kind, id)
	if err != nil {
		return nil, err
	}
	rec = entity.Merge(cur, patch)
	rec[entity.FieldID] = cur[entity.FieldID]

	body, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", ErrBackend, kind, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET body = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now') WHERE kind = ? AND id = ?`,
		string(body), string(kind), id); err != nil {
		return nil, fmt.Errorf("%w: replace %s: %w", ErrBackend, kind, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrBackend, err)
	}
	return rec, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, kind entity.Kind, id string) (err error) {
	defer func(start time.Time) { observe(backendSQLite, kind, "delete", start, err) }(time.Now())

	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE kind = ? AND id = ?`, string(kind), id)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrBackend, kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrBackend, kind, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert implements Upserter in one transaction. Existing rows keep their seq.
func (s *SQLiteStore) Upsert(ctx context.Context, kind entity.Kind, recs []entity.Record) (n int, err error) {
	defer func(start time.Time) { observe(backendSQLite, kind, "upsert", start, err) }(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %w", ErrBackend, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range recs {
		id := r.ID()
		if id == "" {
			continue
		}
		body, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("%w: encode %s: %w", ErrBackend, kind, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO records (kind, id, seq, body)
			 VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records WHERE kind = ?), ?)
			 ON CONFLICT (kind, id) DO UPDATE SET body = excluded.body,
			     updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
			string(kind), id, string(kind), string(body)); err != nil {
			return 0, fmt.Errorf("%w: upsert %s: %w", ErrBackend, kind, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", ErrBackend, err)
	}
	return n, nil
}

func decodeRecord(body string) (entity.Record, error) {
	recs, err := DecodeRecords([]byte("[" + body + "]"))
	if err != nil {
		return nil, err
	}
	if len(recs) != 1 || recs[0] == nil {
		return nil, errors.New("record body is not an object")
	}
	return recs[0], nil
}
