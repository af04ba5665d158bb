// Package service provides the entity service that implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/okian/solodex/internal/adapters/repository"
	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/internal/domain/query"
	"github.com/okian/solodex/internal/domain/runstats"
	"github.com/okian/solodex/pkg/logger"
	"github.com/okian/solodex/pkg/metrics"
)

// Roles returned by Login and Me.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// MockUserID identifies the stand-in viewer returned when no User exists.
const MockUserID = "mock-user-1"

// Service implements the API dependencies on top of a record store.
type Service struct {
	store repository.Store

	adminPassword string
	appName       string
	now           func() time.Time
	startedAt     time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAdminPassword sets the password accepted by Login.
func WithAdminPassword(password string) Option {
	return func(s *Service) {
		if password != "" {
			s.adminPassword = password
		}
	}
}

// WithAppName sets the name reported in the public settings.
func WithAppName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.appName = name
		}
	}
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		adminPassword: "admin123",
		appName:       "Solo Run Stats Hub",
		now:           time.Now,
		logger:        logger.NamedOrNop("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.now()
	return s
}

// Backend names the store in use.
func (s *Service) Backend() string { return s.store.Backend() }

// List returns the records of kind selected by the query string. A
// malformed q filter is logged and ignored.
func (s *Service) List(ctx context.Context, kindName string, values url.Values) ([]entity.Record, error) {
	kind, err := entity.ParseKind(kindName)
	if err != nil {
		return nil, err
	}
	q, err := query.Parse(values)
	if errors.Is(err, query.ErrMalformedFilter) {
		s.logger.Debug(ctx, "ignoring malformed q filter",
			logger.String("kind", kindName),
			logger.String("q", values.Get(query.ParamFilterJSON)),
			logger.Error(err))
	}
	recs, err := repository.Find(ctx, s.store, kind, q)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return recs, nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, kindName, id string) (entity.Record, error) {
	kind, err := entity.ParseKind(kindName)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.Get(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", kind, id, err)
	}
	return rec, nil
}

// Create stores body, stamping created_date and updated_date when absent.
func (s *Service) Create(ctx context.Context, kindName string, body entity.Record) (entity.Record, error) {
	kind, err := entity.ParseKind(kindName)
	if err != nil {
		return nil, err
	}
	rec := body.Clone()
	if rec == nil {
		rec = entity.Record{}
	}
	entity.StampCreated(rec, s.now())

	out, err := s.store.Create(ctx, kind, rec)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}
	s.logger.Debug(ctx, "record created", logger.String("kind", string(kind)), logger.String("id", out.ID()))
	return out, nil
}

// Update is the full-update operation. It shares Patch's shallow merge.
func (s *Service) Update(ctx context.Context, kindName, id string, body entity.Record) (entity.Record, error) {
	return s.merge(ctx, "update", kindName, id, body)
}

// Patch is the partial-update operation.
func (s *Service) Patch(ctx context.Context, kindName, id string, body entity.Record) (entity.Record, error) {
	return s.merge(ctx, "patch", kindName, id, body)
}

func (s *Service) merge(ctx context.Context, op, kindName, id string, body entity.Record) (entity.Record, error) {
	kind, err := entity.ParseKind(kindName)
	if err != nil {
		return nil, err
	}
	patch := body.Clone()
	if patch == nil {
		patch = entity.Record{}
	}
	entity.StampUpdated(patch, s.now())

	out, err := s.store.Replace(ctx, kind, id, patch)
	if err != nil {
		return nil, fmt.Errorf("%s %s/%s: %w", op, kind, id, err)
	}
	return out, nil
}

// Delete removes one record.
func (s *Service) Delete(ctx context.Context, kindName, id string) error {
	kind, err := entity.ParseKind(kindName)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, kind, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", kind, id, err)
	}
	return nil
}

// Me returns the first stored User, or a mock viewer when there is none.
// There is no session: every caller is this user.
func (s *Service) Me(ctx context.Context) (entity.Record, error) {
	users, err := s.store.List(ctx, entity.User)
	if err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	if len(users) > 0 {
		return users[0], nil
	}
	return entity.Record{
		entity.FieldID:          MockUserID,
		"email":                 "viewer@local.dev",
		"name":                  "Viewer",
		"role":                  RoleViewer,
		entity.FieldCreatedDate: s.now().UTC().Format(time.RFC3339),
	}, nil
}

// Login checks the admin password and returns the granted role.
func (s *Service) Login(ctx context.Context, password string) (string, error) {
	ok := subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) == 1
	metrics.RecordLogin(ok)
	log := s.logger.With(logger.Bool("success", ok))
	if !ok {
		log.Warn(ctx, "admin login rejected")
		return "", ErrUnauthorized
	}
	log.Info(ctx, "admin login accepted")
	return RoleAdmin, nil
}

// PublicSettings describes the app to unauthenticated clients.
func (s *Service) PublicSettings(appID string) map[string]any {
	return map[string]any{
		"id": appID,
		"public_settings": map[string]any{
			"requires_auth": false,
			"name":          s.appName,
		},
	}
}

// Overview computes the dashboard statistics from Pokemon and TierPlacement.
func (s *Service) Overview(ctx context.Context) (runstats.Overview, error) {
	pokemon, err := s.store.List(ctx, entity.Pokemon)
	if err != nil {
		return runstats.Overview{}, fmt.Errorf("overview: %w", err)
	}
	placements, err := s.store.List(ctx, entity.TierPlacement)
	if err != nil {
		return runstats.Overview{}, fmt.Errorf("overview: %w", err)
	}
	return runstats.BuildOverview(pokemon, placements), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) (map[string]any, error) {
	counts := make(map[string]int, len(entity.Kinds()))
	total := 0
	for _, k := range entity.Kinds() {
		recs, err := s.store.List(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("stats %s: %w", k, err)
		}
		counts[string(k)] = len(recs)
		total += len(recs)
	}
	return map[string]any{
		"backend":        s.store.Backend(),
		"records":        counts,
		"total_records":  total,
		"uptime_seconds": int64(s.now().Sub(s.startedAt).Seconds()),
		"instance_id":    instanceID,
	}, nil
}

var instanceID = uuid.NewString() //nolint:gochecknoglobals // process identity
