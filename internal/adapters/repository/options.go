package repository

import (
	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/pkg/logger"
)

// Option applies a configuration option to a store.
type Option func(*settings)

type settings struct {
	log   logger.Logger
	newID func() (string, error)
}

func newSettings(opts []Option) settings {
	s := settings{
		log:   logger.NamedOrNop("repository"),
		newID: entity.NewID,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithIDGenerator replaces the nanoid generator.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *settings) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func (s settings) uniqueID(taken func(id string) (bool, error)) (string, error) {
	return entity.UniqueID(s.newID, taken)
}
