package config

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package; match them with errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")

	// ErrUnknownBackend is also an ErrInvalidConfig.
	ErrUnknownBackend = fmt.Errorf("%w: unknown backend", ErrInvalidConfig)
)
