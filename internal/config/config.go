// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a .env file, an optional YAML file and SOLODEX_ env vars on top.
// - Errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"strings"
)

// Storage backends understood by the service.
const (
	BackendFile   = "file"
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":3001".
	Addr string `koanf:"addr"`

	// Backend selects the record store: file, mongo or sqlite.
	Backend string `koanf:"backend"`

	// DataDir holds one <Kind>.json file per entity kind for the file backend.
	DataDir string `koanf:"data_dir"`

	// MongoURI and MongoDatabase configure the document database backend.
	MongoURI      string `koanf:"mongo_uri"`
	MongoDatabase string `koanf:"mongo_database"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// AdminPassword is compared against POST /api/auth/login.
	AdminPassword string `koanf:"admin_password"`

	// AppName is echoed in the public settings document.
	AppName string `koanf:"app_name"`

	// StaticDir overrides the embedded dashboard with a built frontend.
	StaticDir string `koanf:"static_dir"`

	// CORSOrigins is a comma separated allow list; "*" allows any origin.
	CORSOrigins string `koanf:"cors_origins"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		Addr:          ":3001",
		Backend:       BackendFile,
		DataDir:       "./data",
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "solodex",
		SQLitePath:    "./solodex.db",
		AdminPassword: "admin123",
		AppName:       "Solo Run Stats Hub",
		CORSOrigins:   "*",
	}
}

// Origins splits CORSOrigins into a list, dropping blanks.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// Validate checks the fields every backend relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Backend {
	case BackendFile:
		if c.DataDir == "" {
			return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
		}
	case BackendMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("%w: mongo_uri and mongo_database are required", ErrInvalidConfig)
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownBackend, c.Backend)
	}
	return nil
}
