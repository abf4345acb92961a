// Package pgqlconfig loads and merges the engine's runtime configuration
// (database connection, schema namespace, cache TTL, server port, statement
// and operation timeouts, CDC buffer sizing, relationship-resolver
// concurrency) from YAML files and environment variables. Once loaded, a
// Config is treated as read-only by every other package.
package pgqlconfig

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for a pgql server process.
type Config struct {
	Database Database `yaml:"database"`
	Schema   string   `yaml:"schema" env:"PGQL_SCHEMA" envDefault:"public"`
	Cache    Cache    `yaml:"cache"`
	Server   Server   `yaml:"server"`
	Timeouts Timeouts `yaml:"timeouts"`
	CDC      CDC      `yaml:"cdc"`
	Relate   Relate   `yaml:"relate"`
}

// Database configures the Postgres connection the engine introspects and
// queries.
type Database struct {
	URL          string `yaml:"url" env:"PGQL_DATABASE_URL,required"`
	MaxOpenConns int    `yaml:"maxOpenConns" env:"PGQL_DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns int    `yaml:"maxIdleConns" env:"PGQL_DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
}

// Cache configures the Catalog Reflector's per-schema snapshot cache.
type Cache struct {
	SchemaTTL time.Duration `yaml:"schemaTTL" env:"PGQL_CACHE_SCHEMA_TTL" envDefault:"30m"`
}

// Server configures the GraphQL-serving HTTP listener.
type Server struct {
	Port int `yaml:"port" env:"PGQL_SERVER_PORT" envDefault:"8080"`
}

// Timeouts holds the time limits for a single statement and for a whole
// operation (query plus its relationship-resolution fan-out). Config
// carries these values, but no package in this module reads them: no
// deadline is derived from them and nothing raises pgql.KindTimeout
// because of them.
type Timeouts struct {
	Statement time.Duration `yaml:"statement" env:"PGQL_TIMEOUT_STATEMENT" envDefault:"10s"`
	Operation time.Duration `yaml:"operation" env:"PGQL_TIMEOUT_OPERATION" envDefault:"30s"`
}

// CDC configures the per-table change-event broadcast buffers.
type CDC struct {
	BufferCapacity    int `yaml:"bufferCapacity" env:"PGQL_CDC_BUFFER_CAPACITY" envDefault:"1024"`
	OverflowThreshold int `yaml:"overflowThreshold" env:"PGQL_CDC_OVERFLOW_THRESHOLD" envDefault:"1024"`
}

// Relate configures the Relationship Resolver's bounded parallel fan-out.
type Relate struct {
	PoolSize int `yaml:"poolSize" env:"PGQL_RELATE_POOL_SIZE" envDefault:"8"`
}

// LoadYAML parses a YAML document into a Config. It does not apply any of
// the env struct tag defaults; callers typically call LoadEnv first and
// Merge the YAML result on top, or vice versa, depending on which source
// should take precedence.
func LoadYAML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("pgqlconfig: parse yaml: %w", err)
	}
	return cfg, nil
}

// LoadEnv parses environment variables into a Config using the PGQL_*
// prefix convention, applying envDefault values for anything unset. It
// fails if a required variable (PGQL_DATABASE_URL) is missing.
func LoadEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("pgqlconfig: parse environment: %w", err)
	}
	return cfg, nil
}

// Merge returns a new Config with every non-zero field of override applied
// on top of base. Use this to let environment variables override a base
// YAML file, or vice versa, without either loader needing to know about the
// other.
func Merge(base, override *Config) *Config {
	merged := *base

	if override.Database.URL != "" {
		merged.Database.URL = override.Database.URL
	}
	if override.Database.MaxOpenConns != 0 {
		merged.Database.MaxOpenConns = override.Database.MaxOpenConns
	}
	if override.Database.MaxIdleConns != 0 {
		merged.Database.MaxIdleConns = override.Database.MaxIdleConns
	}
	if override.Schema != "" {
		merged.Schema = override.Schema
	}
	if override.Cache.SchemaTTL != 0 {
		merged.Cache.SchemaTTL = override.Cache.SchemaTTL
	}
	if override.Server.Port != 0 {
		merged.Server.Port = override.Server.Port
	}
	if override.Timeouts.Statement != 0 {
		merged.Timeouts.Statement = override.Timeouts.Statement
	}
	if override.Timeouts.Operation != 0 {
		merged.Timeouts.Operation = override.Timeouts.Operation
	}
	if override.CDC.BufferCapacity != 0 {
		merged.CDC.BufferCapacity = override.CDC.BufferCapacity
	}
	if override.CDC.OverflowThreshold != 0 {
		merged.CDC.OverflowThreshold = override.CDC.OverflowThreshold
	}
	if override.Relate.PoolSize != 0 {
		merged.Relate.PoolSize = override.Relate.PoolSize
	}

	return &merged
}
