// Package config loads threadview settings.
//
// Precedence, lowest first: built-in defaults, THREADVIEW_* environment
// variables, a config file (.yaml, .yml or .cue), command-line flags. Flags are
// applied by the CLI on top of what Load returns.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/threadview/internal/model"
	"github.com/roach88/threadview/internal/rank"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "THREADVIEW_"

// Config is the complete runtime configuration.
type Config struct {
	// URL is the websocket endpoint of the server.
	URL string `env:"URL" envDefault:"ws://localhost:8536/api/v1/ws"`

	// Origin is sent in the websocket handshake.
	Origin string `env:"ORIGIN" envDefault:"http://localhost/"`

	// PostID is the post to watch.
	PostID int64 `env:"POST_ID"`

	// Sort is the initial sort mode.
	Sort model.SortMode `env:"SORT" envDefault:"hot"`

	RetryDelay time.Duration `env:"RETRY_DELAY" envDefault:"3s"`
	RetryMax   int           `env:"RETRY_MAX" envDefault:"10"`

	// Journal is the SQLite path of the event journal. Empty disables it.
	Journal string `env:"JOURNAL"`

	CacheSize int `env:"CACHE_SIZE" envDefault:"8"`

	Rank rank.Config `envPrefix:"RANK_"`
}

// Default returns the built-in defaults, ignoring the environment.
func Default() Config {
	cfg, err := FromEnv(map[string]string{})
	if err != nil {
		// Only malformed defaults can fail here.
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// FromEnv parses defaults and THREADVIEW_* variables from environ. A nil
// environ reads the process environment.
func FromEnv(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Load reads the process environment, overlays the file at path if path is
// not empty, and validates the result.
func Load(path string) (Config, error) {
	return load(nil, path)
}

func load(environ map[string]string, path string) (Config, error) {
	cfg, err := FromEnv(environ)
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		if err := cfg.OverlayFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if !c.Sort.Valid() {
		return fmt.Errorf("invalid sort mode %d", int(c.Sort))
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("retry max must not be negative, got %d", c.RetryMax)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must not be negative, got %s", c.RetryDelay)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative, got %d", c.CacheSize)
	}
	if c.PostID < 0 {
		return fmt.Errorf("post id must not be negative, got %d", c.PostID)
	}
	if err := c.Rank.Validate(); err != nil {
		return err
	}
	return nil
}
