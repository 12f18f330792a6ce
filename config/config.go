// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package config loads the YAML configuration of an operator deployment.
package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tochemey/hydrate/boundary"
	"github.com/tochemey/hydrate/cache"
	"github.com/tochemey/hydrate/errors"
	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/eventlog/boltdb"
	"github.com/tochemey/hydrate/eventlog/memory"
	"github.com/tochemey/hydrate/eventlog/sqlite"
	"github.com/tochemey/hydrate/identity"
	"github.com/tochemey/hydrate/internal/validation"
	"github.com/tochemey/hydrate/log"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendBoltDB = "boltdb"
	BackendSQLite = "sqlite"
)

// Config describes a deployment.
type Config struct {
	LogLevel string        `yaml:"log_level"`
	Backend  BackendConfig `yaml:"backend"`
	Cache    CacheConfig   `yaml:"cache"`
	Daemon   DaemonConfig  `yaml:"daemon"`
}

// BackendConfig selects and tunes the event log.
type BackendConfig struct {
	Kind         string        `yaml:"kind"` // memory | boltdb | sqlite
	Path         string        `yaml:"path"`
	MaxPayload   int           `yaml:"max_payload"`
	PageSize     int           `yaml:"page_size"`
	PollInterval time.Duration `yaml:"poll_interval"` // sqlite only
}

// CacheConfig tunes the entity caches.
type CacheConfig struct {
	Capacity           int           `yaml:"capacity"`
	Shards             int           `yaml:"shards"`
	SlidingExpiration  time.Duration `yaml:"sliding_expiration"`
	AbsoluteExpiration time.Duration `yaml:"absolute_expiration"`
}

// DaemonConfig tunes the consistency boundary daemon.
type DaemonConfig struct {
	RetryDelay time.Duration `yaml:"retry_delay"`
	Swimlanes  []string      `yaml:"swimlanes"`
}

// Default returns the default configuration: an in-memory log.
func Default() *Config {
	return &Config{
		LogLevel: log.InfoLevel.String(),
		Backend: BackendConfig{
			Kind:         BackendMemory,
			MaxPayload:   1 << 20,
			PageSize:     eventlog.DefaultPageSize,
			PollInterval: time.Second,
		},
		Cache: CacheConfig{
			Capacity: 10_000,
			Shards:   16,
		},
		Daemon: DaemonConfig{
			RetryDelay: time.Second,
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	_, levelErr := log.ParseLevel(c.LogLevel)

	chain := validation.New(validation.AllErrors()).
		AddAssertion(levelErr == nil, fmt.Sprintf("the [log_level] %q is invalid", c.LogLevel)).
		AddValidator(validation.NewOneOfValidator("backend.kind", c.Backend.Kind, BackendMemory, BackendBoltDB, BackendSQLite)).
		AddAssertion(c.Backend.MaxPayload >= 0, "the [backend.max_payload] must not be negative").
		AddAssertion(c.Backend.PageSize > 0, "the [backend.page_size] must be positive").
		AddValidator(validation.NewOptionalDurationValidator("backend.poll_interval", c.Backend.PollInterval)).
		AddAssertion(c.Cache.Capacity > 0, "the [cache.capacity] must be positive").
		AddAssertion(c.Cache.Shards > 0, "the [cache.shards] must be positive").
		AddValidator(validation.NewOptionalDurationValidator("cache.sliding_expiration", c.Cache.SlidingExpiration)).
		AddValidator(validation.NewOptionalDurationValidator("cache.absolute_expiration", c.Cache.AbsoluteExpiration)).
		AddAssertion(c.Cache.SlidingExpiration == 0 || c.Cache.AbsoluteExpiration == 0,
			"the [cache.sliding_expiration] and [cache.absolute_expiration] are mutually exclusive").
		AddValidator(validation.NewDurationValidator("daemon.retry_delay", c.Daemon.RetryDelay))

	if c.Backend.Kind != BackendMemory {
		chain.AddValidator(validation.NewEmptyStringValidator("backend.path", c.Backend.Path))
	}
	for _, swimlane := range c.Daemon.Swimlanes {
		chain.AddValidator(validation.NewEmptyStringValidator("daemon.swimlanes", swimlane))
	}

	if err := chain.Validate(); err != nil {
		return errors.NewErrInvalidConfig(err)
	}
	return nil
}

// Logger builds the zap logger at the configured level, writing to
// stdout unless writers are given.
func (c *Config) Logger(writers ...io.Writer) log.Logger {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if len(writers) == 0 {
		writers = []io.Writer{os.Stdout}
	}
	return log.NewZap(level, writers...)
}

// OpenLog opens the configured event log.
func (c *Config) OpenLog(ctx context.Context) (eventlog.Log, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		eventLog eventlog.Log
		err      error
	)
	switch c.Backend.Kind {
	case BackendMemory:
		eventLog, err = memory.New(memory.WithMaxPayload(c.Backend.MaxPayload), memory.WithPageSize(c.Backend.PageSize))
	case BackendBoltDB:
		eventLog, err = boltdb.Open(c.Backend.Path, boltdb.WithMaxPayload(c.Backend.MaxPayload), boltdb.WithPageSize(c.Backend.PageSize))
	case BackendSQLite:
		eventLog, err = sqlite.Open(c.Backend.Path,
			sqlite.WithMaxPayload(c.Backend.MaxPayload),
			sqlite.WithPageSize(c.Backend.PageSize),
			sqlite.WithPollInterval(c.Backend.PollInterval))
	default:
		err = errors.NewErrInvalidConfig(fmt.Errorf("unknown backend %q", c.Backend.Kind))
	}
	if err != nil {
		return nil, err
	}
	return eventLog, nil
}

// CacheOptions returns the entity cache options.
func (c *Config) CacheOptions() []cache.Option {
	opts := []cache.Option{cache.WithCapacity(c.Cache.Capacity), cache.WithShards(c.Cache.Shards)}
	if c.Cache.SlidingExpiration > 0 {
		opts = append(opts, cache.WithSlidingExpiration(c.Cache.SlidingExpiration))
	}
	if c.Cache.AbsoluteExpiration > 0 {
		opts = append(opts, cache.WithAbsoluteExpiration(c.Cache.AbsoluteExpiration))
	}
	return opts
}

// DaemonOptions returns the daemon options, logging through logger.
func (c *Config) DaemonOptions(logger log.Logger) []boundary.Option {
	opts := []boundary.Option{boundary.WithLogger(logger), boundary.WithRetryDelay(c.Daemon.RetryDelay)}
	if len(c.Daemon.Swimlanes) > 0 {
		swimlanes := make([]identity.Swimlane, 0, len(c.Daemon.Swimlanes))
		for _, swimlane := range c.Daemon.Swimlanes {
			swimlanes = append(swimlanes, identity.Swimlane(swimlane))
		}
		opts = append(opts, boundary.WithSwimlanes(swimlanes...))
	}
	return opts
}
