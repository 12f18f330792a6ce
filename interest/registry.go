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

package interest

import (
	"context"
	"slices"

	"github.com/tochemey/hydrate/cache"
	"github.com/tochemey/hydrate/entity"
	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/identity"
	"github.com/tochemey/hydrate/log"
)

// Option configures a Registry.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*config)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*config)

// Apply applies the option.
func (f OptionFunc) Apply(c *config) {
	f(c)
}

type config struct {
	logger       log.Logger
	cacheOptions []cache.Option
	entities     *entity.Registry
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(c *config) {
		c.logger = logger
	})
}

// WithCache sets the options of both interest entity caches.
func WithCache(opts ...cache.Option) Option {
	return OptionFunc(func(c *config) {
		c.cacheOptions = opts
	})
}

// WithEntities registers both interest fetchers in entities, which reserves
// the interest swimlanes against the entity types of the application.
func WithEntities(entities *entity.Registry) Option {
	return OptionFunc(func(c *config) {
		c.entities = entities
	})
}

// Registry answers which streams an entity depends on. It implements
// entity.InterestFetcher.
type Registry struct {
	interested *entity.Fetcher[Interested]
	concerned  *entity.Fetcher[Concerned]
}

var _ entity.InterestFetcher = (*Registry)(nil)

// NewRegistry creates a Registry reading the interest entities from eventLog.
func NewRegistry(eventLog eventlog.Log, opts ...Option) (*Registry, error) {
	cfg := &config{logger: log.DefaultLogger}
	for _, opt := range opts {
		opt.Apply(cfg)
	}

	// the interest entities never depend on other streams
	common := []entity.Option{entity.WithCache(cfg.cacheOptions...), entity.WithLogger(cfg.logger)}
	if cfg.entities != nil {
		common = append(common, entity.WithRegistry(cfg.entities))
	}

	interested, err := entity.New[Interested](eventLog, codec, interestedBehavior{},
		append(slices.Clip(common), entity.WithIDTag("dcb.interested", decodeKey))...)
	if err != nil {
		return nil, err
	}
	concerned, err := entity.New[Concerned](eventLog, codec, concernedBehavior{},
		append(slices.Clip(common), entity.WithIDTag("dcb.concerned", decodeKey))...)
	if err != nil {
		return nil, err
	}
	return &Registry{interested: interested, concerned: concerned}, nil
}

// InterestsOf returns the sorted stream names streamName depends on.
func (r *Registry) InterestsOf(ctx context.Context, streamName string) ([]string, error) {
	res, err := r.Interested(ctx, streamName)
	if err != nil {
		return nil, err
	}
	return res.State.Dependencies(), nil
}

// Interested fetches the Interested entity mirroring streamName.
func (r *Registry) Interested(ctx context.Context, streamName string, opts ...entity.FetchOption) (*entity.Result[Interested], error) {
	return r.interested.Fetch(ctx, Key(streamName), opts...)
}

// Concerned fetches the Concerned entity mirroring streamName.
func (r *Registry) Concerned(ctx context.Context, streamName string, opts ...entity.FetchOption) (*entity.Result[Concerned], error) {
	return r.concerned.Fetch(ctx, Key(streamName), opts...)
}

func decodeKey(streamName string) (identity.StreamID, error) {
	return Key(streamName), nil
}
