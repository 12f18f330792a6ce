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

package entity

import (
	"time"

	"github.com/tochemey/hydrate/cache"
	"github.com/tochemey/hydrate/identity"
	"github.com/tochemey/hydrate/log"
)

// Option is the interface that applies a Fetcher option.
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
	cacheEnabled bool
	cacheOptions []cache.Option
	interests    InterestFetcher
	registry     *Registry
	idTag        string
	idDecoder    identity.Decoder
	logger       log.Logger
	maxRetries   int
	retryDelay   time.Duration
	maxDelay     time.Duration
}

func defaultConfig() *config {
	return &config{
		logger:     log.DefaultLogger,
		maxRetries: 3,
		retryDelay: 50 * time.Millisecond,
		maxDelay:   time.Second,
	}
}

// WithCache gives the fetcher its own state cache built with opts.
func WithCache(opts ...cache.Option) Option {
	return OptionFunc(func(c *config) {
		c.cacheEnabled = true
		c.cacheOptions = opts
	})
}

// WithInterests enables the multi-stream path: dependency streams are
// looked up through interests on every fetch.
func WithInterests(interests InterestFetcher) Option {
	return OptionFunc(func(c *config) {
		c.interests = interests
	})
}

// WithRegistry sets the registry folds use to look up other entities.
func WithRegistry(registry *Registry) Option {
	return OptionFunc(func(c *config) {
		c.registry = registry
	})
}

// WithIDTag sets the tag the entity's ids carry and how they are decoded
// when the fetcher joins a Registry. It defaults to the swimlane with
// identity.Tagged.
func WithIDTag(tag string, decode identity.Decoder) Option {
	return OptionFunc(func(c *config) {
		c.idTag = tag
		c.idDecoder = decode
	})
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(c *config) {
		c.logger = logger
	})
}

// WithRetry sets how transient read failures are retried: at most
// maxRetries attempts, backing off from delay up to maxDelay.
func WithRetry(maxRetries int, delay, maxDelay time.Duration) Option {
	return OptionFunc(func(c *config) {
		c.maxRetries = maxRetries
		c.retryDelay = delay
		c.maxDelay = maxDelay
	})
}

// FetchOption tunes a single fetch.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	upTo  *uint64
	reset bool
	fresh bool
}

// UpTo excludes own-stream events past the global position. Dependency
// streams are not bounded. Bounded results are never cached.
func UpTo(position uint64) FetchOption {
	return func(o *fetchOptions) {
		o.upTo = &position
	}
}

// ResetCache discards the cached fold and reads from the start.
func ResetCache() FetchOption {
	return func(o *fetchOptions) {
		o.reset = true
	}
}

// Fresh never joins a fetch already in flight for the stream, so the result
// reflects every write that completed before the call. The cache is still
// read and updated.
func Fresh() FetchOption {
	return func(o *fetchOptions) {
		o.fresh = true
	}
}
