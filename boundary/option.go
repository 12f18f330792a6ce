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

package boundary

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/hydrate/entity"
	"github.com/tochemey/hydrate/identity"
	"github.com/tochemey/hydrate/log"
)

// Option is the interface that applies a Daemon option.
type Option interface {
	// Apply sets the Option value of a Daemon.
	Apply(*Daemon)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Daemon)

// Apply applies the option.
func (f OptionFunc) Apply(d *Daemon) {
	f(d)
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(d *Daemon) {
		d.logger = logger
	})
}

// WithRetryDelay sets the fixed delay before a failed loop resumes.
func WithRetryDelay(delay time.Duration) Option {
	return OptionFunc(func(d *Daemon) {
		d.retryDelay = delay
	})
}

// WithSwimlanes restricts the events the triggers are evaluated on.
func WithSwimlanes(swimlanes ...identity.Swimlane) Option {
	return OptionFunc(func(d *Daemon) {
		d.swimlanes = swimlanes
	})
}

// WithMeterProvider sets the meter provider of the daemon metrics.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(d *Daemon) {
		d.meterProvider = provider
	})
}

// WithEntities makes the daemon drop manifests whose streams no fetcher in
// entities owns, or whose id tag disagrees with the owning swimlane.
func WithEntities(entities *entity.Registry) Option {
	return OptionFunc(func(d *Daemon) {
		d.entities = entities
	})
}
