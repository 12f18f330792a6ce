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

package cache

import (
	"time"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*options)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*options)

// Apply applies the option.
func (f OptionFunc) Apply(o *options) {
	f(o)
}

type options struct {
	capacity int
	shards   int
	sliding  time.Duration
	absolute time.Duration
	clock    func() time.Time
}

func defaultOptions() *options {
	return &options{
		capacity: 10_000,
		shards:   16,
		clock:    time.Now,
	}
}

// WithCapacity sets the maximum number of entries kept.
func WithCapacity(capacity int) Option {
	return OptionFunc(func(o *options) {
		o.capacity = capacity
	})
}

// WithShards sets the number of independently locked shards.
func WithShards(shards int) Option {
	return OptionFunc(func(o *options) {
		o.shards = shards
	})
}

// WithSlidingExpiration expires an entry that has not been read or
// written for the given duration.
func WithSlidingExpiration(d time.Duration) Option {
	return OptionFunc(func(o *options) {
		o.sliding = d
	})
}

// WithAbsoluteExpiration expires an entry the given duration after it was
// written, regardless of reads.
func WithAbsoluteExpiration(d time.Duration) Option {
	return OptionFunc(func(o *options) {
		o.absolute = d
	})
}

// WithClock sets the time source. Tests use it to control expiry.
func WithClock(clock func() time.Time) Option {
	return OptionFunc(func(o *options) {
		o.clock = clock
	})
}
