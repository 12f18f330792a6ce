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

// Entry is a cached fold. It is one of Miss, SingleStream or MultiStream.
type Entry[T any] interface {
	isEntry(T)
}

// Span records the first and last events folded into an entry.
type Span struct {
	FirstEventAt time.Time
	LastEventAt  time.Time
	FirstActor   string
	LastActor    string
}

// Observe extends the span with an event.
func (s Span) Observe(at time.Time, actor string) Span {
	if s.FirstEventAt.IsZero() {
		s.FirstEventAt = at
		s.FirstActor = actor
	}
	s.LastEventAt = at
	s.LastActor = actor
	return s
}

// Miss is returned for absent or expired entries.
type Miss[T any] struct{}

// SingleStream caches the fold of an entity without dependencies.
type SingleStream[T any] struct {
	State T
	// Revision is the last stream position folded.
	Revision int64
	// GlobalPosition is the global position of the last folded event.
	GlobalPosition int64
	Span           Span
}

// MultiStream caches the fold of an entity merged with its dependencies.
type MultiStream[T any] struct {
	State T
	// Revision is the last position folded from the entity's own stream.
	Revision int64
	// GlobalPosition is the highest global position observed.
	GlobalPosition int64
	// Dependencies maps each dependency stream to the last position read from it.
	Dependencies map[string]int64
	Span         Span
}

func (Miss[T]) isEntry(T)         {}
func (SingleStream[T]) isEntry(T) {}
func (MultiStream[T]) isEntry(T)  {}
