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
	"github.com/tochemey/hydrate/cache"
	"github.com/tochemey/hydrate/eventlog"
)

// fold accumulates the state and bookkeeping of one fetch.
type fold[T any] struct {
	state    T
	exists   bool
	revision int64
	global   int64
	span     cache.Span
}

func newFold[T any](initial T) *fold[T] {
	return &fold[T]{state: initial, revision: -1, global: -1}
}

func (f *fold[T]) resume(state T, revision, global int64, span cache.Span) {
	f.state = state
	f.revision = revision
	f.global = global
	f.span = span
	f.exists = !span.FirstEventAt.IsZero()
}

// observe records positions for every record and timestamps for folded
// own-stream records only.
func (f *fold[T]) observe(record *eventlog.Record, own, folded bool) {
	f.global = max(f.global, int64(record.GlobalPosition))
	if !own {
		return
	}
	f.revision = int64(record.StreamPosition)
	if folded {
		f.exists = true
		f.span = f.span.Observe(record.Metadata.CreatedAt, record.Metadata.ActorID)
	}
}

func (f *fold[T]) result() *Result[T] {
	return &Result[T]{
		State:          f.state,
		Exists:         f.exists,
		Revision:       f.revision,
		GlobalPosition: f.global,
		FirstEventAt:   f.span.FirstEventAt,
		LastEventAt:    f.span.LastEventAt,
		FirstActor:     f.span.FirstActor,
		LastActor:      f.span.LastActor,
	}
}
