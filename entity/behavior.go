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

// Package entity folds event streams into entity state on demand.
//
// A Fetcher reads the entity's own stream and, when the entity has declared
// interest in other streams, merges those streams in global order before
// folding. Folds are memoized in a per-entity-type cache and resumed
// incrementally.
package entity

import (
	"context"
	"fmt"
	"time"

	"github.com/tochemey/hydrate/event"
	"github.com/tochemey/hydrate/identity"
)

// Behavior is the fold of one entity type.
type Behavior[T any] interface {
	// Swimlane returns the stream name prefix of the entity type.
	Swimlane() identity.Swimlane
	// InitialState returns the state of an entity before any event.
	InitialState(id identity.StreamID) T
	// HandleEvent applies an event to the state. Events of dependency
	// streams are handed to the fold too. fetcher looks up other entities
	// consistently with the event being folded.
	HandleEvent(ctx context.Context, state T, evt *event.Event, fetcher RevisionFetcher) (T, error)
}

// InterestFetcher returns the streams an entity currently depends on.
type InterestFetcher interface {
	InterestsOf(ctx context.Context, streamName string) ([]string, error)
}

// Result is the outcome of a fetch.
type Result[T any] struct {
	State T
	// Exists is true when at least one event of the entity's own stream
	// was folded. Dependency events alone do not make an entity exist.
	Exists bool
	// Revision is the last own-stream position read, -1 when none.
	Revision int64
	// GlobalPosition is the highest global position read, -1 when none.
	GlobalPosition int64
	FirstEventAt   time.Time
	LastEventAt    time.Time
	FirstActor     string
	LastActor      string
}

// FoldError reports a failure of Behavior.HandleEvent.
type FoldError struct {
	StreamName     string
	GlobalPosition uint64
	Err            error
}

// enforce compilation error
var _ error = (*FoldError)(nil)

func (e *FoldError) Error() string {
	return fmt.Sprintf("fold stream=(%s) position=%d: %v", e.StreamName, e.GlobalPosition, e.Err)
}

func (e *FoldError) Unwrap() error {
	return e.Err
}
