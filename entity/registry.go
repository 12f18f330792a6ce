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
	"context"
	"fmt"

	"github.com/tochemey/hydrate/errors"
	"github.com/tochemey/hydrate/identity"
	"github.com/tochemey/hydrate/internal/xsync"
)

// RevisionFetcher lets a fold look up other entities. Fetch is consistent
// with the event being folded; LatestFetch reads the current state.
// Fetching a swimlane without a registered fetcher panics with an error
// wrapping errors.ErrFetcherNotRegistered.
type RevisionFetcher interface {
	Fetch(ctx context.Context, swimlane identity.Swimlane, id identity.StreamID) (*Result[any], error)
	LatestFetch(ctx context.Context, swimlane identity.Swimlane, id identity.StreamID) (*Result[any], error)
}

type registrant interface {
	Swimlane() identity.Swimlane
	idBinding() (string, identity.Decoder)
	fetchAny(ctx context.Context, id identity.StreamID, opts ...FetchOption) (*Result[any], error)
}

// Registry maps swimlanes to fetchers. Every fetcher also binds its id tag
// in an identity.Registry, so swimlanes stay disjoint and stream names can
// be resolved back to their entity type.
type Registry struct {
	fetchers *xsync.Map[identity.Swimlane, registrant]
	ids      *identity.Registry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		fetchers: xsync.NewMap[identity.Swimlane, registrant](),
		ids:      identity.NewRegistry(),
	}
}

// Register adds a fetcher. It fails with errors.ErrSwimlaneConflict when
// the swimlane equals, prefixes or is prefixed by a registered one.
func (r *Registry) Register(fetcher registrant) error {
	swimlane := fetcher.Swimlane()
	tag, decode := fetcher.idBinding()
	if err := r.ids.Register(tag, swimlane, decode); err != nil {
		return fmt.Errorf("entity: register fetcher for swimlane=(%s): %w", swimlane, err)
	}
	if _, stored := r.fetchers.SetIfAbsent(swimlane, fetcher); !stored {
		return fmt.Errorf("entity: fetcher for swimlane=(%s) already registered: %w", swimlane, errors.ErrSwimlaneConflict)
	}
	return nil
}

// IDs returns the tag registry the fetchers are bound in.
func (r *Registry) IDs() *identity.Registry {
	return r.ids
}

// Resolve returns the swimlane owning streamName and the decoded id.
func (r *Registry) Resolve(streamName string) (identity.Swimlane, identity.StreamID, error) {
	return r.ids.Resolve(streamName)
}

// At returns a RevisionFetcher whose Fetch is bounded by the global
// position of the event being folded.
func (r *Registry) At(position uint64) RevisionFetcher {
	return &revisionFetcher{registry: r, position: position, bounded: true}
}

// Latest returns a RevisionFetcher that never bounds its reads.
func (r *Registry) Latest() RevisionFetcher {
	return &revisionFetcher{registry: r}
}

func (r *Registry) lookup(swimlane identity.Swimlane) registrant {
	fetcher, ok := r.fetchers.Get(swimlane)
	if !ok {
		panic(errors.NewErrFetcherNotRegistered(string(swimlane)))
	}
	return fetcher
}

type revisionFetcher struct {
	registry *Registry
	position uint64
	bounded  bool
}

func (f *revisionFetcher) Fetch(ctx context.Context, swimlane identity.Swimlane, id identity.StreamID) (*Result[any], error) {
	if !f.bounded {
		return f.LatestFetch(ctx, swimlane, id)
	}
	return f.registry.lookup(swimlane).fetchAny(ctx, id, UpTo(f.position))
}

func (f *revisionFetcher) LatestFetch(ctx context.Context, swimlane identity.Swimlane, id identity.StreamID) (*Result[any], error) {
	return f.registry.lookup(swimlane).fetchAny(ctx, id)
}

// FetchAs fetches through fetcher and asserts the state type.
func FetchAs[T any](ctx context.Context, fetcher RevisionFetcher, swimlane identity.Swimlane, id identity.StreamID) (*Result[T], error) {
	return typed[T](fetcher.Fetch(ctx, swimlane, id))
}

// LatestFetchAs is FetchAs without the position bound.
func LatestFetchAs[T any](ctx context.Context, fetcher RevisionFetcher, swimlane identity.Swimlane, id identity.StreamID) (*Result[T], error) {
	return typed[T](fetcher.LatestFetch(ctx, swimlane, id))
}

func typed[T any](res *Result[any], err error) (*Result[T], error) {
	if err != nil {
		return nil, err
	}
	state, ok := res.State.(T)
	if !ok {
		var zero T
		return nil, fmt.Errorf("entity: state is %T, not %T", res.State, zero)
	}
	return &Result[T]{
		State:          state,
		Exists:         res.Exists,
		Revision:       res.Revision,
		GlobalPosition: res.GlobalPosition,
		FirstEventAt:   res.FirstEventAt,
		LastEventAt:    res.LastEventAt,
		FirstActor:     res.FirstActor,
		LastActor:      res.LastActor,
	}, nil
}
