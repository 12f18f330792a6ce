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
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/flowchartsman/retry"
	"golang.org/x/sync/singleflight"

	"github.com/tochemey/hydrate/cache"
	hyerrors "github.com/tochemey/hydrate/errors"
	"github.com/tochemey/hydrate/event"
	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/identity"
	"github.com/tochemey/hydrate/log"
	"github.com/tochemey/hydrate/merge"
)

// Fetcher hydrates entities of one type.
type Fetcher[T any] struct {
	log       eventlog.Log
	codec     *event.Registry
	behavior  Behavior[T]
	cache     *cache.Cache[T]
	interests InterestFetcher
	registry  *Registry
	logger    log.Logger
	retrier   *retry.Retrier
	idTag     string
	idDecoder identity.Decoder

	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight
}

// flight is a shared read and the callers still waiting on it.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// New creates a Fetcher.
func New[T any](eventLog eventlog.Log, codec *event.Registry, behavior Behavior[T], opts ...Option) (*Fetcher[T], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.Apply(cfg)
	}

	f := &Fetcher[T]{
		log:       eventLog,
		codec:     codec,
		behavior:  behavior,
		interests: cfg.interests,
		registry:  cfg.registry,
		logger:    cfg.logger,
		retrier:   retry.NewRetrier(max(cfg.maxRetries, 1), cfg.retryDelay, cfg.maxDelay),
		idTag:     cfg.idTag,
		idDecoder: cfg.idDecoder,
		flights:   make(map[string]*flight),
	}
	if f.idTag == "" {
		f.idTag = string(behavior.Swimlane())
	}
	if f.idDecoder == nil {
		f.idDecoder = identity.Tagged(f.idTag)
	}

	if cfg.cacheEnabled {
		c, err := cache.New[T](cfg.cacheOptions...)
		if err != nil {
			return nil, err
		}
		f.cache = c
	}

	if f.registry == nil {
		f.registry = NewRegistry()
	} else if err := f.registry.Register(f); err != nil {
		return nil, err
	}
	return f, nil
}

// Swimlane returns the swimlane of the entity type.
func (f *Fetcher[T]) Swimlane() identity.Swimlane {
	return f.behavior.Swimlane()
}

// Cache returns the fetcher's cache, nil when caching is disabled.
func (f *Fetcher[T]) Cache() *cache.Cache[T] {
	return f.cache
}

// Fetch folds the entity identified by id. A never-written entity yields
// its initial state with Revision -1; this is not an error.
func (f *Fetcher[T]) Fetch(ctx context.Context, id identity.StreamID, opts ...FetchOption) (*Result[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o := new(fetchOptions)
	for _, opt := range opts {
		opt(o)
	}

	streamName := identity.StreamName(f.behavior.Swimlane(), id)
	if o.upTo != nil || o.reset || o.fresh || f.cache == nil {
		return f.fetchWithRetry(ctx, id, streamName, o)
	}

	fl, ch := f.join(ctx, id, streamName, o)
	select {
	case res := <-ch:
		f.leave(streamName, fl, false)
		if res.Err != nil {
			return nil, res.Err
		}
		result := *res.Val.(*Result[T])
		return &result, nil
	case <-ctx.Done():
		f.leave(streamName, fl, true)
		return nil, ctx.Err()
	}
}

// join attaches the caller to the shared read of streamName, starting one
// when none is in flight. The shared read outlives any single caller and is
// cancelled once every caller has left.
func (f *Fetcher[T]) join(ctx context.Context, id identity.StreamID, streamName string, o *fetchOptions) (*flight, <-chan singleflight.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fl, ok := f.flights[streamName]
	if !ok {
		flCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		fl = &flight{ctx: flCtx, cancel: cancel}
		f.flights[streamName] = fl
	}
	fl.waiters++

	ch := f.group.DoChan(streamName, func() (any, error) {
		defer f.land(streamName, fl)
		return f.fetchWithRetry(fl.ctx, id, streamName, o)
	})
	return fl, ch
}

// leave detaches a caller. The last caller to abandon a read cancels it.
func (f *Fetcher[T]) leave(streamName string, fl *flight, abandoned bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fl.waiters--
	if !abandoned || fl.waiters > 0 {
		return
	}
	fl.cancel()
	if f.flights[streamName] == fl {
		delete(f.flights, streamName)
		f.group.Forget(streamName)
	}
}

func (f *Fetcher[T]) land(streamName string, fl *flight) {
	f.mu.Lock()
	if f.flights[streamName] == fl {
		delete(f.flights, streamName)
	}
	f.mu.Unlock()
	fl.cancel()
}

func (f *Fetcher[T]) fetchWithRetry(ctx context.Context, id identity.StreamID, streamName string, o *fetchOptions) (*Result[T], error) {
	var (
		result   *Result[T]
		terminal error
	)

	err := f.retrier.RunContext(ctx, func(ctx context.Context) error {
		res, err := f.fetch(ctx, id, streamName, o)
		if err == nil {
			result = res
			return nil
		}
		if !transient(err) {
			terminal = err
			return retry.Stop(err)
		}
		f.logger.Warnf("fetch of stream=(%s) failed, retrying: %v", streamName, err)
		return err
	})

	switch {
	case terminal != nil:
		return nil, terminal
	case err != nil:
		return nil, fmt.Errorf("entity: fetch stream=(%s): %w", streamName, err)
	default:
		return result, nil
	}
}

func (f *Fetcher[T]) fetch(ctx context.Context, id identity.StreamID, streamName string, o *fetchOptions) (*Result[T], error) {
	// every read of this fetch is capped at the head observed now
	head, exists, err := f.log.Head(ctx)
	if err != nil {
		return nil, err
	}

	if !exists {
		return f.empty(id), nil
	}

	ownUntil := head
	if o.upTo != nil {
		ownUntil = min(*o.upTo, head)
	}

	var dependencies []string
	if f.interests != nil {
		dependencies, err = f.interests.InterestsOf(ctx, streamName)
		if err != nil {
			return nil, err
		}
		dependencies = slices.DeleteFunc(slices.Clone(dependencies), func(s string) bool { return s == streamName })
		slices.Sort(dependencies)
		dependencies = slices.Compact(dependencies)
	}

	var entry cache.Entry[T] = cache.Miss[T]{}
	if f.cache != nil && o.upTo == nil && !o.reset {
		entry = f.cache.Get(streamName)
	}

	if len(dependencies) == 0 {
		return f.fetchSingle(ctx, id, streamName, entry, ownUntil, o.upTo == nil)
	}
	return f.fetchMulti(ctx, id, streamName, dependencies, entry, ownUntil, head, o.upTo == nil)
}

func (f *Fetcher[T]) fetchSingle(ctx context.Context, id identity.StreamID, streamName string, entry cache.Entry[T], until uint64, cacheable bool) (*Result[T], error) {
	fold := newFold(f.behavior.InitialState(id))
	if cached, ok := entry.(cache.SingleStream[T]); ok {
		fold.resume(cached.State, cached.Revision, cached.GlobalPosition, cached.Span)
	}

	cursor, err := f.log.ReadStream(ctx, streamName, uint64(fold.revision+1))
	switch {
	case errors.Is(err, hyerrors.ErrStreamNotFound):
		return fold.result(), nil
	case err != nil:
		return nil, err
	}
	defer cursor.Close()

	for {
		record, err := cursor.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if record.GlobalPosition > until {
			break
		}
		if err := f.apply(ctx, fold, record, true); err != nil {
			return nil, err
		}
	}

	if cacheable && f.cache != nil {
		f.cache.Put(streamName, cache.SingleStream[T]{
			State:          fold.state,
			Revision:       fold.revision,
			GlobalPosition: fold.global,
			Span:           fold.span,
		})
	}
	return fold.result(), nil
}

func (f *Fetcher[T]) fetchMulti(ctx context.Context, id identity.StreamID, streamName string, dependencies []string, entry cache.Entry[T], ownUntil, head uint64, cacheable bool) (*Result[T], error) {
	fold := newFold(f.behavior.InitialState(id))
	bookmarks := make(map[string]int64, len(dependencies))
	for _, dependency := range dependencies {
		bookmarks[dependency] = -1
	}

	// a cached merge is resumable only if it was read over the same streams
	if cached, ok := entry.(cache.MultiStream[T]); ok && sameStreams(cached.Dependencies, dependencies) {
		fold.resume(cached.State, cached.Revision, cached.GlobalPosition, cached.Span)
		maps.Copy(bookmarks, cached.Dependencies)
	}

	requests := make([]merge.Request, 0, len(dependencies)+1)
	requests = append(requests, merge.Request{StreamName: streamName, From: uint64(fold.revision + 1), Until: ownUntil})
	for _, dependency := range dependencies {
		requests = append(requests, merge.Request{StreamName: dependency, From: uint64(bookmarks[dependency] + 1), Until: head})
	}

	reader, err := merge.Open(ctx, f.log, requests...)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	for {
		record, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		own := record.StreamName == streamName
		if err := f.apply(ctx, fold, record, own); err != nil {
			return nil, err
		}
		if !own {
			bookmarks[record.StreamName] = int64(record.StreamPosition)
		}
	}

	if cacheable && f.cache != nil {
		f.cache.Put(streamName, cache.MultiStream[T]{
			State:          fold.state,
			Revision:       fold.revision,
			GlobalPosition: fold.global,
			Dependencies:   bookmarks,
			Span:           fold.span,
		})
	}
	return fold.result(), nil
}

// apply folds one record. Toxic events are skipped but still advance the
// positions.
func (f *Fetcher[T]) apply(ctx context.Context, fold *fold[T], record *eventlog.Record, own bool) error {
	evt := f.codec.Decode(record)
	folded := false
	if evt.IsToxic() {
		toxic, _ := event.Payload[event.Toxic](evt)
		f.logger.Warnf("skipping toxic event stream=(%s) position=%d type=(%s): %s",
			record.StreamName, record.StreamPosition, record.EventType, toxic.Reason)
	} else {
		state, err := f.behavior.HandleEvent(ctx, fold.state, evt, f.registry.At(record.GlobalPosition))
		if err != nil {
			return &FoldError{StreamName: record.StreamName, GlobalPosition: record.GlobalPosition, Err: err}
		}
		fold.state = state
		folded = true
	}
	fold.observe(record, own, folded)
	return nil
}

func (f *Fetcher[T]) empty(id identity.StreamID) *Result[T] {
	return newFold(f.behavior.InitialState(id)).result()
}

func (f *Fetcher[T]) idBinding() (string, identity.Decoder) {
	return f.idTag, f.idDecoder
}

// fetchAny implements registrant for the registry.
func (f *Fetcher[T]) fetchAny(ctx context.Context, id identity.StreamID, opts ...FetchOption) (*Result[any], error) {
	res, err := f.Fetch(ctx, id, opts...)
	if err != nil {
		return nil, err
	}
	return &Result[any]{
		State:          res.State,
		Exists:         res.Exists,
		Revision:       res.Revision,
		GlobalPosition: res.GlobalPosition,
		FirstEventAt:   res.FirstEventAt,
		LastEventAt:    res.LastEventAt,
		FirstActor:     res.FirstActor,
		LastActor:      res.LastActor,
	}, nil
}

func sameStreams(bookmarks map[string]int64, dependencies []string) bool {
	if len(bookmarks) != len(dependencies) {
		return false
	}
	for _, dependency := range dependencies {
		if _, ok := bookmarks[dependency]; !ok {
			return false
		}
	}
	return true
}

// transient reports whether a failed fetch may succeed when retried.
func transient(err error) bool {
	var foldErr *FoldError
	switch {
	case errors.As(err, &foldErr),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, hyerrors.ErrLogClosed):
		return false
	default:
		return true
	}
}
