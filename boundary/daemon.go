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

// Package boundary runs the consistency boundary daemon, which turns
// trigger matches into interest edges.
//
// The daemon owns two loops. The live loop tails the log from the head
// observed at startup. The sweep loop reads the log once from the start up
// to that same head so edges implied by older events exist too. Both loops
// apply the same idempotent evaluation, keyed by the originating event id,
// and retry forever after a fixed delay without skipping forward.
package boundary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/hydrate/entity"
	hyerrors "github.com/tochemey/hydrate/errors"
	"github.com/tochemey/hydrate/event"
	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/identity"
	"github.com/tochemey/hydrate/interest"
	"github.com/tochemey/hydrate/log"
)

// ActorID is the actor recorded on the interest events the daemon writes.
const ActorID = "dcb.daemon"

const defaultRetryDelay = time.Second

// Daemon maintains the interest registry.
type Daemon struct {
	log       eventlog.Log
	codec     *event.Registry
	interests *interest.Registry
	triggers  []interest.Trigger

	logger        log.Logger
	retryDelay    time.Duration
	swimlanes     []identity.Swimlane
	meterProvider metric.MeterProvider
	entities      *entity.Registry

	mu           sync.Mutex
	started      *atomic.Bool
	cancel       context.CancelFunc
	done         chan struct{}
	err          error
	registration metric.Registration

	processed     *atomic.Int64
	sweepPosition *atomic.Int64
	sweepTip      *atomic.Int64
	sweepComplete *atomic.Bool
	registered    *atomic.Int64
	removed       *atomic.Int64
	errorCount    *atomic.Int64
}

// New creates a Daemon. codec decodes the events handed to triggers.
func New(eventLog eventlog.Log, codec *event.Registry, interests *interest.Registry, triggers []interest.Trigger, opts ...Option) *Daemon {
	d := &Daemon{
		log:           eventLog,
		codec:         codec,
		interests:     interests,
		triggers:      triggers,
		logger:        log.DefaultLogger,
		retryDelay:    defaultRetryDelay,
		started:       atomic.NewBool(false),
		processed:     atomic.NewInt64(-1),
		sweepPosition: atomic.NewInt64(-1),
		sweepTip:      atomic.NewInt64(-1),
		sweepComplete: atomic.NewBool(false),
		registered:    atomic.NewInt64(0),
		removed:       atomic.NewInt64(0),
		errorCount:    atomic.NewInt64(0),
	}
	for _, opt := range opts {
		opt.Apply(d)
	}
	return d
}

// Start launches the live and sweep loops. The loops outlive ctx and run
// until Stop; only the values of ctx are kept.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started.CompareAndSwap(false, true) {
		return hyerrors.ErrDaemonStarted
	}

	if err := d.registerMetrics(); err != nil {
		d.started.Store(false)
		return fmt.Errorf("boundary: register metrics: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	d.done = make(chan struct{})
	d.err = nil
	d.sweepComplete.Store(false)

	go func() {
		err := d.run(runCtx)
		d.mu.Lock()
		d.err = err
		d.mu.Unlock()
		close(d.done)
	}()

	d.logger.Info("consistency boundary daemon started")
	return nil
}

// run supervises both loops. The head observed first splits the work
// between them.
func (d *Daemon) run(ctx context.Context) error {
	origin, err := d.origin(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return d.supervise(egCtx, "live loop", func(ctx context.Context) error { return d.liveLoop(ctx, origin) }) })
	eg.Go(func() error { return d.supervise(egCtx, "sweep loop", func(ctx context.Context) error { return d.sweepLoop(ctx, origin) }) })
	return eg.Wait()
}

// Stop cancels both loops and waits for them, bounded by ctx.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.started.Load() {
		d.mu.Unlock()
		return hyerrors.ErrDaemonNotStarted
	}
	cancel, done, registration := d.cancel, d.done, d.registration
	d.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.started.Store(false)
	d.registration = nil
	if registration != nil {
		if err := registration.Unregister(); err != nil {
			return err
		}
	}
	d.logger.Info("consistency boundary daemon stopped")
	return nil
}

// Wait blocks until both loops have exited and returns the error that ended
// them, nil after a Stop.
func (d *Daemon) Wait() error {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done == nil {
		return hyerrors.ErrDaemonNotStarted
	}
	<-done

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// origin returns the head at startup, -1 for an empty log. Transient
// failures are retried.
func (d *Daemon) origin(ctx context.Context) (int64, error) {
	for {
		head, exists, err := d.log.Head(ctx)
		switch {
		case err == nil && !exists:
			return -1, nil
		case err == nil:
			return int64(head), nil
		case ctx.Err() != nil:
			return -1, ctx.Err()
		case errors.Is(err, hyerrors.ErrLogClosed):
			return -1, err
		}
		d.failed("origin", err)
		if !d.sleep(ctx) {
			return -1, ctx.Err()
		}
	}
}

// supervise runs loop and turns a panic into an error ending the daemon.
func (d *Daemon) supervise(ctx context.Context, name string, loop func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = hyerrors.Recovered(r)
			d.logger.Errorf("%s panicked: %v", name, err)
		}
	}()
	return loop(ctx)
}

// liveLoop processes every event past origin.
func (d *Daemon) liveLoop(ctx context.Context, origin int64) error {
	d.processed.Store(origin)
	for {
		err := d.live(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, hyerrors.ErrLogClosed):
			return err
		}
		d.failed("live loop", err)
		if !d.sleep(ctx) {
			return nil
		}
	}
}

func (d *Daemon) live(ctx context.Context) (err error) {
	var from eventlog.Position = eventlog.Start{}
	if processed := d.processed.Load(); processed >= 0 {
		from = eventlog.After{Position: uint64(processed)}
	}

	sub, err := d.log.SubscribeAll(ctx, from, d.swimlanes...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sub.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for {
		item, err := sub.Next(ctx)
		if err != nil {
			return err
		}
		switch item := item.(type) {
		case eventlog.ReadingStarted:
			d.logger.Infof("live loop reading from %v", from)
		case eventlog.EventAppeared:
			if err := d.process(ctx, item.Record); err != nil {
				return err
			}
			d.processed.Store(int64(item.Record.GlobalPosition))
		}
	}
}

// sweepLoop processes every event up to origin, once.
func (d *Daemon) sweepLoop(ctx context.Context, origin int64) error {
	d.sweepTip.Store(origin)
	d.sweepPosition.Store(-1)
	for {
		err := d.sweep(ctx, origin)
		switch {
		case err == nil:
			d.sweepComplete.Store(true)
			d.logger.Infof("failsafe sweep complete at position=%d", origin)
			return nil
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, hyerrors.ErrLogClosed):
			return err
		}
		d.failed("sweep loop", err)
		if !d.sleep(ctx) {
			return nil
		}
	}
}

func (d *Daemon) sweep(ctx context.Context, tip int64) error {
	if tip < 0 {
		return nil
	}

	var from eventlog.Position = eventlog.Start{}
	if swept := d.sweepPosition.Load(); swept >= 0 {
		from = eventlog.After{Position: uint64(swept)}
	}

	cursor, err := d.log.ReadAll(ctx, from, eventlog.Forwards, d.swimlanes...)
	if err != nil {
		return err
	}
	defer cursor.Close()

	for {
		record, err := cursor.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if record.GlobalPosition > uint64(tip) {
			return nil
		}
		if err := d.process(ctx, record); err != nil {
			return err
		}
		d.sweepPosition.Store(int64(record.GlobalPosition))
	}
}

func (d *Daemon) failed(loop string, err error) {
	d.errorCount.Inc()
	d.logger.Errorf("%s failed, retrying in %s: %v", loop, d.retryDelay, err)
}

// sleep waits for the retry delay. It returns false when ctx is done.
func (d *Daemon) sleep(ctx context.Context) bool {
	timer := time.NewTimer(d.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
