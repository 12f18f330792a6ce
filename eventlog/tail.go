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

package eventlog

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/tochemey/hydrate/identity"
	"github.com/tochemey/hydrate/internal/ticker"
)

// SubscriptionItem is an item yielded by a Subscription.
type SubscriptionItem interface {
	subscriptionItem()
}

// ReadingStarted marks the beginning of a subscription.
type ReadingStarted struct{}

// EventAppeared carries the next record of a subscription.
type EventAppeared struct {
	Record *Record
}

func (ReadingStarted) subscriptionItem() {}
func (EventAppeared) subscriptionItem()  {}

// Subscription is a live, ordered read of the log.
type Subscription interface {
	// Next blocks until an item is available, the context is done or the
	// subscription is closed.
	Next(ctx context.Context) (SubscriptionItem, error)
	Close() error
}

// Notifier wakes tailing subscriptions after a commit.
type Notifier struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewNotifier creates a Notifier.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{})}
}

// Wait returns a channel closed by the next Notify.
func (n *Notifier) Wait() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ch
}

// Notify wakes every waiter.
func (n *Notifier) Notify() {
	n.mu.Lock()
	close(n.ch)
	n.ch = make(chan struct{})
	n.mu.Unlock()
}

// Tail subscribes to reader from the given position. Readers are woken by
// notifier and, when pollInterval is positive, by a ticker so writes made
// by other processes are observed too. End is resolved against the head at
// the time of the call.
func Tail(ctx context.Context, reader Reader, notifier *Notifier, from Position, pollInterval time.Duration, swimlanes ...identity.Swimlane) (Subscription, error) {
	if _, ok := from.(End); ok {
		head, exists, err := reader.Head(ctx)
		if err != nil {
			return nil, err
		}
		from = Start{}
		if exists {
			from = After{Position: head}
		}
	}

	sub := &tail{
		reader:    reader,
		notifier:  notifier,
		next:      from,
		swimlanes: swimlanes,
		closed:    make(chan struct{}),
	}

	if pollInterval > 0 {
		sub.ticker = ticker.New(pollInterval)
		sub.ticker.Start()
	}
	return sub, nil
}

type tail struct {
	reader    Reader
	notifier  *Notifier
	swimlanes []identity.Swimlane
	ticker    *ticker.Ticker

	mu      sync.Mutex
	next    Position
	cursor  Cursor
	started bool

	closeOnce sync.Once
	closed    chan struct{}
}

func (t *tail) Next(ctx context.Context) (SubscriptionItem, error) {
	for {
		select {
		case <-t.closed:
			return nil, ErrSubscriptionClosed
		default:
		}

		item, wake, err := t.poll(ctx)
		if err != nil || item != nil {
			return item, err
		}

		var ticks <-chan time.Time
		if t.ticker != nil {
			ticks = t.ticker.Ticks
		}

		select {
		case <-wake:
		case <-ticks:
		case <-t.closed:
			return nil, ErrSubscriptionClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// poll returns the next available item, or the channel to wait on when
// the log is drained. The channel is captured before reading so a commit
// made during the read is never missed.
func (t *tail) poll(ctx context.Context) (SubscriptionItem, <-chan struct{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		t.started = true
		return ReadingStarted{}, nil, nil
	}

	for {
		var wake <-chan struct{}
		fresh := t.cursor == nil
		if fresh {
			wake = t.notifier.Wait()
			cursor, err := t.reader.ReadAll(ctx, t.next, Forwards, t.swimlanes...)
			if err != nil {
				return nil, nil, err
			}
			t.cursor = cursor
		}

		record, err := t.cursor.Next(ctx)
		switch {
		case err == nil:
			t.next = After{Position: record.GlobalPosition}
			return EventAppeared{Record: record}, nil, nil
		case errors.Is(err, io.EOF):
			_ = t.cursor.Close()
			t.cursor = nil
			if !fresh {
				// opened by an earlier call: read again before sleeping
				continue
			}
			return nil, wake, nil
		default:
			_ = t.cursor.Close()
			t.cursor = nil
			return nil, nil, err
		}
	}
}

func (t *tail) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
		if t.ticker != nil {
			t.ticker.Stop()
		}
		t.mu.Lock()
		if t.cursor != nil {
			_ = t.cursor.Close()
			t.cursor = nil
		}
		t.mu.Unlock()
	})
	return nil
}
