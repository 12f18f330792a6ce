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

// Package memory implements an in-process event log on top of go-memdb.
package memory

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/go-memdb"
	"go.uber.org/atomic"

	"github.com/tochemey/hydrate/errors"
	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/identity"
)

// Log is an in-memory event log. Reads run on immutable snapshots and
// never block writers; memdb serializes write transactions.
type Log struct {
	db         *memdb.MemDB
	notifier   *eventlog.Notifier
	maxPayload int
	pageSize   int
	closed     *atomic.Bool
}

// enforce compilation error
var _ eventlog.Log = (*Log)(nil)

// Option configures the in-memory log.
type Option func(*Log)

// WithMaxPayload sets the maximum payload size in bytes. Zero disables the check.
func WithMaxPayload(size int) Option {
	return func(l *Log) { l.maxPayload = size }
}

// WithPageSize sets the number of records read per page.
func WithPageSize(size int) Option {
	return func(l *Log) { l.pageSize = size }
}

// New creates an empty in-memory log.
func New(opts ...Option) (*Log, error) {
	db, err := memdb.NewMemDB(eventsSchema)
	if err != nil {
		return nil, fmt.Errorf("memory: create database: %w", err)
	}

	l := &Log{
		db:       db,
		notifier: eventlog.NewNotifier(),
		pageSize: eventlog.DefaultPageSize,
		closed:   atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Insert appends events to the stream of id.
func (l *Log) Insert(ctx context.Context, swimlane identity.Swimlane, id identity.StreamID, mode eventlog.InsertionMode, events []eventlog.Candidate) (*eventlog.InsertResult, error) {
	streamName := identity.StreamName(swimlane, id)
	if err := l.guard(ctx); err != nil {
		return nil, eventlog.NewInsertError(streamName, errors.ErrInsertionFailed, err)
	}

	if err := eventlog.Validate(streamName, events, l.maxPayload); err != nil {
		return nil, err
	}

	txn := l.db.Txn(true)
	defer txn.Abort()

	revision, err := lastRevision(txn, streamName)
	if err != nil {
		return nil, eventlog.NewInsertError(streamName, errors.ErrInsertionFailed, err)
	}

	if err := eventlog.Check(streamName, mode, revision); err != nil {
		return nil, err
	}

	global, err := nextGlobal(txn)
	if err != nil {
		return nil, eventlog.NewInsertError(streamName, errors.ErrInsertionFailed, err)
	}

	stream := uint64(revision + 1)
	for _, event := range events {
		metadata := event.Metadata
		if metadata.CreatedAt.IsZero() {
			metadata.CreatedAt = time.Now().UTC()
		}

		row := &eventRow{
			GlobalPosition: global,
			StreamName:     streamName,
			StreamPosition: stream,
			Swimlane:       swimlane,
			IDTag:          id.Tag(),
			EntityID:       id.StreamID(),
			EventType:      event.EventType,
			Payload:        append([]byte(nil), event.Payload...),
			Metadata:       metadata,
		}

		if err := txn.Insert(eventsTable, row); err != nil {
			return nil, eventlog.NewInsertError(streamName, errors.ErrInsertionFailed, err)
		}
		global++
		stream++
	}

	txn.Commit()
	l.notifier.Notify()

	return &eventlog.InsertResult{
		GlobalPosition: global - 1,
		StreamPosition: stream - 1,
	}, nil
}

// ReadStream reads a stream forwards from the given stream position.
func (l *Log) ReadStream(ctx context.Context, streamName string, from uint64) (eventlog.Cursor, error) {
	if err := l.guard(ctx); err != nil {
		return nil, err
	}

	revision, err := lastRevision(l.db.Txn(false), streamName)
	if err != nil {
		return nil, err
	}
	if revision < 0 {
		return nil, errors.NewErrStreamNotFound(streamName)
	}

	fetch := func(ctx context.Context, next uint64, limit int) (eventlog.Page, error) {
		if err := l.guard(ctx); err != nil {
			return eventlog.Page{}, err
		}
		it, err := l.db.Txn(false).LowerBound(eventsTable, streamIndex, streamName, next)
		if err != nil {
			return eventlog.Page{}, err
		}

		page := eventlog.Page{Records: make([]*eventlog.Record, 0, limit), Done: true}
		for raw := it.Next(); raw != nil; raw = it.Next() {
			row := raw.(*eventRow)
			if row.StreamName != streamName {
				break
			}
			if len(page.Records) == limit {
				page.Done = false
				break
			}
			page.Records = append(page.Records, row.record())
			page.Next = row.StreamPosition + 1
		}
		return page, nil
	}
	return eventlog.NewPagedCursor(fetch, from, l.pageSize), nil
}

// ReadAll reads the log in global order.
func (l *Log) ReadAll(ctx context.Context, from eventlog.Position, direction eventlog.Direction, swimlanes ...identity.Swimlane) (eventlog.Cursor, error) {
	head, exists, err := l.Head(ctx)
	if err != nil {
		return nil, err
	}

	first, ok := eventlog.FirstPosition(from, direction, head, exists)
	if !ok {
		return eventlog.EmptyCursor(), nil
	}

	fetch := func(ctx context.Context, next uint64, limit int) (eventlog.Page, error) {
		if err := l.guard(ctx); err != nil {
			return eventlog.Page{}, err
		}

		txn := l.db.Txn(false)
		var (
			it  memdb.ResultIterator
			err error
		)
		if direction == eventlog.Backwards {
			it, err = txn.ReverseLowerBound(eventsTable, globalIndex, next)
		} else {
			it, err = txn.LowerBound(eventsTable, globalIndex, next)
		}
		if err != nil {
			return eventlog.Page{}, err
		}

		// pages are sized on scanned rows so filtered reads still progress
		var page eventlog.Page
		scanned := 0
		for raw := it.Next(); raw != nil && scanned < limit; raw = it.Next() {
			scanned++
			row := raw.(*eventRow)
			if eventlog.Owned(row.StreamName, swimlanes) {
				page.Records = append(page.Records, row.record())
			}
			page.Next, page.Done = eventlog.Advance(row.GlobalPosition, direction)
		}
		if scanned < limit {
			page.Done = true
		}
		return page, nil
	}
	return eventlog.NewPagedCursor(fetch, first, l.pageSize), nil
}

// SubscribeAll tails the log.
func (l *Log) SubscribeAll(ctx context.Context, from eventlog.Position, swimlanes ...identity.Swimlane) (eventlog.Subscription, error) {
	if err := l.guard(ctx); err != nil {
		return nil, err
	}
	return eventlog.Tail(ctx, l, l.notifier, from, 0, swimlanes...)
}

// Head returns the last global position.
func (l *Log) Head(ctx context.Context) (uint64, bool, error) {
	if err := l.guard(ctx); err != nil {
		return 0, false, err
	}
	raw, err := l.db.Txn(false).Last(eventsTable, globalIndex)
	if err != nil {
		return 0, false, err
	}
	if raw == nil {
		return 0, false, nil
	}
	return raw.(*eventRow).GlobalPosition, true, nil
}

// Close marks the log closed and wakes subscribers.
func (l *Log) Close() error {
	if l.closed.CompareAndSwap(false, true) {
		l.notifier.Notify()
	}
	return nil
}

func (l *Log) guard(ctx context.Context) error {
	if l.closed.Load() {
		return errors.ErrLogClosed
	}
	return ctx.Err()
}

func lastRevision(txn *memdb.Txn, streamName string) (int64, error) {
	it, err := txn.ReverseLowerBound(eventsTable, streamIndex, streamName, uint64(math.MaxUint64))
	if err != nil {
		return -1, err
	}
	raw := it.Next()
	if raw == nil {
		return -1, nil
	}
	row := raw.(*eventRow)
	if row.StreamName != streamName {
		return -1, nil
	}
	return int64(row.StreamPosition), nil
}

func nextGlobal(txn *memdb.Txn) (uint64, error) {
	raw, err := txn.Last(eventsTable, globalIndex)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	return raw.(*eventRow).GlobalPosition + 1, nil
}
