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

// Package boltdb implements a durable, single-file event log on top of
// go.etcd.io/bbolt. Event values are zstd compressed.
package boltdb

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	bbolt "go.etcd.io/bbolt"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/tochemey/hydrate/errors"
	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/identity"
)

const (
	fileMode os.FileMode = 0o600
)

var (
	eventsBucket  = []byte("events")
	streamsBucket = []byte("streams")
	boltTimeout   = 5 * time.Second
)

// Log is a bbolt backed event log.
//
// Layout:
//   - events: big-endian global position -> compressed event
//   - streams/<stream name>: big-endian stream position -> global position
//
// bbolt provides single-writer/multi-reader semantics, so positions are
// allocated inside the write transaction.
type Log struct {
	db         *bbolt.DB
	codec      *codec
	notifier   *eventlog.Notifier
	maxPayload int
	pageSize   int
	closed     *atomic.Bool
}

// enforce compilation error
var _ eventlog.Log = (*Log)(nil)

// Option configures the bbolt log.
type Option func(*Log)

// WithMaxPayload sets the maximum payload size in bytes. Zero disables the check.
func WithMaxPayload(size int) Option {
	return func(l *Log) { l.maxPayload = size }
}

// WithPageSize sets the number of rows scanned per read transaction.
func WithPageSize(size int) Option {
	return func(l *Log) { l.pageSize = size }
}

// Open opens, or creates, the log stored at path.
func Open(path string, opts ...Option) (*Log, error) {
	db, err := bbolt.Open(path, fileMode, &bbolt.Options{Timeout: boltTimeout, NoGrowSync: true})
	if err != nil {
		return nil, fmt.Errorf("boltdb: opening %s: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, e := tx.CreateBucketIfNotExists(eventsBucket); e != nil {
			return e
		}
		_, e := tx.CreateBucketIfNotExists(streamsBucket)
		return e
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("boltdb: initializing buckets: %w", err)
	}

	codec, err := newCodec()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("boltdb: creating codec: %w", err)
	}

	l := &Log{
		db:       db,
		codec:    codec,
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

	result := new(eventlog.InsertResult)
	err := l.db.Update(func(tx *bbolt.Tx) error {
		stream, err := tx.Bucket(streamsBucket).CreateBucketIfNotExists([]byte(streamName))
		if err != nil {
			return eventlog.NewInsertError(streamName, errors.ErrInsertionFailed, err)
		}

		revision := int64(-1)
		if k, _ := stream.Cursor().Last(); k != nil {
			revision = int64(btoi(k))
		}

		if err := eventlog.Check(streamName, mode, revision); err != nil {
			return err
		}

		all := tx.Bucket(eventsBucket)
		global := uint64(0)
		if k, _ := all.Cursor().Last(); k != nil {
			global = btoi(k) + 1
		}

		position := uint64(revision + 1)
		for _, event := range events {
			metadata := event.Metadata
			if metadata.CreatedAt.IsZero() {
				metadata.CreatedAt = time.Now().UTC()
			}

			value, err := l.codec.encode(&storedEvent{
				StreamName:     streamName,
				StreamPosition: position,
				Swimlane:       string(swimlane),
				IDTag:          id.Tag(),
				EntityID:       id.StreamID(),
				EventType:      event.EventType,
				Payload:        event.Payload,
				Metadata:       metadata,
			})
			if err != nil {
				return eventlog.NewInsertError(streamName, errors.ErrInsertionFailed, err)
			}

			if err := multierr.Combine(
				all.Put(itob(global), value),
				stream.Put(itob(position), itob(global)),
			); err != nil {
				return eventlog.NewInsertError(streamName, errors.ErrInsertionFailed, err)
			}

			result.GlobalPosition, result.StreamPosition = global, position
			global++
			position++
		}
		return nil
	})
	if err != nil {
		if insertErr, ok := err.(*eventlog.InsertError); ok {
			return nil, insertErr
		}
		return nil, eventlog.NewInsertError(streamName, errors.ErrInsertionFailed, err)
	}

	l.notifier.Notify()
	return result, nil
}

// ReadStream reads a stream forwards from the given stream position.
func (l *Log) ReadStream(ctx context.Context, streamName string, from uint64) (eventlog.Cursor, error) {
	if err := l.guard(ctx); err != nil {
		return nil, err
	}

	var exists bool
	if err := l.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(streamsBucket).Bucket([]byte(streamName)) != nil
		return nil
	}); err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewErrStreamNotFound(streamName)
	}

	fetch := func(ctx context.Context, next uint64, limit int) (eventlog.Page, error) {
		if err := l.guard(ctx); err != nil {
			return eventlog.Page{}, err
		}

		page := eventlog.Page{Records: make([]*eventlog.Record, 0, limit), Done: true}
		err := l.db.View(func(tx *bbolt.Tx) error {
			stream := tx.Bucket(streamsBucket).Bucket([]byte(streamName))
			all := tx.Bucket(eventsBucket)
			c := stream.Cursor()
			for k, v := c.Seek(itob(next)); k != nil; k, v = c.Next() {
				if len(page.Records) == limit {
					page.Done = false
					return nil
				}
				record, err := l.codec.decode(btoi(v), all.Get(v))
				if err != nil {
					return err
				}
				page.Records = append(page.Records, record)
				page.Next = btoi(k) + 1
			}
			return nil
		})
		return page, err
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

		var page eventlog.Page
		err := l.db.View(func(tx *bbolt.Tx) error {
			c := tx.Bucket(eventsBucket).Cursor()
			k, v := seek(c, itob(next), direction)
			scanned := 0
			for ; k != nil && scanned < limit; scanned++ {
				global := btoi(k)
				record, err := l.codec.decode(global, v)
				if err != nil {
					return err
				}
				if eventlog.Owned(record.StreamName, swimlanes) {
					page.Records = append(page.Records, record)
				}
				page.Next, page.Done = eventlog.Advance(global, direction)

				if direction == eventlog.Backwards {
					k, v = c.Prev()
				} else {
					k, v = c.Next()
				}
			}
			if scanned < limit {
				page.Done = true
			}
			return nil
		})
		return page, err
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

	var (
		head   uint64
		exists bool
	)
	err := l.db.View(func(tx *bbolt.Tx) error {
		if k, _ := tx.Bucket(eventsBucket).Cursor().Last(); k != nil {
			head, exists = btoi(k), true
		}
		return nil
	})
	return head, exists, err
}

// Close closes the database file.
func (l *Log) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.notifier.Notify()
	return multierr.Combine(l.db.Close(), l.codec.close())
}

// Path returns the database file path.
func (l *Log) Path() string {
	return l.db.Path()
}

func (l *Log) guard(ctx context.Context) error {
	if l.closed.Load() {
		return errors.ErrLogClosed
	}
	return ctx.Err()
}

// seek positions the cursor on key or, when absent, on the nearest key in
// the read direction.
func seek(c *bbolt.Cursor, key []byte, direction eventlog.Direction) ([]byte, []byte) {
	k, v := c.Seek(key)
	if direction == eventlog.Forwards {
		return k, v
	}
	if k == nil {
		return c.Last()
	}
	if !bytes.Equal(k, key) {
		return c.Prev()
	}
	return k, v
}
