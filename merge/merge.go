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

// Package merge zips several per-stream reads into one sequence ordered by
// global position.
package merge

import (
	"context"
	"errors"
	"io"
	"math"

	"github.com/Workiva/go-datastructures/queue"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	hyerrors "github.com/tochemey/hydrate/errors"
	"github.com/tochemey/hydrate/eventlog"
)

// Unbounded disables the Until bound of a Request.
const Unbounded uint64 = math.MaxUint64

// StreamReader opens per-stream cursors.
type StreamReader interface {
	ReadStream(ctx context.Context, streamName string, from uint64) (eventlog.Cursor, error)
}

// Request is one stream to merge, read from stream position From. Records
// whose global position is beyond Until end the stream.
type Request struct {
	StreamName string
	From       uint64
	Until      uint64
}

// head is the buffered record of a source. Global positions are unique
// across the log, so the queue order is total.
type head struct {
	record *eventlog.Record
	source int
}

var _ queue.Item = (*head)(nil)

func (h *head) Compare(other queue.Item) int {
	o := other.(*head)
	switch {
	case h.record.GlobalPosition > o.record.GlobalPosition:
		return 1
	case h.record.GlobalPosition < o.record.GlobalPosition:
		return -1
	default:
		return 0
	}
}

type source struct {
	request Request
	cursor  eventlog.Cursor
	done    bool
}

// Stream requests the whole stream from position from.
func Stream(streamName string, from uint64) Request {
	return Request{StreamName: streamName, From: from, Until: Unbounded}
}

// Reader yields the records of every source in global order. A Reader is
// not safe for concurrent use.
type Reader struct {
	sources []*source
	queue   *queue.PriorityQueue
	// refill is the source whose head was returned last and must be
	// advanced before the next pop.
	refill int
}

// Open opens every request and buffers the first record of each
// concurrently. A stream that does not exist is done immediately.
func Open(ctx context.Context, reader StreamReader, requests ...Request) (*Reader, error) {
	r := &Reader{
		sources: make([]*source, len(requests)),
		queue:   queue.NewPriorityQueue(len(requests), true),
		refill:  -1,
	}

	heads := make([]*head, len(requests))
	group, gctx := errgroup.WithContext(ctx)
	for i, request := range requests {
		r.sources[i] = &source{request: request}
		group.Go(func() error {
			cursor, err := reader.ReadStream(gctx, request.StreamName, request.From)
			if errors.Is(err, hyerrors.ErrStreamNotFound) {
				r.sources[i].done = true
				return nil
			}
			if err != nil {
				return err
			}
			r.sources[i].cursor = cursor

			heads[i], err = r.advance(gctx, i)
			return err
		})
	}

	if err := group.Wait(); err != nil {
		_ = r.Close()
		return nil, err
	}

	for _, h := range heads {
		if h != nil {
			if err := r.queue.Put(h); err != nil {
				_ = r.Close()
				return nil, err
			}
		}
	}
	return r, nil
}

// Next returns the record with the lowest global position among the
// sources, or io.EOF once every source is done.
func (r *Reader) Next(ctx context.Context) (*eventlog.Record, error) {
	if r.refill >= 0 {
		h, err := r.advance(ctx, r.refill)
		if err != nil {
			return nil, err
		}
		r.refill = -1
		if h != nil {
			if err := r.queue.Put(h); err != nil {
				return nil, err
			}
		}
	}

	if r.queue.Len() == 0 {
		return nil, io.EOF
	}

	items, err := r.queue.Get(1)
	if err != nil {
		return nil, err
	}

	h := items[0].(*head)
	r.refill = h.source
	return h.record, nil
}

// Close closes every cursor.
func (r *Reader) Close() error {
	var err error
	for _, src := range r.sources {
		if src != nil && src.cursor != nil {
			err = multierr.Append(err, src.cursor.Close())
			src.cursor = nil
		}
	}
	r.queue.Dispose()
	return err
}

// advance reads the next record of source i. It returns nil when the
// source is done.
func (r *Reader) advance(ctx context.Context, i int) (*head, error) {
	src := r.sources[i]
	if src.done {
		return nil, nil
	}

	record, err := src.cursor.Next(ctx)
	if errors.Is(err, io.EOF) {
		src.done = true
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if src.request.Until != Unbounded && record.GlobalPosition > src.request.Until {
		src.done = true
		return nil, nil
	}
	return &head{record: record, source: i}, nil
}
