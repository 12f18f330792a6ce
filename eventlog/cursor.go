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
	"io"
	"math"
)

// DefaultPageSize is the number of rows scanned per page.
const DefaultPageSize = 256

// Page is one batch returned by a PageFunc. Records may hold fewer
// entries than were scanned when the backend filters rows.
type Page struct {
	Records []*Record
	// Next is the key the following page starts at.
	Next uint64
	// Done is true when the backend has no more rows.
	Done bool
}

// PageFunc scans up to limit rows starting at key next.
type PageFunc func(ctx context.Context, next uint64, limit int) (Page, error)

// Advance returns the key following last in the given direction and
// whether the range is exhausted.
func Advance(last uint64, direction Direction) (uint64, bool) {
	if direction == Backwards {
		if last == 0 {
			return 0, true
		}
		return last - 1, false
	}
	if last == math.MaxUint64 {
		return last, true
	}
	return last + 1, false
}

// PagedCursor reads a range one page at a time so that no backend
// resource is held between calls.
type PagedCursor struct {
	fetch    PageFunc
	next     uint64
	pageSize int
	buffer   []*Record
	done     bool
}

// enforce compilation error
var _ Cursor = (*PagedCursor)(nil)

// NewPagedCursor creates a cursor starting at key first.
func NewPagedCursor(fetch PageFunc, first uint64, pageSize int) *PagedCursor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &PagedCursor{
		fetch:    fetch,
		next:     first,
		pageSize: pageSize,
	}
}

// EmptyCursor returns a cursor that is already exhausted.
func EmptyCursor() *PagedCursor {
	return &PagedCursor{done: true}
}

// Next returns the next record or io.EOF.
func (c *PagedCursor) Next(ctx context.Context) (*Record, error) {
	for len(c.buffer) == 0 {
		if c.done {
			return nil, io.EOF
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := c.fetch(ctx, c.next, c.pageSize)
		if err != nil {
			return nil, err
		}

		c.buffer = page.Records
		c.next = page.Next
		c.done = page.Done
	}

	record := c.buffer[0]
	c.buffer[0] = nil
	c.buffer = c.buffer[1:]
	return record, nil
}

// Close releases the buffered page.
func (c *PagedCursor) Close() error {
	c.buffer = nil
	c.done = true
	return nil
}
