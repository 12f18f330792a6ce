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

// Package eventlog defines the append-only, globally ordered event log
// consumed by the hydration core, together with the helpers shared by
// every backend: insertion mode checks, read ranges, paged cursors and
// a tailing subscription.
package eventlog

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/tochemey/hydrate/identity"
)

// ErrSubscriptionClosed is returned by Subscription.Next after Close.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Metadata is the envelope information attached to every event.
type Metadata struct {
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	CausationID   string    `json:"causationId,omitempty"`
	ActorID       string    `json:"actorId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Candidate is an event ready to be inserted.
type Candidate struct {
	EventType string
	Payload   []byte
	Metadata  Metadata
}

// Record is a stored event. Stream and global positions are dense and
// zero-based.
type Record struct {
	StreamName     string
	Swimlane       identity.Swimlane
	IDTag          string
	EntityID       string
	EventType      string
	Payload        []byte
	Metadata       Metadata
	GlobalPosition uint64
	StreamPosition uint64
}

// InsertResult reports the positions of the last inserted event.
type InsertResult struct {
	GlobalPosition uint64
	StreamPosition uint64
}

// Cursor is a forward-only, resumable read. Next returns io.EOF once the
// read is exhausted.
type Cursor interface {
	Next(ctx context.Context) (*Record, error)
	Close() error
}

// Reader is the read side every backend provides.
type Reader interface {
	// ReadAll reads the whole log in the given direction, optionally
	// restricted to the streams owned by the given swimlanes.
	ReadAll(ctx context.Context, from Position, direction Direction, swimlanes ...identity.Swimlane) (Cursor, error)
	// Head returns the last global position. The boolean is false when
	// the log is empty.
	Head(ctx context.Context) (uint64, bool, error)
}

// Log is the event log collaborator.
type Log interface {
	Reader
	// ReadStream reads one stream forwards from the given stream position.
	// It fails with errors.ErrStreamNotFound when the stream was never written.
	ReadStream(ctx context.Context, streamName string, from uint64) (Cursor, error)
	// SubscribeAll tails the log. The first item is always ReadingStarted.
	SubscribeAll(ctx context.Context, from Position, swimlanes ...identity.Swimlane) (Subscription, error)
	// Insert appends the candidates to the stream of id in swimlane.
	// Failures are reported as *InsertError.
	Insert(ctx context.Context, swimlane identity.Swimlane, id identity.StreamID, mode InsertionMode, events []Candidate) (*InsertResult, error)
	// Close releases the backend. Every later call fails with errors.ErrLogClosed.
	Close() error
}

// Collect drains the cursor and closes it.
func Collect(ctx context.Context, cursor Cursor) ([]*Record, error) {
	defer cursor.Close()
	var records []*Record
	for {
		record, err := cursor.Next(ctx)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, record)
	}
}

// Owned reports whether the stream name belongs to one of the swimlanes.
// An empty filter matches every stream.
func Owned(streamName string, swimlanes []identity.Swimlane) bool {
	if len(swimlanes) == 0 {
		return true
	}
	for _, swimlane := range swimlanes {
		if swimlane.Owns(streamName) {
			return true
		}
	}
	return false
}
