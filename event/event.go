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

// Package event maps stored records to typed domain events.
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/identity"
)

// Event is a decoded record.
type Event struct {
	Type           string
	Payload        any
	StreamName     string
	Swimlane       identity.Swimlane
	IDTag          string
	EntityID       string
	Metadata       eventlog.Metadata
	GlobalPosition uint64
	StreamPosition uint64
}

// Toxic is the payload of an event that could not be decoded. It keeps the
// raw bytes for inspection and never contributes to a fold.
type Toxic struct {
	Reason string
	Raw    []byte
}

// IsToxic reports whether the event failed to decode.
func (e *Event) IsToxic() bool {
	_, ok := e.Payload.(Toxic)
	return ok
}

// ID returns the typed stream id of the event owner.
func (e *Event) ID() identity.StreamID {
	return identity.NewID(e.IDTag, e.EntityID)
}

// Payload returns the event payload as E.
func Payload[E any](e *Event) (E, bool) {
	payload, ok := e.Payload.(E)
	return payload, ok
}

// NewMetadata stamps a fresh event id and the current time.
func NewMetadata(actor, correlation, causation string) eventlog.Metadata {
	return eventlog.Metadata{
		EventID:       uuid.NewString(),
		CorrelationID: correlation,
		CausationID:   causation,
		ActorID:       actor,
		CreatedAt:     time.Now().UTC(),
	}
}

// CausedBy returns metadata for an event emitted in reaction to cause:
// it shares the correlation id and uses cause's id as causation id.
func CausedBy(cause *Event, actor string) eventlog.Metadata {
	correlation := cause.Metadata.CorrelationID
	if correlation == "" {
		correlation = cause.Metadata.EventID
	}
	return NewMetadata(actor, correlation, cause.Metadata.EventID)
}
