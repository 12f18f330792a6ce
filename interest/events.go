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

package interest

import (
	"github.com/google/uuid"

	"github.com/tochemey/hydrate/event"
	"github.com/tochemey/hydrate/eventlog"
)

// InterestRegistered is appended to an Interested entity when an edge is added.
type InterestRegistered struct {
	Concerned          Ref    `json:"concerned"`
	OriginatingEventID string `json:"originatingEventId"`
}

// InterestRemoved is appended to an Interested entity when an edge is removed.
type InterestRemoved struct {
	Concerned          Ref    `json:"concerned"`
	OriginatingEventID string `json:"originatingEventId"`
}

// InterestReceived is appended to a Concerned entity when an edge is added.
type InterestReceived struct {
	Interested         Ref    `json:"interested"`
	OriginatingEventID string `json:"originatingEventId"`
}

// InterestRevoked is appended to a Concerned entity when an edge is removed.
type InterestRevoked struct {
	Interested         Ref    `json:"interested"`
	OriginatingEventID string `json:"originatingEventId"`
}

var codec = newCodec()

func newCodec() *event.Registry {
	r := event.NewRegistry()
	event.MustRegister[InterestRegistered](r, "dcb.interest-registered")
	event.MustRegister[InterestRemoved](r, "dcb.interest-removed")
	event.MustRegister[InterestReceived](r, "dcb.interest-received")
	event.MustRegister[InterestRevoked](r, "dcb.interest-revoked")
	return r
}

// Writes are the mirrored events of one edge transition.
type Writes struct {
	Manifest Manifest
	// Concerned goes to ConcernedSwimlane, Key(Manifest.Concerned.StreamName).
	Concerned eventlog.Candidate
	// Interested goes to InterestedSwimlane, Key(Manifest.Interested.StreamName).
	Interested eventlog.Candidate
}

// Registration builds the events adding the edge of manifest. Each event
// gets its own event id; the rest of metadata is shared.
func Registration(manifest Manifest, originatingEventID string, metadata eventlog.Metadata) (*Writes, error) {
	return writes(manifest, metadata,
		InterestReceived{Interested: manifest.Interested, OriginatingEventID: originatingEventID},
		InterestRegistered{Concerned: manifest.Concerned, OriginatingEventID: originatingEventID})
}

// Removal builds the events removing the edge of manifest.
func Removal(manifest Manifest, originatingEventID string, metadata eventlog.Metadata) (*Writes, error) {
	return writes(manifest, metadata,
		InterestRevoked{Interested: manifest.Interested, OriginatingEventID: originatingEventID},
		InterestRemoved{Concerned: manifest.Concerned, OriginatingEventID: originatingEventID})
}

func writes(manifest Manifest, metadata eventlog.Metadata, concerned, interested any) (*Writes, error) {
	metadata.EventID = uuid.NewString()
	concernedSide, err := codec.Encode(concerned, metadata)
	if err != nil {
		return nil, err
	}
	metadata.EventID = uuid.NewString()
	interestedSide, err := codec.Encode(interested, metadata)
	if err != nil {
		return nil, err
	}
	return &Writes{Manifest: manifest, Concerned: concernedSide, Interested: interestedSide}, nil
}
