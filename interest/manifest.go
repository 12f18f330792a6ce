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

// Package interest records which streams an entity depends on.
//
// An edge "interested depends on concerned" is persisted as two mirrored
// entities: an Interested entity listing the streams it depends on, and a
// Concerned entity listing its dependants. Both live in reserved swimlanes
// and are written only by the consistency boundary daemon.
package interest

import (
	"github.com/tochemey/hydrate/identity"
)

const (
	// InterestedSwimlane holds one Interested entity per dependant stream.
	InterestedSwimlane identity.Swimlane = "dcb.interested-"
	// ConcernedSwimlane holds one Concerned entity per dependency stream.
	ConcernedSwimlane identity.Swimlane = "dcb.concerned-"

	streamTag = "dcb.stream"
)

// Key returns the id of the interest entities mirroring streamName.
func Key(streamName string) identity.ID {
	return identity.NewID(streamTag, streamName)
}

// Ref points at an entity stream and carries the tag needed to decode its id.
type Ref struct {
	StreamName string `json:"streamName"`
	IDTag      string `json:"idTag"`
	ID         string `json:"id"`
}

// NewRef creates the Ref of id in swimlane.
func NewRef(swimlane identity.Swimlane, id identity.StreamID) Ref {
	return Ref{StreamName: identity.StreamName(swimlane, id), IDTag: id.Tag(), ID: id.StreamID()}
}

// StreamID decodes the referenced id through registry.
func (r Ref) StreamID(registry *identity.Registry) (identity.StreamID, error) {
	return registry.Decode(r.IDTag, r.ID)
}

// Manifest is a directed edge: Interested depends on Concerned.
type Manifest struct {
	Interested Ref
	Concerned  Ref
}

// NewManifest creates the edge from the interested entity to the concerned one.
func NewManifest(interestedSwimlane identity.Swimlane, interestedID identity.StreamID, concernedSwimlane identity.Swimlane, concernedID identity.StreamID) Manifest {
	return Manifest{
		Interested: NewRef(interestedSwimlane, interestedID),
		Concerned:  NewRef(concernedSwimlane, concernedID),
	}
}
