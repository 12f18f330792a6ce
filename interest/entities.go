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
	"context"
	"maps"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tochemey/hydrate/entity"
	"github.com/tochemey/hydrate/event"
	"github.com/tochemey/hydrate/identity"
)

// Interested is the folded state of a dependant stream: the streams it
// currently depends on and the originating events already applied to it.
// Values are never mutated in place.
type Interested struct {
	StreamName           string
	ConcernedStreamNames mapset.Set[string]
	OriginatingEventIDs  mapset.Set[string]
}

// DependsOn reports whether the edge to concernedStreamName exists.
func (x Interested) DependsOn(concernedStreamName string) bool {
	return x.ConcernedStreamNames.Contains(concernedStreamName)
}

// Processed reports whether the originating event was already applied.
func (x Interested) Processed(eventID string) bool {
	return x.OriginatingEventIDs.Contains(eventID)
}

// Dependencies returns the concerned stream names, sorted.
func (x Interested) Dependencies() []string {
	out := x.ConcernedStreamNames.ToSlice()
	slices.Sort(out)
	return out
}

func (x Interested) apply(concerned string, originatingEventID string, add bool) Interested {
	next := Interested{
		StreamName:           x.StreamName,
		ConcernedStreamNames: x.ConcernedStreamNames.Clone(),
		OriginatingEventIDs:  x.OriginatingEventIDs.Clone(),
	}
	if add {
		next.ConcernedStreamNames.Add(concerned)
	} else {
		next.ConcernedStreamNames.Remove(concerned)
	}
	next.OriginatingEventIDs.Add(originatingEventID)
	return next
}

// Concerned is the folded state of a dependency stream: the entities that
// currently depend on it.
type Concerned struct {
	StreamName        string
	InterestedStreams map[string]Ref
}

// Dependants returns the interested refs sorted by stream name.
func (x Concerned) Dependants() []Ref {
	out := make([]Ref, 0, len(x.InterestedStreams))
	for _, streamName := range slices.Sorted(maps.Keys(x.InterestedStreams)) {
		out = append(out, x.InterestedStreams[streamName])
	}
	return out
}

func (x Concerned) apply(ref Ref, add bool) Concerned {
	next := Concerned{StreamName: x.StreamName, InterestedStreams: maps.Clone(x.InterestedStreams)}
	if add {
		next.InterestedStreams[ref.StreamName] = ref
	} else {
		delete(next.InterestedStreams, ref.StreamName)
	}
	return next
}

type interestedBehavior struct{}

var _ entity.Behavior[Interested] = interestedBehavior{}

func (interestedBehavior) Swimlane() identity.Swimlane { return InterestedSwimlane }

func (interestedBehavior) InitialState(id identity.StreamID) Interested {
	return Interested{
		StreamName:           id.StreamID(),
		ConcernedStreamNames: mapset.NewThreadUnsafeSet[string](),
		OriginatingEventIDs:  mapset.NewThreadUnsafeSet[string](),
	}
}

func (interestedBehavior) HandleEvent(_ context.Context, state Interested, evt *event.Event, _ entity.RevisionFetcher) (Interested, error) {
	switch payload := evt.Payload.(type) {
	case InterestRegistered:
		return state.apply(payload.Concerned.StreamName, payload.OriginatingEventID, true), nil
	case InterestRemoved:
		return state.apply(payload.Concerned.StreamName, payload.OriginatingEventID, false), nil
	default:
		return state, nil
	}
}

type concernedBehavior struct{}

var _ entity.Behavior[Concerned] = concernedBehavior{}

func (concernedBehavior) Swimlane() identity.Swimlane { return ConcernedSwimlane }

func (concernedBehavior) InitialState(id identity.StreamID) Concerned {
	return Concerned{StreamName: id.StreamID(), InterestedStreams: map[string]Ref{}}
}

func (concernedBehavior) HandleEvent(_ context.Context, state Concerned, evt *event.Event, _ entity.RevisionFetcher) (Concerned, error) {
	switch payload := evt.Payload.(type) {
	case InterestReceived:
		return state.apply(payload.Interested, true), nil
	case InterestRevoked:
		return state.apply(payload.Interested, false), nil
	default:
		return state, nil
	}
}
