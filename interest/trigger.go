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
	"github.com/tochemey/hydrate/event"
)

// Trigger derives interest transitions from events. Both methods are pure
// and return nothing for events they do not match.
type Trigger interface {
	// Initiates returns the edges the event adds.
	Initiates(evt *event.Event) []Manifest
	// Stops returns the edges the event removes.
	Stops(evt *event.Event) []Manifest
}

// On builds a Trigger matching events whose payload is E. Either function
// may be nil.
func On[E any](initiates, stops func(evt *event.Event, payload E) []Manifest) Trigger {
	return typedTrigger[E]{initiates: initiates, stops: stops}
}

type typedTrigger[E any] struct {
	initiates func(*event.Event, E) []Manifest
	stops     func(*event.Event, E) []Manifest
}

func (t typedTrigger[E]) Initiates(evt *event.Event) []Manifest {
	return t.match(evt, t.initiates)
}

func (t typedTrigger[E]) Stops(evt *event.Event) []Manifest {
	return t.match(evt, t.stops)
}

func (t typedTrigger[E]) match(evt *event.Event, fn func(*event.Event, E) []Manifest) []Manifest {
	if fn == nil {
		return nil
	}
	payload, ok := event.Payload[E](evt)
	if !ok {
		return nil
	}
	return fn(evt, payload)
}
