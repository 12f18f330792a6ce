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

package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/tochemey/hydrate/errors"
	"github.com/tochemey/hydrate/eventlog"
)

type decoder func(raw []byte) (any, error)

// Registry binds event type names to payload types. Payloads are JSON.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]decoder
	names    map[reflect.Type]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[string]decoder),
		names:    make(map[reflect.Type]string),
	}
}

// Register binds name to the payload type E. A name or a type can only be
// registered once.
func Register[E any](r *Registry, name string) error {
	typ := reflect.TypeFor[E]()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.decoders[name]; ok {
		return errors.NewErrEventTypeConflict(name)
	}
	if existing, ok := r.names[typ]; ok {
		return errors.NewErrEventTypeConflict(fmt.Sprintf("%s already registered as %s", typ, existing))
	}

	r.decoders[name] = func(raw []byte) (any, error) {
		var payload E
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	}
	r.names[typ] = name
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister[E any](r *Registry, name string) {
	if err := Register[E](r, name); err != nil {
		panic(err)
	}
}

// Name returns the registered name of the payload type.
func (r *Registry) Name(payload any) (string, bool) {
	typ := reflect.TypeOf(payload)
	if typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	r.mu.RLock()
	name, ok := r.names[typ]
	r.mu.RUnlock()
	return name, ok
}

// Encode turns a payload into an insertable candidate.
func (r *Registry) Encode(payload any, metadata eventlog.Metadata) (eventlog.Candidate, error) {
	name, ok := r.Name(payload)
	if !ok {
		return eventlog.Candidate{}, errors.NewErrEventTypeNotRegistered(fmt.Sprintf("%T", payload))
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return eventlog.Candidate{}, fmt.Errorf("event: encode %s: %w", name, err)
	}

	return eventlog.Candidate{EventType: name, Payload: raw, Metadata: metadata}, nil
}

// Decode turns a record into an Event. Records of unknown types or with
// undecodable payloads yield a Toxic payload instead of an error.
func (r *Registry) Decode(record *eventlog.Record) *Event {
	evt := &Event{
		Type:           record.EventType,
		StreamName:     record.StreamName,
		Swimlane:       record.Swimlane,
		IDTag:          record.IDTag,
		EntityID:       record.EntityID,
		Metadata:       record.Metadata,
		GlobalPosition: record.GlobalPosition,
		StreamPosition: record.StreamPosition,
	}

	r.mu.RLock()
	decode, ok := r.decoders[record.EventType]
	r.mu.RUnlock()

	if !ok {
		evt.Payload = Toxic{Reason: fmt.Sprintf("unknown event type %q", record.EventType), Raw: record.Payload}
		return evt
	}

	payload, err := decode(record.Payload)
	if err != nil {
		evt.Payload = Toxic{Reason: err.Error(), Raw: record.Payload}
		return evt
	}
	evt.Payload = payload
	return evt
}

// Knows reports whether the event type name is registered.
func (r *Registry) Knows(eventType string) bool {
	r.mu.RLock()
	_, ok := r.decoders[eventType]
	r.mu.RUnlock()
	return ok
}
