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

package identity

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tochemey/hydrate/errors"
)

// Decoder rebuilds a typed StreamID from its persisted value.
type Decoder func(value string) (StreamID, error)

type binding struct {
	tag      string
	swimlane Swimlane
	decode   Decoder
}

// Registry maps identifier tags to decoders and swimlanes.
// Entity modules populate it at startup.
type Registry struct {
	mu         sync.RWMutex
	byTag      map[string]binding
	bySwimlane map[Swimlane]binding
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byTag:      make(map[string]binding),
		bySwimlane: make(map[Swimlane]binding),
	}
}

// Register binds a tag to a swimlane and decoder. It fails when the tag is
// already registered or when the swimlane is a prefix of, or is prefixed by,
// a registered swimlane, since stream names would then be ambiguous.
func (r *Registry) Register(tag string, swimlane Swimlane, decode Decoder) error {
	if tag == "" || swimlane == "" || decode == nil {
		return fmt.Errorf("identity: tag, swimlane and decoder are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for existing := range r.bySwimlane {
		if strings.HasPrefix(string(swimlane), string(existing)) || strings.HasPrefix(string(existing), string(swimlane)) {
			return errors.NewErrSwimlaneConflict(string(swimlane), string(existing))
		}
	}

	if existing, ok := r.byTag[tag]; ok {
		return fmt.Errorf("identity: tag=(%s) already bound to swimlane=(%s)", tag, existing.swimlane)
	}

	b := binding{tag: tag, swimlane: swimlane, decode: decode}
	r.byTag[tag] = b
	r.bySwimlane[swimlane] = b
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(tag string, swimlane Swimlane, decode Decoder) {
	if err := r.Register(tag, swimlane, decode); err != nil {
		panic(err)
	}
}

// Decode rebuilds the StreamID persisted with the given tag.
func (r *Registry) Decode(tag, value string) (StreamID, error) {
	r.mu.RLock()
	b, ok := r.byTag[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NewErrIDTagNotRegistered(tag)
	}
	return b.decode(value)
}

// Resolve finds the swimlane owning the stream name and decodes the id.
func (r *Registry) Resolve(streamName string) (Swimlane, StreamID, error) {
	r.mu.RLock()
	var (
		found binding
		ok    bool
	)
	for swimlane, b := range r.bySwimlane {
		if swimlane.Owns(streamName) {
			found, ok = b, true
			break
		}
	}
	r.mu.RUnlock()

	if !ok {
		return "", nil, fmt.Errorf("identity: no swimlane owns stream=(%s)", streamName)
	}

	id, err := found.decode(strings.TrimPrefix(streamName, string(found.swimlane)))
	if err != nil {
		return "", nil, fmt.Errorf("identity: decode stream=(%s): %w", streamName, err)
	}
	return found.swimlane, id, nil
}

// Swimlanes returns the registered swimlanes in lexical order.
func (r *Registry) Swimlanes() []Swimlane {
	r.mu.RLock()
	out := make([]Swimlane, 0, len(r.bySwimlane))
	for swimlane := range r.bySwimlane {
		out = append(out, swimlane)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Tagged returns a Decoder producing plain IDs with the given tag.
func Tagged(tag string) Decoder {
	return func(value string) (StreamID, error) {
		return NewID(tag, value), nil
	}
}
