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

// Package identity defines stream identifiers, swimlanes and the explicit
// tag registry used to rebuild typed identifiers from persisted strings.
package identity

import (
	"strings"
)

// StreamID identifies an entity within its swimlane.
// StreamID must be stable and deterministic for a given logical entity.
type StreamID interface {
	// Tag names the identifier kind. It is persisted alongside the value
	// so the identifier can be decoded through a Registry.
	Tag() string
	// StreamID returns the key that is unique within the swimlane.
	StreamID() string
}

// Swimlane is the stream name prefix owned by one entity type.
type Swimlane string

// String returns the swimlane prefix.
func (s Swimlane) String() string {
	return string(s)
}

// Owns reports whether the given stream name belongs to the swimlane.
func (s Swimlane) Owns(streamName string) bool {
	return strings.HasPrefix(streamName, string(s))
}

// StreamName returns the canonical stream name of id in the swimlane.
func StreamName(swimlane Swimlane, id StreamID) string {
	return string(swimlane) + id.StreamID()
}

// ID is the default StreamID implementation.
type ID struct {
	tag   string
	value string
}

// enforce compilation error
var _ StreamID = ID{}

// NewID creates an ID with the given tag and value.
func NewID(tag, value string) ID {
	return ID{tag: tag, value: value}
}

// Tag implements StreamID.
func (i ID) Tag() string {
	return i.tag
}

// StreamID implements StreamID.
func (i ID) StreamID() string {
	return i.value
}

// String returns tag:value.
func (i ID) String() string {
	return i.tag + ":" + i.value
}
