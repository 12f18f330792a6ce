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
	"fmt"

	"github.com/tochemey/hydrate/errors"
)

// InsertionMode selects the optimistic concurrency check of an insert.
type InsertionMode interface {
	insertionMode()
}

// CreateNew requires the stream not to exist.
type CreateNew struct{}

// AppendIfExists requires the stream to exist.
type AppendIfExists struct{}

// AppendAt requires the stream's last position to equal Revision.
type AppendAt struct {
	Revision uint64
}

// AppendAnyway performs no check.
type AppendAnyway struct{}

func (CreateNew) insertionMode()      {}
func (AppendIfExists) insertionMode() {}
func (AppendAt) insertionMode()       {}
func (AppendAnyway) insertionMode()   {}

// InsertError is the typed failure of an insert. Kind is one of
// errors.ErrConsistencyCheckFailed, errors.ErrPayloadTooLarge or
// errors.ErrInsertionFailed.
type InsertError struct {
	StreamName string
	Kind       error
	Err        error
}

// enforce compilation error
var _ error = (*InsertError)(nil)

// Error implements the standard error interface
func (e *InsertError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("insert stream=(%s): %v", e.StreamName, e.Kind)
	}
	return fmt.Sprintf("insert stream=(%s): %v: %v", e.StreamName, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *InsertError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewInsertError creates an InsertError.
func NewInsertError(streamName string, kind, err error) *InsertError {
	return &InsertError{StreamName: streamName, Kind: kind, Err: err}
}

// Check verifies the mode against the stream's last revision, -1 meaning
// the stream does not exist.
func Check(streamName string, mode InsertionMode, lastRevision int64) error {
	var ok bool
	switch m := mode.(type) {
	case CreateNew:
		ok = lastRevision < 0
	case AppendIfExists:
		ok = lastRevision >= 0
	case AppendAt:
		ok = lastRevision >= 0 && uint64(lastRevision) == m.Revision
	case AppendAnyway:
		ok = true
	default:
		return NewInsertError(streamName, errors.ErrInsertionFailed, fmt.Errorf("unknown insertion mode %T", mode))
	}
	if !ok {
		return NewInsertError(streamName, errors.ErrConsistencyCheckFailed, fmt.Errorf("mode=%T revision=%d", mode, lastRevision))
	}
	return nil
}

// Validate rejects an empty batch and payloads above maxPayload bytes.
// A non-positive maxPayload disables the size check.
func Validate(streamName string, events []Candidate, maxPayload int) error {
	if len(events) == 0 {
		return NewInsertError(streamName, errors.ErrInsertionFailed, fmt.Errorf("no events"))
	}
	for _, event := range events {
		if event.EventType == "" {
			return NewInsertError(streamName, errors.ErrInsertionFailed, fmt.Errorf("event type is required"))
		}
		if maxPayload > 0 && len(event.Payload) > maxPayload {
			return NewInsertError(streamName, errors.ErrPayloadTooLarge, fmt.Errorf("%d bytes over limit %d", len(event.Payload), maxPayload))
		}
	}
	return nil
}
