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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrConsistencyCheckFailed is returned when an insert violates its insertion mode,
	// for instance appending at a revision that is no longer the stream's last one.
	ErrConsistencyCheckFailed = errors.New("consistency check failed")

	// ErrInsertionFailed is returned when the event log could not persist the events.
	ErrInsertionFailed = errors.New("insertion failed")

	// ErrPayloadTooLarge is returned when an event payload exceeds the backend limit.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrStreamNotFound is returned when reading a stream that has never been written.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrFetcherNotRegistered indicates that no fetcher is registered for a swimlane.
	ErrFetcherNotRegistered = errors.New("fetcher not registered")

	// ErrLogClosed is returned by any event log operation after Close.
	ErrLogClosed = errors.New("event log is closed")

	// ErrDaemonStarted is returned when starting an already started daemon.
	ErrDaemonStarted = errors.New("daemon already started")

	// ErrDaemonNotStarted is returned when stopping a daemon that was never started.
	ErrDaemonNotStarted = errors.New("daemon not started")

	// ErrSwimlaneConflict is returned when a swimlane overlaps an already registered one.
	ErrSwimlaneConflict = errors.New("swimlane conflict")

	// ErrIDTagNotRegistered is returned when decoding a stream id whose tag is unknown.
	ErrIDTagNotRegistered = errors.New("id tag not registered")

	// ErrEventTypeNotRegistered is returned when encoding a payload whose type is unknown.
	ErrEventTypeNotRegistered = errors.New("event type not registered")

	// ErrEventTypeConflict is returned when an event type name is registered twice.
	ErrEventTypeConflict = errors.New("event type conflict")

	// ErrInvalidConfig is returned when a configuration fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// NewErrStreamNotFound formats an ErrStreamNotFound with the given stream name.
func NewErrStreamNotFound(streamName string) error {
	return fmt.Errorf("stream=(%s) %w", streamName, ErrStreamNotFound)
}

// NewErrFetcherNotRegistered formats an ErrFetcherNotRegistered with the given swimlane.
func NewErrFetcherNotRegistered(swimlane string) error {
	return fmt.Errorf("swimlane=(%s) %w", swimlane, ErrFetcherNotRegistered)
}

// NewErrSwimlaneConflict formats an ErrSwimlaneConflict for two overlapping swimlanes.
func NewErrSwimlaneConflict(swimlane, existing string) error {
	return fmt.Errorf("swimlane=(%s) overlaps (%s) %w", swimlane, existing, ErrSwimlaneConflict)
}

// NewErrIDTagNotRegistered formats an ErrIDTagNotRegistered with the given tag.
func NewErrIDTagNotRegistered(tag string) error {
	return fmt.Errorf("tag=(%s) %w", tag, ErrIDTagNotRegistered)
}

// NewErrEventTypeNotRegistered formats an ErrEventTypeNotRegistered with the given type.
func NewErrEventTypeNotRegistered(eventType string) error {
	return fmt.Errorf("event type=(%s) %w", eventType, ErrEventTypeNotRegistered)
}

// NewErrEventTypeConflict formats an ErrEventTypeConflict with the given type name.
func NewErrEventTypeConflict(eventType string) error {
	return fmt.Errorf("event type=(%s) %w", eventType, ErrEventTypeConflict)
}

// NewErrInvalidConfig wraps a validation error with ErrInvalidConfig.
func NewErrInvalidConfig(err error) error {
	return errors.Join(ErrInvalidConfig, err)
}

// PanicError defines the panic error
// wrapping the underlying error
type PanicError struct {
	err error
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *PanicError) Unwrap() error {
	return e.err
}

// Recovered converts a recovered panic value into a PanicError.
func Recovered(r any) *PanicError {
	if err, ok := r.(error); ok {
		return NewPanicError(err)
	}
	return NewPanicError(fmt.Errorf("%v", r))
}
