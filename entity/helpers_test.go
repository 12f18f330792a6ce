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

package entity

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/tochemey/hydrate/event"
	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/eventlog/memory"
	"github.com/tochemey/hydrate/identity"
)

const (
	accounts identity.Swimlane = "account-"
	ledgers  identity.Swimlane = "ledger-"
)

type opened struct {
	Owner string `json:"owner"`
}

type deposited struct {
	Amount int `json:"amount"`
}

type account struct {
	ID      string
	Owner   string
	Balance int
	Seen    []string
}

// accountBehavior folds its own events and records every event it sees,
// including events of dependency streams.
type accountBehavior struct {
	swimlane identity.Swimlane
	calls    *atomic.Int64
}

func (b accountBehavior) Swimlane() identity.Swimlane { return b.swimlane }

func (b accountBehavior) InitialState(id identity.StreamID) account {
	return account{ID: id.StreamID()}
}

func (b accountBehavior) HandleEvent(_ context.Context, state account, evt *event.Event, _ RevisionFetcher) (account, error) {
	if b.calls != nil {
		b.calls.Inc()
	}
	state.Seen = append(slices.Clone(state.Seen), fmt.Sprintf("%s@%d", evt.StreamName, evt.StreamPosition))
	switch payload := evt.Payload.(type) {
	case opened:
		state.Owner = payload.Owner
	case deposited:
		state.Balance += payload.Amount
	}
	return state, nil
}

func newCodec(t *testing.T) *event.Registry {
	t.Helper()
	codec := event.NewRegistry()
	require.NoError(t, event.Register[opened](codec, "opened"))
	require.NoError(t, event.Register[deposited](codec, "deposited"))
	return codec
}

func newLog(t *testing.T) *memory.Log {
	t.Helper()
	log, err := memory.New(memory.WithPageSize(2))
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func emit(t *testing.T, log eventlog.Log, codec *event.Registry, swimlane identity.Swimlane, id string, payloads ...any) {
	t.Helper()
	candidates := make([]eventlog.Candidate, 0, len(payloads))
	for _, payload := range payloads {
		candidate, err := codec.Encode(payload, event.NewMetadata("actor-"+id, "", ""))
		require.NoError(t, err)
		candidates = append(candidates, candidate)
	}
	_, err := log.Insert(context.Background(), swimlane, identity.NewID(string(swimlane), id), eventlog.AppendAnyway{}, candidates)
	require.NoError(t, err)
}

// staticInterests is an InterestFetcher backed by a map.
type staticInterests struct {
	mu    sync.Mutex
	edges map[string][]string
}

func (s *staticInterests) InterestsOf(_ context.Context, streamName string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.edges[streamName]), nil
}

func (s *staticInterests) set(streamName string, dependencies ...string) {
	s.mu.Lock()
	s.edges[streamName] = dependencies
	s.mu.Unlock()
}

// flakyLog fails the first Head calls.
type flakyLog struct {
	eventlog.Log
	failures *atomic.Int64
}

func (f *flakyLog) Head(ctx context.Context) (uint64, bool, error) {
	if f.failures.Dec() >= 0 {
		return 0, false, fmt.Errorf("connection reset")
	}
	return f.Log.Head(ctx)
}

// stallingLog holds the first Head call, after the head was read, until
// release is closed or the caller's context ends.
type stallingLog struct {
	eventlog.Log
	calls     *atomic.Int64
	cancelled *atomic.Int64
	release   chan struct{}
}

func newStallingLog(eventLog eventlog.Log) *stallingLog {
	return &stallingLog{
		Log:       eventLog,
		calls:     atomic.NewInt64(0),
		cancelled: atomic.NewInt64(0),
		release:   make(chan struct{}),
	}
}

func (s *stallingLog) Head(ctx context.Context) (uint64, bool, error) {
	head, exists, err := s.Log.Head(ctx)
	if s.calls.Inc() != 1 {
		return head, exists, err
	}
	select {
	case <-s.release:
		return head, exists, err
	case <-ctx.Done():
		s.cancelled.Inc()
		return 0, false, ctx.Err()
	}
}
