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

// Package logtest holds the conformance suite every event log backend runs.
package logtest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/hydrate/errors"
	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/identity"
)

// Factory opens a fresh, empty log. A positive maxPayload caps payload sizes.
type Factory func(t *testing.T, maxPayload int) eventlog.Log

const (
	accounts identity.Swimlane = "account-"
	orders   identity.Swimlane = "order-"
)

// Candidates builds n candidates of the given type with numbered payloads.
func Candidates(eventType string, n int) []eventlog.Candidate {
	out := make([]eventlog.Candidate, n)
	for i := range out {
		out[i] = eventlog.Candidate{
			EventType: eventType,
			Payload:   []byte(fmt.Sprintf(`{"n":%d}`, i)),
			Metadata: eventlog.Metadata{
				EventID:   fmt.Sprintf("%s-%d-%d", eventType, time.Now().UnixNano(), i),
				ActorID:   "tester",
				CreatedAt: time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC),
			},
		}
	}
	return out
}

// Run executes the conformance suite against the backend.
func Run(t *testing.T, factory Factory) {
	t.Run("insert and read a stream", func(t *testing.T) { testReadStream(t, factory) })
	t.Run("insertion modes", func(t *testing.T) { testInsertionModes(t, factory) })
	t.Run("payload too large", func(t *testing.T) { testPayloadTooLarge(t, factory) })
	t.Run("read all", func(t *testing.T) { testReadAll(t, factory) })
	t.Run("subscribe all", func(t *testing.T) { testSubscribeAll(t, factory) })
	t.Run("concurrent inserts", func(t *testing.T) { testConcurrentInserts(t, factory) })
	t.Run("closed log", func(t *testing.T) { testClosed(t, factory) })
}

func testReadStream(t *testing.T, factory Factory) {
	ctx := context.Background()
	log := factory(t, 0)
	defer log.Close()

	_, err := log.ReadStream(ctx, "account-1", 0)
	require.ErrorIs(t, err, errors.ErrStreamNotFound)

	id := identity.NewID("account", "1")
	result, err := log.Insert(ctx, accounts, id, eventlog.CreateNew{}, Candidates("opened", 3))
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.GlobalPosition)
	assert.EqualValues(t, 2, result.StreamPosition)

	cursor, err := log.ReadStream(ctx, "account-1", 1)
	require.NoError(t, err)
	records, err := eventlog.Collect(ctx, cursor)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "account-1", first.StreamName)
	assert.Equal(t, accounts, first.Swimlane)
	assert.Equal(t, "account", first.IDTag)
	assert.Equal(t, "1", first.EntityID)
	assert.Equal(t, "opened", first.EventType)
	assert.JSONEq(t, `{"n":1}`, string(first.Payload))
	assert.Equal(t, "tester", first.Metadata.ActorID)
	assert.True(t, first.Metadata.CreatedAt.Equal(time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC)))
	assert.EqualValues(t, 1, first.StreamPosition)
	assert.EqualValues(t, 1, first.GlobalPosition)

	cursor, err = log.ReadStream(ctx, "account-1", 3)
	require.NoError(t, err)
	records, err = eventlog.Collect(ctx, cursor)
	require.NoError(t, err)
	assert.Empty(t, records)

	head, exists, err := log.Head(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.EqualValues(t, 2, head)
}

func testInsertionModes(t *testing.T, factory Factory) {
	ctx := context.Background()
	log := factory(t, 0)
	defer log.Close()

	id := identity.NewID("account", "1")
	_, err := log.Insert(ctx, accounts, id, eventlog.AppendIfExists{}, Candidates("deposited", 1))
	require.ErrorIs(t, err, errors.ErrConsistencyCheckFailed)

	_, err = log.Insert(ctx, accounts, id, eventlog.CreateNew{}, Candidates("opened", 1))
	require.NoError(t, err)

	_, err = log.Insert(ctx, accounts, id, eventlog.CreateNew{}, Candidates("opened", 1))
	require.ErrorIs(t, err, errors.ErrConsistencyCheckFailed)
	var insertErr *eventlog.InsertError
	require.ErrorAs(t, err, &insertErr)
	assert.Equal(t, "account-1", insertErr.StreamName)

	_, err = log.Insert(ctx, accounts, id, eventlog.AppendAt{Revision: 1}, Candidates("deposited", 1))
	require.ErrorIs(t, err, errors.ErrConsistencyCheckFailed)

	result, err := log.Insert(ctx, accounts, id, eventlog.AppendAt{Revision: 0}, Candidates("deposited", 2))
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.StreamPosition)

	result, err = log.Insert(ctx, accounts, id, eventlog.AppendIfExists{}, Candidates("deposited", 1))
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.StreamPosition)

	result, err = log.Insert(ctx, orders, identity.NewID("order", "9"), eventlog.AppendAnyway{}, Candidates("placed", 1))
	require.NoError(t, err)
	assert.EqualValues(t, 0, result.StreamPosition)
	assert.EqualValues(t, 4, result.GlobalPosition)

	_, err = log.Insert(ctx, orders, identity.NewID("order", "9"), eventlog.AppendAnyway{}, nil)
	require.ErrorIs(t, err, errors.ErrInsertionFailed)
}

func testPayloadTooLarge(t *testing.T, factory Factory) {
	ctx := context.Background()
	log := factory(t, 16)
	defer log.Close()

	candidates := Candidates("opened", 1)
	candidates[0].Payload = []byte(`{"name":"a very long account holder name"}`)
	_, err := log.Insert(ctx, accounts, identity.NewID("account", "1"), eventlog.CreateNew{}, candidates)
	require.ErrorIs(t, err, errors.ErrPayloadTooLarge)

	_, exists, err := log.Head(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func testReadAll(t *testing.T, factory Factory) {
	ctx := context.Background()
	log := factory(t, 0)
	defer log.Close()

	cursor, err := log.ReadAll(ctx, eventlog.Start{}, eventlog.Forwards)
	require.NoError(t, err)
	records, err := eventlog.Collect(ctx, cursor)
	require.NoError(t, err)
	assert.Empty(t, records)

	for i := range 5 {
		_, err := log.Insert(ctx, accounts, identity.NewID("account", fmt.Sprint(i)), eventlog.AppendAnyway{}, Candidates("opened", 1))
		require.NoError(t, err)
		_, err = log.Insert(ctx, orders, identity.NewID("order", fmt.Sprint(i)), eventlog.AppendAnyway{}, Candidates("placed", 1))
		require.NoError(t, err)
	}

	testCases := []struct {
		name      string
		from      eventlog.Position
		direction eventlog.Direction
		swimlanes []identity.Swimlane
		positions []uint64
	}{
		{name: "forwards from start", from: eventlog.Start{}, direction: eventlog.Forwards, positions: []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{name: "forwards after", from: eventlog.After{Position: 6}, direction: eventlog.Forwards, positions: []uint64{7, 8, 9}},
		{name: "forwards from end", from: eventlog.End{}, direction: eventlog.Forwards},
		{name: "backwards from end", from: eventlog.End{}, direction: eventlog.Backwards, positions: []uint64{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}},
		{name: "backwards after", from: eventlog.After{Position: 3}, direction: eventlog.Backwards, positions: []uint64{2, 1, 0}},
		{name: "filtered by swimlane", from: eventlog.Start{}, direction: eventlog.Forwards, swimlanes: []identity.Swimlane{orders}, positions: []uint64{1, 3, 5, 7, 9}},
		{name: "filtered backwards", from: eventlog.End{}, direction: eventlog.Backwards, swimlanes: []identity.Swimlane{accounts}, positions: []uint64{8, 6, 4, 2, 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cursor, err := log.ReadAll(ctx, tc.from, tc.direction, tc.swimlanes...)
			require.NoError(t, err)
			records, err := eventlog.Collect(ctx, cursor)
			require.NoError(t, err)
			positions := make([]uint64, 0, len(records))
			for _, record := range records {
				positions = append(positions, record.GlobalPosition)
			}
			if len(tc.positions) == 0 {
				assert.Empty(t, positions)
				return
			}
			assert.Equal(t, tc.positions, positions)
		})
	}
}

func testSubscribeAll(t *testing.T, factory Factory) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log := factory(t, 0)
	defer log.Close()

	_, err := log.Insert(ctx, accounts, identity.NewID("account", "1"), eventlog.CreateNew{}, Candidates("opened", 2))
	require.NoError(t, err)

	t.Run("from start", func(t *testing.T) {
		sub, err := log.SubscribeAll(ctx, eventlog.Start{})
		require.NoError(t, err)
		defer sub.Close()

		item, err := sub.Next(ctx)
		require.NoError(t, err)
		require.IsType(t, eventlog.ReadingStarted{}, item)

		for want := range uint64(2) {
			assert.Equal(t, want, nextPosition(ctx, t, sub))
		}

		go func() {
			time.Sleep(50 * time.Millisecond)
			_, _ = log.Insert(ctx, orders, identity.NewID("order", "1"), eventlog.CreateNew{}, Candidates("placed", 1))
		}()
		assert.EqualValues(t, 2, nextPosition(ctx, t, sub))
	})

	t.Run("from end", func(t *testing.T) {
		sub, err := log.SubscribeAll(ctx, eventlog.End{}, accounts)
		require.NoError(t, err)
		defer sub.Close()

		item, err := sub.Next(ctx)
		require.NoError(t, err)
		require.IsType(t, eventlog.ReadingStarted{}, item)

		_, err = log.Insert(ctx, orders, identity.NewID("order", "2"), eventlog.CreateNew{}, Candidates("placed", 1))
		require.NoError(t, err)
		_, err = log.Insert(ctx, accounts, identity.NewID("account", "2"), eventlog.CreateNew{}, Candidates("opened", 1))
		require.NoError(t, err)
		assert.EqualValues(t, 4, nextPosition(ctx, t, sub))
	})

	t.Run("resume after a position", func(t *testing.T) {
		sub, err := log.SubscribeAll(ctx, eventlog.After{Position: 3})
		require.NoError(t, err)
		defer sub.Close()

		_, err = sub.Next(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 4, nextPosition(ctx, t, sub))
	})

	t.Run("close unblocks next", func(t *testing.T) {
		sub, err := log.SubscribeAll(ctx, eventlog.End{})
		require.NoError(t, err)
		_, err = sub.Next(ctx)
		require.NoError(t, err)

		go func() {
			time.Sleep(20 * time.Millisecond)
			_ = sub.Close()
		}()
		_, err = sub.Next(ctx)
		require.ErrorIs(t, err, eventlog.ErrSubscriptionClosed)
	})

	t.Run("context cancellation", func(t *testing.T) {
		sub, err := log.SubscribeAll(ctx, eventlog.End{})
		require.NoError(t, err)
		defer sub.Close()
		_, err = sub.Next(ctx)
		require.NoError(t, err)

		short, cancelShort := context.WithTimeout(ctx, 30*time.Millisecond)
		defer cancelShort()
		_, err = sub.Next(short)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func testConcurrentInserts(t *testing.T, factory Factory) {
	ctx := context.Background()
	log := factory(t, 0)
	defer log.Close()

	const writers, perWriter = 8, 5
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := identity.NewID("account", fmt.Sprint(w))
			for range perWriter {
				_, err := log.Insert(ctx, accounts, id, eventlog.AppendAnyway{}, Candidates("deposited", 1))
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	cursor, err := log.ReadAll(ctx, eventlog.Start{}, eventlog.Forwards)
	require.NoError(t, err)
	records, err := eventlog.Collect(ctx, cursor)
	require.NoError(t, err)
	require.Len(t, records, writers*perWriter)

	streams := make(map[string]uint64)
	for i, record := range records {
		assert.EqualValues(t, i, record.GlobalPosition)
		assert.Equal(t, streams[record.StreamName], record.StreamPosition)
		streams[record.StreamName]++
	}
}

func testClosed(t *testing.T, factory Factory) {
	ctx := context.Background()
	log := factory(t, 0)
	require.NoError(t, log.Close())

	_, _, err := log.Head(ctx)
	require.ErrorIs(t, err, errors.ErrLogClosed)
	_, err = log.ReadStream(ctx, "account-1", 0)
	require.ErrorIs(t, err, errors.ErrLogClosed)
	_, err = log.Insert(ctx, accounts, identity.NewID("account", "1"), eventlog.CreateNew{}, Candidates("opened", 1))
	require.ErrorIs(t, err, errors.ErrLogClosed)
}

func nextPosition(ctx context.Context, t *testing.T, sub eventlog.Subscription) uint64 {
	t.Helper()
	item, err := sub.Next(ctx)
	require.NoError(t, err)
	appeared, ok := item.(eventlog.EventAppeared)
	require.True(t, ok, "expected EventAppeared, got %T", item)
	return appeared.Record.GlobalPosition
}
