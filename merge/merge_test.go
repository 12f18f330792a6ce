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

package merge

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/eventlog/logtest"
	"github.com/tochemey/hydrate/eventlog/memory"
	"github.com/tochemey/hydrate/identity"
)

func seed(t *testing.T, log eventlog.Log, writes []string) {
	t.Helper()
	for _, stream := range writes {
		_, err := log.Insert(context.Background(), "s-", identity.NewID("s", stream), eventlog.AppendAnyway{}, logtest.Candidates("happened", 1))
		require.NoError(t, err)
	}
}

func drain(t *testing.T, r *Reader) []*eventlog.Record {
	t.Helper()
	defer r.Close()
	var out []*eventlog.Record
	for {
		record, err := r.Next(context.Background())
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, record)
	}
}

func TestMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("With interleaved streams", func(t *testing.T) {
		log, err := memory.New(memory.WithPageSize(2))
		require.NoError(t, err)
		defer log.Close()

		rng := rand.New(rand.NewSource(42))
		streams := []string{"a", "b", "c", "d"}
		writes := make([]string, 200)
		expected := make(map[string]int)
		for i := range writes {
			writes[i] = streams[rng.Intn(len(streams))]
			expected["s-"+writes[i]]++
		}
		seed(t, log, writes)

		requests := make([]Request, 0, len(streams))
		for _, s := range streams {
			requests = append(requests, Stream("s-"+s, 0))
		}
		reader, err := Open(ctx, log, requests...)
		require.NoError(t, err)
		records := drain(t, reader)

		require.Len(t, records, len(writes))
		assert.True(t, sort.SliceIsSorted(records, func(i, j int) bool {
			return records[i].GlobalPosition < records[j].GlobalPosition
		}))

		seen := make(map[uint64]bool)
		got := make(map[string]int)
		for _, record := range records {
			assert.False(t, seen[record.GlobalPosition], "duplicate position %d", record.GlobalPosition)
			seen[record.GlobalPosition] = true
			got[record.StreamName]++
		}
		assert.Equal(t, expected, got)
	})

	t.Run("With streams finishing at different times", func(t *testing.T) {
		log, err := memory.New(memory.WithPageSize(1))
		require.NoError(t, err)
		defer log.Close()

		seed(t, log, []string{"a", "b", "a", "c", "c", "c", "c"})

		reader, err := Open(ctx, log, Stream("s-a", 0), Stream("s-b", 0), Stream("s-c", 0))
		require.NoError(t, err)
		records := drain(t, reader)

		positions := make([]uint64, 0, len(records))
		for _, record := range records {
			positions = append(positions, record.GlobalPosition)
		}
		assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6}, positions)
	})

	t.Run("With missing streams and resume positions", func(t *testing.T) {
		log, err := memory.New()
		require.NoError(t, err)
		defer log.Close()

		seed(t, log, []string{"a", "b", "a", "b", "a"})

		reader, err := Open(ctx, log, Stream("s-a", 1), Stream("s-ghost", 0), Stream("s-b", 1))
		require.NoError(t, err)
		records := drain(t, reader)

		got := make([]string, 0, len(records))
		for _, record := range records {
			got = append(got, fmt.Sprintf("%s@%d", record.StreamName, record.StreamPosition))
		}
		assert.Equal(t, []string{"s-a@1", "s-b@1", "s-a@2"}, got)
	})

	t.Run("With an until bound", func(t *testing.T) {
		log, err := memory.New()
		require.NoError(t, err)
		defer log.Close()

		seed(t, log, []string{"a", "b", "a", "b", "a"})

		reader, err := Open(ctx, log, Request{StreamName: "s-a", Until: 2}, Stream("s-b", 0))
		require.NoError(t, err)
		records := drain(t, reader)

		positions := make([]uint64, 0, len(records))
		for _, record := range records {
			positions = append(positions, record.GlobalPosition)
		}
		assert.Equal(t, []uint64{0, 1, 2, 3}, positions)
	})

	t.Run("With nothing to read", func(t *testing.T) {
		log, err := memory.New()
		require.NoError(t, err)
		defer log.Close()

		reader, err := Open(ctx, log)
		require.NoError(t, err)
		assert.Empty(t, drain(t, reader))
	})

	t.Run("With a failing log", func(t *testing.T) {
		log, err := memory.New()
		require.NoError(t, err)
		seed(t, log, []string{"a"})
		require.NoError(t, log.Close())

		_, err = Open(ctx, log, Stream("s-a", 0))
		require.Error(t, err)
	})
}
