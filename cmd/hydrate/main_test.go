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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/hydrate/event"
	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/eventlog/boltdb"
	"github.com/tochemey/hydrate/identity"
	"github.com/tochemey/hydrate/interest"
)

func seed(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "events.bolt")
	eventLog, err := boltdb.Open(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, eventLog.Close()) }()

	order := identity.NewID("order", "1")
	_, err = eventLog.Insert(ctx, "order-", order, eventlog.CreateNew{}, []eventlog.Candidate{
		{EventType: "order-placed", Payload: []byte(`{"total":10}`), Metadata: event.NewMetadata("alice", "", "")},
		{EventType: "order-paid", Payload: []byte("opaque"), Metadata: event.NewMetadata("alice", "", "")},
	})
	require.NoError(t, err)

	w, err := interest.Registration(
		interest.NewManifest("order-", order, "customer-", identity.NewID("customer", "alice")),
		"evt-1", event.NewMetadata("dcb.daemon", "", ""))
	require.NoError(t, err)
	_, err = eventLog.Insert(ctx, interest.ConcernedSwimlane, interest.Key(w.Manifest.Concerned.StreamName), eventlog.AppendAnyway{}, []eventlog.Candidate{w.Concerned})
	require.NoError(t, err)
	_, err = eventLog.Insert(ctx, interest.InterestedSwimlane, interest.Key(w.Manifest.Interested.StreamName), eventlog.AppendAnyway{}, []eventlog.Candidate{w.Interested})
	require.NoError(t, err)
	return path
}

func run(t *testing.T, path string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--backend", "boltdb", "--path", path}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	path := seed(t)

	t.Run("head", func(t *testing.T) {
		out, err := run(t, path, "head")
		require.NoError(t, err)
		assert.Equal(t, "3\n", out)
	})
	t.Run("read", func(t *testing.T) {
		out, err := run(t, path, "read", "order-1")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)

		var first, second recordView
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
		require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
		assert.Equal(t, "order-placed", first.EventType)
		assert.JSONEq(t, `{"total":10}`, string(first.Payload))
		assert.Equal(t, []byte("opaque"), second.RawPayload)
		assert.EqualValues(t, 1, second.StreamPosition)
	})
	t.Run("read with limit", func(t *testing.T) {
		out, err := run(t, path, "read", "order-1", "--from", "1", "--limit", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "order-paid")
		assert.NotContains(t, out, "order-placed")
	})
	t.Run("read unknown stream", func(t *testing.T) {
		_, err := run(t, path, "read", "order-404")
		assert.Error(t, err)
	})
	t.Run("tail", func(t *testing.T) {
		out, err := run(t, path, "tail", "--from-start", "--swimlane", "order-", "--limit", "2")
		require.NoError(t, err)
		assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)
	})
	t.Run("interests", func(t *testing.T) {
		out, err := run(t, path, "interests", "order-1")
		require.NoError(t, err)
		var view interestsView
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		assert.Equal(t, []string{"customer-alice"}, view.DependsOn)
		assert.Empty(t, view.Dependants)

		out, err = run(t, path, "interests", "customer-alice")
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		require.Len(t, view.Dependants, 1)
		assert.Equal(t, "order-1", view.Dependants[0].StreamName)
	})
	t.Run("invalid backend", func(t *testing.T) {
		_, err := run(t, path, "--backend", "mongo", "head")
		assert.Error(t, err)
	})
}
