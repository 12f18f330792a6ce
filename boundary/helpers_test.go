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

package boundary

import (
	"context"
	"errors"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/tochemey/hydrate/entity"
	"github.com/tochemey/hydrate/event"
	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/eventlog/memory"
	"github.com/tochemey/hydrate/identity"
	"github.com/tochemey/hydrate/interest"
	"github.com/tochemey/hydrate/log"
)

const (
	tasks    identity.Swimlane = "task-"
	projects identity.Swimlane = "project-"
)

type taskAssigned struct {
	TaskID    string `json:"taskId"`
	ProjectID string `json:"projectId"`
}

type taskUnassigned struct {
	TaskID    string `json:"taskId"`
	ProjectID string `json:"projectId"`
}

type projectRenamed struct {
	Name string `json:"name"`
}

func newCodec(t *testing.T) *event.Registry {
	t.Helper()
	codec := event.NewRegistry()
	require.NoError(t, event.Register[taskAssigned](codec, "task-assigned"))
	require.NoError(t, event.Register[taskUnassigned](codec, "task-unassigned"))
	require.NoError(t, event.Register[projectRenamed](codec, "project-renamed"))
	return codec
}

func manifest(taskID, projectID string) interest.Manifest {
	return interest.NewManifest(tasks, identity.NewID("task", taskID), projects, identity.NewID("project", projectID))
}

func assignments() interest.Trigger {
	return interest.On[taskAssigned](func(_ *event.Event, payload taskAssigned) []interest.Manifest {
		return []interest.Manifest{manifest(payload.TaskID, payload.ProjectID)}
	}, nil)
}

func unassignments() interest.Trigger {
	return interest.On[taskUnassigned](nil, func(_ *event.Event, payload taskUnassigned) []interest.Manifest {
		return []interest.Manifest{manifest(payload.TaskID, payload.ProjectID)}
	})
}

type harness struct {
	t         *testing.T
	log       eventlog.Log
	codec     *event.Registry
	interests *interest.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	eventLog, err := memory.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = eventLog.Close() })
	return newHarnessOn(t, eventLog)
}

func newHarnessOn(t *testing.T, eventLog eventlog.Log) *harness {
	t.Helper()
	interests, err := interest.NewRegistry(eventLog, interest.WithLogger(log.DiscardLogger))
	require.NoError(t, err)
	return &harness{t: t, log: eventLog, codec: newCodec(t), interests: interests}
}

func (h *harness) daemon(opts ...Option) *Daemon {
	opts = append([]Option{WithLogger(log.DiscardLogger), WithRetryDelay(10 * time.Millisecond)}, opts...)
	return New(h.log, h.codec, h.interests, []interest.Trigger{assignments(), unassignments()}, opts...)
}

func (h *harness) emit(swimlane identity.Swimlane, id string, payload any) {
	h.t.Helper()
	candidate, err := h.codec.Encode(payload, event.NewMetadata("user", "", ""))
	require.NoError(h.t, err)
	_, err = h.log.Insert(context.Background(), swimlane, identity.NewID(string(swimlane), id), eventlog.AppendAnyway{}, []eventlog.Candidate{candidate})
	require.NoError(h.t, err)
}

func (h *harness) dependencies(streamName string) []string {
	h.t.Helper()
	streams, err := h.interests.InterestsOf(context.Background(), streamName)
	require.NoError(h.t, err)
	return streams
}

func (h *harness) dependants(streamName string) []string {
	h.t.Helper()
	res, err := h.interests.Concerned(context.Background(), streamName)
	require.NoError(h.t, err)
	var out []string
	for _, ref := range res.State.Dependants() {
		out = append(out, ref.StreamName)
	}
	return out
}

func (h *harness) records(streamName string) []*eventlog.Record {
	h.t.Helper()
	ctx := context.Background()
	cursor, err := h.log.ReadStream(ctx, streamName, 0)
	require.NoError(h.t, err)
	defer cursor.Close()

	var out []*eventlog.Record
	for {
		record, err := cursor.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(h.t, err)
		out = append(out, record)
	}
}

func (h *harness) head() int64 {
	h.t.Helper()
	head, exists, err := h.log.Head(context.Background())
	require.NoError(h.t, err)
	if !exists {
		return -1
	}
	return int64(head)
}

func (h *harness) waitSweep(d *Daemon) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		insight, err := d.Insight(context.Background())
		return err == nil && insight.SweepComplete
	}, 5*time.Second, 10*time.Millisecond)
}

func (h *harness) waitProcessed(d *Daemon) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		insight, err := d.Insight(context.Background())
		return err == nil && insight.SweepComplete && insight.ProcessedPosition >= h.lastUserPosition()
	}, 5*time.Second, 10*time.Millisecond)
}

// lastUserPosition returns the position of the last event outside the
// interest swimlanes.
func (h *harness) lastUserPosition() int64 {
	h.t.Helper()
	cursor, err := h.log.ReadAll(context.Background(), eventlog.End{}, eventlog.Backwards, tasks, projects)
	require.NoError(h.t, err)
	defer cursor.Close()
	record, err := cursor.Next(context.Background())
	if err != nil {
		return -1
	}
	return int64(record.GlobalPosition)
}

func stop(t *testing.T, d *Daemon) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
}

// taskView folds a task stream and the project streams it depends on.
type taskView struct {
	Projects []string
}

type taskBehavior struct{}

func (taskBehavior) Swimlane() identity.Swimlane { return tasks }

func (taskBehavior) InitialState(identity.StreamID) taskView { return taskView{} }

func (taskBehavior) HandleEvent(_ context.Context, state taskView, evt *event.Event, _ entity.RevisionFetcher) (taskView, error) {
	if renamed, ok := event.Payload[projectRenamed](evt); ok {
		state.Projects = append(slices.Clone(state.Projects), renamed.Name)
	}
	return state, nil
}

type projectBehavior struct {
	taskBehavior
}

func (projectBehavior) Swimlane() identity.Swimlane { return projects }

// gatedLog holds the first Head call made once armed, after the head was
// read, until release is closed.
type gatedLog struct {
	eventlog.Log
	armed   *atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedLog(eventLog eventlog.Log) *gatedLog {
	return &gatedLog{
		Log:     eventLog,
		armed:   atomic.NewBool(false),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedLog) Head(ctx context.Context) (uint64, bool, error) {
	head, exists, err := g.Log.Head(ctx)
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
		}
	}
	return head, exists, err
}

// flakyLog fails the first inserts, or only those into one swimlane.
type flakyLog struct {
	eventlog.Log
	failures *atomic.Int64
	only     identity.Swimlane
}

func (f *flakyLog) Insert(ctx context.Context, swimlane identity.Swimlane, id identity.StreamID, mode eventlog.InsertionMode, events []eventlog.Candidate) (*eventlog.InsertResult, error) {
	if (f.only == "" || f.only == swimlane) && f.failures.Dec() >= 0 {
		return nil, errors.New("connection reset")
	}
	return f.Log.Insert(ctx, swimlane, id, mode, events)
}
