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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	"github.com/tochemey/hydrate/entity"
	hyerrors "github.com/tochemey/hydrate/errors"
	"github.com/tochemey/hydrate/event"
	"github.com/tochemey/hydrate/identity"
	"github.com/tochemey/hydrate/interest"
	"github.com/tochemey/hydrate/log"
)

func TestDaemon(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("With lifecycle errors", func(t *testing.T) {
		h := newHarness(t)
		d := h.daemon()

		assert.ErrorIs(t, d.Stop(context.Background()), hyerrors.ErrDaemonNotStarted)
		assert.ErrorIs(t, d.Wait(), hyerrors.ErrDaemonNotStarted)

		require.NoError(t, d.Start(context.Background()))
		assert.ErrorIs(t, d.Start(context.Background()), hyerrors.ErrDaemonStarted)

		stop(t, d)
		assert.NoError(t, d.Wait())
		assert.ErrorIs(t, d.Stop(context.Background()), hyerrors.ErrDaemonNotStarted)
	})
	t.Run("With empty log", func(t *testing.T) {
		h := newHarness(t)
		d := h.daemon()
		require.NoError(t, d.Start(context.Background()))
		h.waitSweep(d)

		insight, err := d.Insight(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, -1, insight.Tip)
		assert.EqualValues(t, -1, insight.SweepTip)
		assert.Equal(t, float64(100), insight.PercentComplete)
		stop(t, d)
	})
	t.Run("With sweep over events written before startup", func(t *testing.T) {
		h := newHarness(t)
		h.emit(tasks, "1", taskAssigned{TaskID: "1", ProjectID: "a"})
		h.emit(tasks, "2", taskAssigned{TaskID: "2", ProjectID: "a"})
		h.emit(tasks, "1", taskAssigned{TaskID: "1", ProjectID: "b"})

		d := h.daemon()
		require.NoError(t, d.Start(context.Background()))
		h.waitSweep(d)

		assert.Equal(t, []string{"project-a", "project-b"}, h.dependencies("task-1"))
		assert.Equal(t, []string{"project-a"}, h.dependencies("task-2"))
		assert.Equal(t, []string{"task-1", "task-2"}, h.dependants("project-a"))
		assert.Equal(t, []string{"task-1"}, h.dependants("project-b"))

		insight, err := d.Insight(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 2, insight.SweepTip)
		assert.EqualValues(t, 2, insight.SweepPosition)
		assert.EqualValues(t, 3, insight.InterestsRegistered)
		assert.Zero(t, insight.InterestsRemoved)
		stop(t, d)
	})
	t.Run("With live events", func(t *testing.T) {
		h := newHarness(t)
		d := h.daemon()
		require.NoError(t, d.Start(context.Background()))
		h.waitSweep(d)

		h.emit(tasks, "1", taskAssigned{TaskID: "1", ProjectID: "a"})
		require.Eventually(t, func() bool {
			return len(h.dependencies("task-1")) == 1
		}, 5*time.Second, 10*time.Millisecond)

		h.emit(tasks, "1", taskUnassigned{TaskID: "1", ProjectID: "a"})
		require.Eventually(t, func() bool {
			return len(h.dependencies("task-1")) == 0
		}, 5*time.Second, 10*time.Millisecond)
		h.waitProcessed(d)
		assert.Empty(t, h.dependants("project-a"))

		insight, err := d.Insight(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 1, insight.InterestsRegistered)
		assert.EqualValues(t, 1, insight.InterestsRemoved)
		require.Eventually(t, func() bool {
			insight, err := d.Insight(context.Background())
			return err == nil && insight.PercentComplete == 100
		}, 5*time.Second, 10*time.Millisecond)
		stop(t, d)
	})
	t.Run("With events processed twice", func(t *testing.T) {
		h := newHarness(t)
		h.emit(tasks, "1", taskAssigned{TaskID: "1", ProjectID: "a"})
		h.emit(tasks, "1", taskUnassigned{TaskID: "1", ProjectID: "a"})
		h.emit(tasks, "1", taskAssigned{TaskID: "1", ProjectID: "b"})

		first := h.daemon()
		require.NoError(t, first.Start(context.Background()))
		h.waitSweep(first)
		stop(t, first)

		once, err := h.interests.Interested(context.Background(), "task-1")
		require.NoError(t, err)
		head := h.head()

		// a restarted process sweeps the whole log again
		second := h.daemon()
		require.NoError(t, second.Start(context.Background()))
		h.waitSweep(second)
		stop(t, second)

		twice, err := h.interests.Interested(context.Background(), "task-1")
		require.NoError(t, err)
		assert.Equal(t, head, h.head())
		assert.Equal(t, once.State.Dependencies(), twice.State.Dependencies())
		assert.True(t, once.State.OriginatingEventIDs.Equal(twice.State.OriginatingEventIDs))
		assert.Equal(t, []string{"project-b"}, twice.State.Dependencies())
	})
	t.Run("With both loops racing", func(t *testing.T) {
		h := newHarness(t)
		for i := range 20 {
			h.emit(tasks, "1", taskAssigned{TaskID: "1", ProjectID: string(rune('a' + i%5))})
		}

		d := h.daemon()
		require.NoError(t, d.Start(context.Background()))
		for i := range 20 {
			h.emit(tasks, "2", taskAssigned{TaskID: "2", ProjectID: string(rune('a' + i%5))})
		}
		h.waitProcessed(d)
		stop(t, d)

		for _, task := range []string{"task-1", "task-2"} {
			assert.Equal(t, []string{"project-a", "project-b", "project-c", "project-d", "project-e"}, h.dependencies(task))
		}
		// every edge is mirrored
		for _, project := range []string{"a", "b", "c", "d", "e"} {
			assert.Equal(t, []string{"task-1", "task-2"}, h.dependants("project-"+project))
		}
	})
	t.Run("With transient write failures", func(t *testing.T) {
		base := newHarness(t)
		flaky := &flakyLog{Log: base.log, failures: atomic.NewInt64(0)}
		h := newHarnessOn(t, flaky)
		h.emit(tasks, "1", taskAssigned{TaskID: "1", ProjectID: "a"})
		flaky.failures.Store(2)

		d := h.daemon()
		require.NoError(t, d.Start(context.Background()))
		h.waitSweep(d)

		assert.Equal(t, []string{"project-a"}, h.dependencies("task-1"))
		insight, err := d.Insight(context.Background())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, insight.Errors, int64(1))
		stop(t, d)
	})
	t.Run("With interested side write failure", func(t *testing.T) {
		base := newHarness(t)
		flaky := &flakyLog{Log: base.log, failures: atomic.NewInt64(0), only: interest.InterestedSwimlane}
		h := newHarnessOn(t, flaky)
		h.emit(tasks, "1", taskAssigned{TaskID: "1", ProjectID: "a"})
		flaky.failures.Store(1)

		d := h.daemon()
		require.NoError(t, d.Start(context.Background()))
		h.waitSweep(d)
		stop(t, d)

		assert.Equal(t, []string{"project-a"}, h.dependencies("task-1"))
		assert.Equal(t, []string{"task-1"}, h.dependants("project-a"))
		// the concerned side was written by both attempts
		assert.Len(t, h.records("dcb.concerned-project-a"), 2)
		assert.Len(t, h.records("dcb.interested-task-1"), 1)

		insight, err := d.Insight(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 1, insight.Errors)
		assert.EqualValues(t, 1, insight.InterestsRegistered)
	})
	t.Run("With a registry read in flight", func(t *testing.T) {
		ctx := context.Background()
		base := newHarness(t)
		gated := newGatedLog(base.log)
		h := newHarnessOn(t, gated)
		h.emit(tasks, "1", taskAssigned{TaskID: "1", ProjectID: "p"})
		h.emit(tasks, "1", taskUnassigned{TaskID: "1", ProjectID: "p"})
		records := h.records("task-1")
		require.Len(t, records, 2)

		// a reader is held just after reading the head, before any edge exists
		gated.armed.Store(true)
		inFlight := make(chan error, 1)
		go func() {
			_, err := h.interests.Interested(ctx, "task-1")
			inFlight <- err
		}()
		select {
		case <-gated.entered:
		case <-time.After(5 * time.Second):
			t.Fatal("registry read never started")
		}

		d := h.daemon()
		processed := make(chan error, 1)
		go func() {
			err := d.process(ctx, records[0])
			if err == nil {
				err = d.process(ctx, records[1])
			}
			processed <- err
		}()

		select {
		case err := <-processed:
			close(gated.release)
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			close(gated.release)
			t.Fatal("daemon waited on the read in flight")
		}
		require.NoError(t, <-inFlight)

		res, err := h.interests.Interested(ctx, "task-1", entity.ResetCache())
		require.NoError(t, err)
		assert.Empty(t, res.State.Dependencies())
		assert.True(t, res.State.Processed(records[1].Metadata.EventID))
		assert.Empty(t, h.dependencies("task-1"))
		assert.Empty(t, h.dependants("project-p"))
	})
	t.Run("With entity registry", func(t *testing.T) {
		h := newHarness(t)
		entities := entity.NewRegistry()
		_, err := entity.New[taskView](h.log, h.codec, taskBehavior{}, entity.WithRegistry(entities),
			entity.WithIDTag("task", identity.Tagged("task")), entity.WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		_, err = entity.New[taskView](h.log, h.codec, projectBehavior{}, entity.WithRegistry(entities),
			entity.WithIDTag("project", identity.Tagged("project")), entity.WithLogger(log.DiscardLogger))
		require.NoError(t, err)

		stray := interest.On[taskAssigned](func(_ *event.Event, payload taskAssigned) []interest.Manifest {
			return []interest.Manifest{
				// no entity type owns the concerned stream
				interest.NewManifest(tasks, identity.NewID("task", payload.TaskID), "ghost-", identity.NewID("ghost", "1")),
				// the id tag disagrees with the swimlane
				interest.NewManifest(tasks, identity.NewID("task", payload.TaskID), projects, identity.NewID("task", "z")),
			}
		}, nil)
		h.emit(tasks, "1", taskAssigned{TaskID: "1", ProjectID: "a"})

		d := New(h.log, h.codec, h.interests, []interest.Trigger{assignments(), stray},
			WithLogger(log.DiscardLogger), WithRetryDelay(10*time.Millisecond), WithEntities(entities))
		require.NoError(t, d.Start(context.Background()))
		h.waitSweep(d)
		stop(t, d)

		assert.Equal(t, []string{"project-a"}, h.dependencies("task-1"))
		assert.Empty(t, h.dependants("ghost-1"))
		assert.Empty(t, h.dependants("project-z"))
	})
	t.Run("With panicking trigger", func(t *testing.T) {
		h := newHarness(t)
		h.emit(tasks, "1", taskAssigned{TaskID: "1", ProjectID: "a"})

		panicked := atomic.NewBool(false)
		boom := interest.On[taskAssigned](func(*event.Event, taskAssigned) []interest.Manifest {
			if panicked.CompareAndSwap(false, true) {
				panic("boom")
			}
			return nil
		}, nil)
		d := New(h.log, h.codec, h.interests, []interest.Trigger{assignments(), boom},
			WithLogger(log.DiscardLogger), WithRetryDelay(10*time.Millisecond))
		require.NoError(t, d.Start(context.Background()))
		h.waitSweep(d)

		assert.Equal(t, []string{"project-a"}, h.dependencies("task-1"))
		insight, err := d.Insight(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 1, insight.Errors)
		stop(t, d)
	})
	t.Run("With swimlane filter", func(t *testing.T) {
		h := newHarness(t)
		h.emit(tasks, "1", taskAssigned{TaskID: "1", ProjectID: "a"})

		d := h.daemon(WithSwimlanes(projects))
		require.NoError(t, d.Start(context.Background()))
		h.waitSweep(d)
		assert.Empty(t, h.dependencies("task-1"))
		stop(t, d)
	})
	t.Run("With closed log", func(t *testing.T) {
		h := newHarness(t)
		d := h.daemon()
		require.NoError(t, d.Start(context.Background()))
		h.waitSweep(d)

		require.NoError(t, h.log.Close())
		assert.ErrorIs(t, d.Wait(), hyerrors.ErrLogClosed)
		stop(t, d)
	})
}

func TestInterestScenario(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	h := newHarness(t)
	d := h.daemon()
	require.NoError(t, d.Start(ctx))
	defer stop(t, d)

	fetcher, err := entity.New[taskView](h.log, h.codec, taskBehavior{},
		entity.WithInterests(h.interests), entity.WithCache(), entity.WithLogger(log.DiscardLogger))
	require.NoError(t, err)
	task := identity.NewID("task", "1")

	h.emit(tasks, "1", taskAssigned{TaskID: "1", ProjectID: "a"})
	require.Eventually(t, func() bool {
		return len(h.dependencies("task-1")) == 1
	}, 5*time.Second, 10*time.Millisecond)

	h.emit(projects, "a", projectRenamed{Name: "apollo"})
	res, err := fetcher.Fetch(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, []string{"apollo"}, res.State.Projects)

	h.emit(tasks, "1", taskUnassigned{TaskID: "1", ProjectID: "a"})
	require.Eventually(t, func() bool {
		return len(h.dependencies("task-1")) == 0
	}, 5*time.Second, 10*time.Millisecond)

	h.emit(projects, "a", projectRenamed{Name: "artemis"})
	res, err = fetcher.Fetch(ctx, task)
	require.NoError(t, err)
	assert.NotContains(t, res.State.Projects, "artemis")
	assert.EqualValues(t, 1, res.Revision)

	cold, err := fetcher.Fetch(ctx, task, entity.ResetCache())
	require.NoError(t, err)
	assert.Equal(t, cold, res)
}

func TestMetrics(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	h := newHarness(t)
	h.emit(tasks, "1", taskAssigned{TaskID: "1", ProjectID: "a"})
	h.emit(tasks, "1", taskAssigned{TaskID: "1", ProjectID: "b"})

	d := h.daemon(WithMeterProvider(provider))
	require.NoError(t, d.Start(ctx))
	h.waitSweep(d)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	values := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				values[m.Name] = data.DataPoints[0].Value
			case metricdata.Gauge[int64]:
				values[m.Name] = data.DataPoints[0].Value
			}
		}
	}

	assert.EqualValues(t, 2, values["dcb.daemon.interests.registered"])
	assert.EqualValues(t, 0, values["dcb.daemon.interests.removed"])
	assert.EqualValues(t, 1, values["dcb.daemon.sweep.complete"])
	assert.GreaterOrEqual(t, values["dcb.daemon.position"], int64(1))
	stop(t, d)
}
