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

	"go.opentelemetry.io/otel/metric"

	hymetric "github.com/tochemey/hydrate/internal/metric"
)

// Insight is a snapshot of the daemon progress.
type Insight struct {
	// ProcessedPosition is the last position handled by the live loop. It
	// starts at the head observed at startup, -1 for an empty log.
	ProcessedPosition int64
	// SweepPosition is the last position handled by the sweep loop.
	SweepPosition int64
	// SweepTip is the position the sweep loop stops at.
	SweepTip int64
	// Tip is the current head of the log, -1 when empty.
	Tip             int64
	PercentComplete float64
	SweepComplete   bool
	// Interest edges written since startup.
	InterestsRegistered int64
	InterestsRemoved    int64
	Errors              int64
}

// Insight returns the progress of the daemon against the current head.
func (d *Daemon) Insight(ctx context.Context) (*Insight, error) {
	head, exists, err := d.log.Head(ctx)
	if err != nil {
		return nil, err
	}

	insight := &Insight{
		ProcessedPosition:   d.processed.Load(),
		SweepPosition:       d.sweepPosition.Load(),
		SweepTip:            d.sweepTip.Load(),
		Tip:                 -1,
		SweepComplete:       d.sweepComplete.Load(),
		InterestsRegistered: d.registered.Load(),
		InterestsRemoved:    d.removed.Load(),
		Errors:              d.errorCount.Load(),
		PercentComplete:     100,
	}
	if !exists {
		return insight, nil
	}

	insight.Tip = int64(head)
	covered := insight.ProcessedPosition + 1
	if !insight.SweepComplete {
		covered = min(covered, insight.SweepPosition+1)
	}
	insight.PercentComplete = min(100, float64(covered)*100/float64(head+1))
	return insight, nil
}

func (d *Daemon) registerMetrics() error {
	var opts []hymetric.Option
	if d.meterProvider != nil {
		opts = append(opts, hymetric.WithMeterProvider(d.meterProvider))
	}
	meter := hymetric.New(opts...).Meter()

	instruments, err := hymetric.NewDaemonMetric(meter)
	if err != nil {
		return err
	}

	d.registration, err = meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(instruments.Position(), d.processed.Load())
		observer.ObserveInt64(instruments.InterestsRegistered(), d.registered.Load())
		observer.ObserveInt64(instruments.InterestsRemoved(), d.removed.Load())
		var complete int64
		if d.sweepComplete.Load() {
			complete = 1
		}
		observer.ObserveInt64(instruments.SweepComplete(), complete)
		return nil
	}, instruments.Instruments()...)
	return err
}
