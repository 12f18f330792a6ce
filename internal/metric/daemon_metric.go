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

package metric

import "go.opentelemetry.io/otel/metric"

// DaemonMetric groups the instruments describing the consistency boundary
// daemon.
//
// Instruments:
//   - dcb.daemon.position            (Int64ObservableGauge)
//   - dcb.daemon.interests.registered (Int64ObservableCounter)
//   - dcb.daemon.interests.removed    (Int64ObservableCounter)
//   - dcb.daemon.sweep.complete      (Int64ObservableGauge, 0 or 1)
type DaemonMetric struct {
	position   metric.Int64ObservableGauge
	registered metric.Int64ObservableCounter
	removed    metric.Int64ObservableCounter
	sweep      metric.Int64ObservableGauge
}

// NewDaemonMetric creates the daemon instruments using the provided Meter.
// It returns an error if any instrument cannot be created.
func NewDaemonMetric(meter metric.Meter) (*DaemonMetric, error) {
	var instruments DaemonMetric
	var err error

	if instruments.position, err = meter.Int64ObservableGauge(
		"dcb.daemon.position",
		metric.WithDescription("Global position of the last event processed by the live loop"),
	); err != nil {
		return nil, err
	}

	if instruments.registered, err = meter.Int64ObservableCounter(
		"dcb.daemon.interests.registered",
		metric.WithDescription("Total number of interest edges registered since startup"),
	); err != nil {
		return nil, err
	}

	if instruments.removed, err = meter.Int64ObservableCounter(
		"dcb.daemon.interests.removed",
		metric.WithDescription("Total number of interest edges removed since startup"),
	); err != nil {
		return nil, err
	}

	if instruments.sweep, err = meter.Int64ObservableGauge(
		"dcb.daemon.sweep.complete",
		metric.WithDescription("1 once the failsafe sweep reached the tip observed at startup"),
	); err != nil {
		return nil, err
	}

	return &instruments, nil
}

// Position returns the gauge of the last processed global position.
func (x *DaemonMetric) Position() metric.Int64ObservableGauge {
	return x.position
}

// InterestsRegistered returns the counter of registered edges.
func (x *DaemonMetric) InterestsRegistered() metric.Int64ObservableCounter {
	return x.registered
}

// InterestsRemoved returns the counter of removed edges.
func (x *DaemonMetric) InterestsRemoved() metric.Int64ObservableCounter {
	return x.removed
}

// SweepComplete returns the sweep completion gauge.
func (x *DaemonMetric) SweepComplete() metric.Int64ObservableGauge {
	return x.sweep
}

// Instruments returns every instrument, for Meter.RegisterCallback.
func (x *DaemonMetric) Instruments() []metric.Observable {
	return []metric.Observable{x.position, x.registered, x.removed, x.sweep}
}
