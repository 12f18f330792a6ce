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
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tochemey/hydrate/entity"
	hyerrors "github.com/tochemey/hydrate/errors"
	"github.com/tochemey/hydrate/event"
	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/interest"
)

// process evaluates the triggers on one record and writes the resulting
// edges. Re-processing a record is a no-op.
func (d *Daemon) process(ctx context.Context, record *eventlog.Record) error {
	if record.Swimlane == interest.InterestedSwimlane || record.Swimlane == interest.ConcernedSwimlane {
		return nil
	}

	evt := d.codec.Decode(record)
	if evt.IsToxic() {
		return nil
	}

	initiates, stops, err := d.evaluate(evt)
	if err != nil {
		return err
	}
	initiates, stops = d.admit(evt, initiates), d.admit(evt, stops)
	if len(initiates) == 0 && len(stops) == 0 {
		return nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, p := range group(initiates, stops) {
		eg.Go(func() error { return d.apply(egCtx, evt, p) })
	}
	return eg.Wait()
}

func (d *Daemon) evaluate(evt *event.Event) (initiates, stops []interest.Manifest, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trigger on event=(%s): %w", evt.Metadata.EventID, hyerrors.Recovered(r))
		}
	}()

	for _, trigger := range d.triggers {
		initiates = append(initiates, trigger.Initiates(evt)...)
		stops = append(stops, trigger.Stops(evt)...)
	}
	return initiates, stops, nil
}

// admit keeps the manifests whose both ends resolve to a registered entity
// type. Without an entity registry every manifest is kept.
func (d *Daemon) admit(evt *event.Event, manifests []interest.Manifest) []interest.Manifest {
	if d.entities == nil {
		return manifests
	}

	kept := manifests[:0:0]
	for _, m := range manifests {
		if err := d.resolve(m.Interested); err != nil {
			d.logger.Warnf("dropping interest of event=(%s): %v", evt.Metadata.EventID, err)
			continue
		}
		if err := d.resolve(m.Concerned); err != nil {
			d.logger.Warnf("dropping interest of event=(%s): %v", evt.Metadata.EventID, err)
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

func (d *Daemon) resolve(ref interest.Ref) error {
	_, owned, err := d.entities.Resolve(ref.StreamName)
	if err != nil {
		return err
	}
	id, err := ref.StreamID(d.entities.IDs())
	if err != nil {
		return fmt.Errorf("stream=(%s): %w", ref.StreamName, err)
	}
	if id.Tag() != owned.Tag() || id.StreamID() != owned.StreamID() {
		return fmt.Errorf("stream=(%s): id=(%s:%s) does not belong to its swimlane", ref.StreamName, id.Tag(), id.StreamID())
	}
	return nil
}

// apply writes the transitions of one interested stream: every concerned
// side first, concurrently, then all interested-side events in one insert.
// The interested insert records the originating event id, so a failure in
// between is healed by processing the event again.
func (d *Daemon) apply(ctx context.Context, cause *event.Event, p *plan) error {
	originating := cause.Metadata.EventID

	// a coalesced read could predate this daemon's own last write
	current, err := d.interests.Interested(ctx, p.interested, entity.Fresh())
	if err != nil {
		return err
	}
	if current.State.Processed(originating) {
		return nil
	}

	transitions := p.transitions(current.State)
	if len(transitions) == 0 {
		return nil
	}

	metadata := event.CausedBy(cause, ActorID)
	writes := make([]*interest.Writes, 0, len(transitions))
	var registered, removed int64
	for _, transition := range transitions {
		var (
			w   *interest.Writes
			err error
		)
		switch t := transition.(type) {
		case Initiate:
			w, err = interest.Registration(t.Manifest, originating, metadata)
			registered++
		case Stop:
			w, err = interest.Removal(t.Manifest, originating, metadata)
			removed++
		default:
			err = fmt.Errorf("unknown transition %T", transition)
		}
		if err != nil {
			return err
		}
		writes = append(writes, w)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, w := range writes {
		eg.Go(func() error {
			_, err := d.log.Insert(egCtx, interest.ConcernedSwimlane, interest.Key(w.Manifest.Concerned.StreamName),
				eventlog.AppendAnyway{}, []eventlog.Candidate{w.Concerned})
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	candidates := make([]eventlog.Candidate, 0, len(writes))
	for _, w := range writes {
		candidates = append(candidates, w.Interested)
	}
	if _, err := d.log.Insert(ctx, interest.InterestedSwimlane, interest.Key(p.interested), eventlog.AppendAnyway{}, candidates); err != nil {
		return err
	}

	d.registered.Add(registered)
	d.removed.Add(removed)
	for _, transition := range transitions {
		m := transition.manifest()
		d.logger.Debugf("interest %T stream=(%s) concerned=(%s) originating=(%s)",
			transition, m.Interested.StreamName, m.Concerned.StreamName, originating)
	}
	return nil
}
