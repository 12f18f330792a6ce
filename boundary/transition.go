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
	"maps"
	"slices"

	"github.com/tochemey/hydrate/interest"
)

// Transition is the outcome of evaluating the triggers for one interested
// stream: either Initiate or Stop.
type Transition interface {
	manifest() interest.Manifest
}

// Initiate adds an edge.
type Initiate struct {
	Manifest interest.Manifest
}

// Stop removes an edge.
type Stop struct {
	Manifest interest.Manifest
}

func (t Initiate) manifest() interest.Manifest { return t.Manifest }
func (t Stop) manifest() interest.Manifest     { return t.Manifest }

// plan is the set of manifests one source event yields for one interested
// stream, deduplicated by concerned stream.
type plan struct {
	interested string
	initiates  map[string]interest.Manifest
	stops      map[string]interest.Manifest
}

// group buckets manifests by interested stream.
func group(initiates, stops []interest.Manifest) []*plan {
	plans := make(map[string]*plan)
	get := func(streamName string) *plan {
		p, ok := plans[streamName]
		if !ok {
			p = &plan{
				interested: streamName,
				initiates:  make(map[string]interest.Manifest),
				stops:      make(map[string]interest.Manifest),
			}
			plans[streamName] = p
		}
		return p
	}

	for _, m := range initiates {
		get(m.Interested.StreamName).initiates[m.Concerned.StreamName] = m
	}
	for _, m := range stops {
		get(m.Interested.StreamName).stops[m.Concerned.StreamName] = m
	}

	out := make([]*plan, 0, len(plans))
	for _, name := range slices.Sorted(maps.Keys(plans)) {
		out = append(out, plans[name])
	}
	return out
}

// transitions filters the plan against the current interested state. An
// edge both initiated and stopped by the same event is left untouched.
func (p *plan) transitions(state interest.Interested) []Transition {
	var out []Transition
	for _, concerned := range slices.Sorted(maps.Keys(p.stops)) {
		if _, both := p.initiates[concerned]; both {
			continue
		}
		if state.DependsOn(concerned) {
			out = append(out, Stop{Manifest: p.stops[concerned]})
		}
	}
	for _, concerned := range slices.Sorted(maps.Keys(p.initiates)) {
		if _, both := p.stops[concerned]; both {
			continue
		}
		if !state.DependsOn(concerned) {
			out = append(out, Initiate{Manifest: p.initiates[concerned]})
		}
	}
	return out
}
