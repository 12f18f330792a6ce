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

package eventlog

import (
	"math"
)

// Position is the starting point of a log-wide read.
type Position interface {
	position()
}

// Start reads from the first event of the log.
type Start struct{}

// End reads from now on: no event present at the time of the call is read.
type End struct{}

// After reads the events past Position in the read direction: greater
// positions when reading forwards, lesser ones when reading backwards.
type After struct {
	Position uint64
}

func (Start) position() {}
func (End) position()   {}
func (After) position() {}

// Direction is the order of a log-wide read.
type Direction int

const (
	// Forwards reads in increasing global position.
	Forwards Direction = iota
	// Backwards reads in decreasing global position.
	Backwards
)

// String returns the direction name.
func (d Direction) String() string {
	if d == Backwards {
		return "backwards"
	}
	return "forwards"
}

// FirstPosition resolves the first global position a read returns given
// the log head. The boolean is false when the read is empty.
func FirstPosition(from Position, direction Direction, head uint64, hasHead bool) (uint64, bool) {
	if !hasHead {
		return 0, false
	}
	switch p := from.(type) {
	case Start:
		if direction == Backwards {
			return 0, false
		}
		return 0, true
	case End:
		if direction == Backwards {
			return head, true
		}
		return 0, false
	case After:
		if direction == Backwards {
			if p.Position == 0 {
				return 0, false
			}
			return min(p.Position-1, head), true
		}
		if p.Position == math.MaxUint64 || p.Position >= head {
			return 0, false
		}
		return p.Position + 1, true
	default:
		return 0, false
	}
}
