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

package memory

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/hashicorp/go-memdb"

	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/identity"
)

// eventRow is the memdb representation of a stored event.
type eventRow struct {
	GlobalPosition uint64
	StreamName     string
	StreamPosition uint64
	Swimlane       identity.Swimlane
	IDTag          string
	EntityID       string
	EventType      string
	Payload        []byte
	Metadata       eventlog.Metadata
}

const (
	eventsTable = "events"
	globalIndex = "id"
	streamIndex = "stream"
)

// eventsSchema indexes events by global position and by stream position
// within their stream.
var eventsSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		eventsTable: {
			Name: eventsTable,
			Indexes: map[string]*memdb.IndexSchema{
				globalIndex: {
					Name:    globalIndex,
					Unique:  true,
					Indexer: &positionIndex{Field: "GlobalPosition"},
				},
				streamIndex: {
					Name:   streamIndex,
					Unique: true,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "StreamName"},
							&positionIndex{Field: "StreamPosition"},
						},
					},
				},
			},
		},
	},
}

// positionIndex indexes a uint64 field with a fixed-width big-endian key
// so that radix order matches numeric order. memdb.UintFieldIndex uses a
// varint encoding, which does not sort.
type positionIndex struct {
	Field string
}

var (
	_ memdb.SingleIndexer = (*positionIndex)(nil)
	_ memdb.Indexer       = (*positionIndex)(nil)
)

func (p *positionIndex) FromObject(obj any) (bool, []byte, error) {
	v := reflect.Indirect(reflect.ValueOf(obj))
	fv := v.FieldByName(p.Field)
	if !fv.IsValid() || fv.Kind() != reflect.Uint64 {
		return false, nil, fmt.Errorf("field %q is not a uint64", p.Field)
	}
	return true, encodePosition(fv.Uint()), nil
}

func (p *positionIndex) FromArgs(args ...any) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("must provide only a single argument")
	}
	position, ok := args[0].(uint64)
	if !ok {
		return nil, fmt.Errorf("argument must be a uint64: %#v", args[0])
	}
	return encodePosition(position), nil
}

func encodePosition(position uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, position)
	return key
}

func (r *eventRow) record() *eventlog.Record {
	return &eventlog.Record{
		StreamName:     r.StreamName,
		Swimlane:       r.Swimlane,
		IDTag:          r.IDTag,
		EntityID:       r.EntityID,
		EventType:      r.EventType,
		Payload:        r.Payload,
		Metadata:       r.Metadata,
		GlobalPosition: r.GlobalPosition,
		StreamPosition: r.StreamPosition,
	}
}
