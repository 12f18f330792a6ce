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

package boltdb

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/identity"
)

// storedEvent is the value kept in the events bucket. The whole value is
// zstd compressed.
type storedEvent struct {
	StreamName     string            `json:"s"`
	StreamPosition uint64            `json:"p"`
	Swimlane       string            `json:"l"`
	IDTag          string            `json:"t"`
	EntityID       string            `json:"i"`
	EventType      string            `json:"e"`
	Payload        []byte            `json:"d"`
	Metadata       eventlog.Metadata `json:"m"`
}

type codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newCodec() (*codec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		_ = encoder.Close()
		return nil, err
	}
	return &codec{encoder: encoder, decoder: decoder}, nil
}

func (c *codec) encode(event *storedEvent) ([]byte, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return c.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

func (c *codec) decode(global uint64, value []byte) (*eventlog.Record, error) {
	raw, err := c.decoder.DecodeAll(value, nil)
	if err != nil {
		return nil, fmt.Errorf("boltdb: decompress event %d: %w", global, err)
	}

	var event storedEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("boltdb: decode event %d: %w", global, err)
	}

	return &eventlog.Record{
		StreamName:     event.StreamName,
		Swimlane:       identity.Swimlane(event.Swimlane),
		IDTag:          event.IDTag,
		EntityID:       event.EntityID,
		EventType:      event.EventType,
		Payload:        event.Payload,
		Metadata:       event.Metadata,
		GlobalPosition: global,
		StreamPosition: event.StreamPosition,
	}, nil
}

func (c *codec) close() error {
	c.decoder.Close()
	return c.encoder.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
