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

package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyStringValidator(t *testing.T) {
	require.NoError(t, NewEmptyStringValidator("path", "events.db").Validate())
	assert.EqualError(t, NewEmptyStringValidator("path", "  ").Validate(), "the [path] is required")
}

func TestOneOfValidator(t *testing.T) {
	require.NoError(t, NewOneOfValidator("backend", "sqlite", "memory", "boltdb", "sqlite").Validate())
	assert.EqualError(t, NewOneOfValidator("backend", "mongo", "memory", "boltdb").Validate(),
		`the [backend] must be one of memory|boltdb, got "mongo"`)
}

func TestDurationValidator(t *testing.T) {
	testCases := []struct {
		name     string
		value    time.Duration
		optional bool
		wantErr  bool
	}{
		{name: "positive", value: time.Second},
		{name: "zero", value: 0, wantErr: true},
		{name: "negative", value: -time.Second, wantErr: true},
		{name: "optional zero", value: 0, optional: true},
		{name: "optional negative", value: -time.Second, optional: true, wantErr: true},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			validator := NewDurationValidator("delay", tt.value)
			if tt.optional {
				validator = NewOptionalDurationValidator("delay", tt.value)
			}
			if tt.wantErr {
				assert.Error(t, validator.Validate())
				return
			}
			assert.NoError(t, validator.Validate())
		})
	}
}
