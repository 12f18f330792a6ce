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
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tochemey/hydrate/eventlog"
	"github.com/tochemey/hydrate/eventlog/logtest"
)

func TestLog(t *testing.T) {
	defer goleak.VerifyNone(t)
	logtest.Run(t, func(t *testing.T, maxPayload int) eventlog.Log {
		log, err := New(WithMaxPayload(maxPayload), WithPageSize(3))
		require.NoError(t, err)
		return log
	})
}

func TestPositionIndex(t *testing.T) {
	index := &positionIndex{Field: "GlobalPosition"}

	ok, key, err := index.FromObject(&eventRow{GlobalPosition: 258})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 2}, key)

	_, err = index.FromArgs("258")
	require.Error(t, err)
	_, err = index.FromArgs(uint64(1), uint64(2))
	require.Error(t, err)

	_, _, err = (&positionIndex{Field: "StreamName"}).FromObject(&eventRow{})
	require.Error(t, err)
}
