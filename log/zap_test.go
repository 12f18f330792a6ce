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

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZap(t *testing.T) {
	t.Run("With Info log level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.Debug("hidden")
		logger.Info("test info")

		lines := entries(t, buffer)
		require.Len(t, lines, 1)
		assert.Equal(t, "test info", lines[0]["msg"])
		assert.Equal(t, "info", lines[0]["level"])
		assert.Equal(t, InfoLevel, logger.LogLevel())
		assert.True(t, logger.Enabled(WarningLevel))
		assert.False(t, logger.Enabled(DebugLevel))
	})
	t.Run("With Debug log level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(DebugLevel, buffer)
		logger.Debugf("position=%d", 42)

		lines := entries(t, buffer)
		require.Len(t, lines, 1)
		assert.Equal(t, "position=42", lines[0]["msg"])
		assert.Equal(t, "debug", lines[0]["level"])
	})
	t.Run("With Error log level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(ErrorLevel, buffer)
		logger.Warn("hidden")
		logger.Errorf("failed: %v", errors.New("boom"))

		lines := entries(t, buffer)
		require.Len(t, lines, 1)
		assert.Equal(t, "failed: boom", lines[0]["msg"])
		assert.Equal(t, "error", lines[0]["level"])
	})
	t.Run("With fields", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer).With("stream", "account-1", "position", int64(3), "dangling")
		logger.Warn("skipped")

		lines := entries(t, buffer)
		require.Len(t, lines, 1)
		assert.Equal(t, "account-1", lines[0]["stream"])
		assert.EqualValues(t, 3, lines[0]["position"])
		assert.Equal(t, "dangling", lines[0]["_"])
	})
	t.Run("With buffered file output", func(t *testing.T) {
		file, err := os.CreateTemp(t.TempDir(), "log")
		require.NoError(t, err)
		defer file.Close()

		logger := NewZap(InfoLevel, file)
		require.NotNil(t, logger.buffered)
		logger.Info("buffered")
		require.NoError(t, logger.Flush())

		content, err := os.ReadFile(file.Name())
		require.NoError(t, err)
		assert.Contains(t, string(content), "buffered")
	})
}

func TestDiscardLogger(t *testing.T) {
	logger := DiscardLogger.With("key", "value")
	logger.Info("nothing")
	assert.False(t, logger.Enabled(ErrorLevel))
	assert.Equal(t, InfoLevel, logger.LogLevel())
	require.NoError(t, logger.Flush())
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		name  string
		level Level
	}{
		{name: "info", level: InfoLevel},
		{name: "", level: InfoLevel},
		{name: "WARNING", level: WarningLevel},
		{name: "warn", level: WarningLevel},
		{name: "error", level: ErrorLevel},
		{name: " debug ", level: DebugLevel},
	}
	for _, tc := range testCases {
		level, err := ParseLevel(tc.name)
		require.NoError(t, err)
		assert.Equal(t, tc.level, level)
	}

	level, err := ParseLevel("trace")
	require.Error(t, err)
	assert.Equal(t, InvalidLevel, level)
	assert.Equal(t, "invalid", level.String())
	assert.Equal(t, "warn", WarningLevel.String())
}

func entries(t *testing.T, buffer *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buffer.String()), "\n") {
		if line == "" {
			continue
		}
		entry := make(map[string]any)
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}
