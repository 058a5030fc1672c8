// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objwatch.
//
// go-objwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package adapters

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("LogLevel.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"":        InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf)
	ctx := context.Background()

	logger.Info(ctx, "record appended", Field{Key: "bucket", Value: "b1"})
	assert.Contains(t, buf.String(), `"msg":"record appended"`)
	assert.Contains(t, buf.String(), `"bucket":"b1"`)

	buf.Reset()
	logger.Debug(ctx, "hidden")
	assert.Empty(t, buf.String(), "debug should be filtered at info level")

	logger.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, logger.GetLevel())
	logger.Debug(ctx, "visible")
	assert.Contains(t, buf.String(), "visible")

	buf.Reset()
	child := logger.WithFields(Field{Key: "worker_id", Value: 3})
	child.Warn(ctx, "batch failed", Field{Key: "error", Value: "boom"})
	out := buf.String()
	assert.Contains(t, out, `"worker_id":3`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"level":"WARN"`)
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf)
	ctx := context.Background()

	logger.Info(ctx, "eviction", Field{Key: "key", Value: "assignment2.txt"}, Field{Key: "size", Value: int64(28)})
	out := buf.String()
	assert.Contains(t, out, "eviction")
	assert.Contains(t, out, "key=assignment2.txt")
	assert.Contains(t, out, "size=28")

	buf.Reset()
	logger.SetLevel(ErrorLevel)
	logger.Warn(ctx, "filtered")
	assert.Empty(t, buf.String())

	logger.Error(ctx, "shown")
	assert.True(t, strings.Contains(buf.String(), "shown"))

	buf.Reset()
	child := logger.WithFields(Field{Key: "bucket", Value: "b1"})
	assert.Equal(t, ErrorLevel, child.GetLevel())
	child.Error(ctx, "with fields")
	assert.Contains(t, buf.String(), "bucket=b1")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger("json", WarnLevel, &buf)
	require.NoError(t, err)
	assert.IsType(t, &DefaultLogger{}, logger)
	assert.Equal(t, WarnLevel, logger.GetLevel())

	logger, err = NewLogger("zerolog", DebugLevel, &buf)
	require.NoError(t, err)
	assert.IsType(t, &ZerologLogger{}, logger)

	_, err = NewLogger("xml", InfoLevel, &buf)
	assert.Error(t, err)
}

func TestNoOpLogger(t *testing.T) {
	logger := NewNoOpLogger()
	ctx := context.Background()
	logger.Debug(ctx, "x")
	logger.Info(ctx, "x")
	logger.Warn(ctx, "x")
	logger.Error(ctx, "x")
	assert.Same(t, logger, logger.WithFields(Field{Key: "k", Value: "v"}))
	logger.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, logger.GetLevel())
}
