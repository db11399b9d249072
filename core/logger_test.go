package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerWritesOneRecordPerLine(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, LevelDebug).With(map[string]any{"turn_id": "t1"})

	logger.Trace("dropped")
	logger.With(map[string]any{"error": errors.New("boom")}).Warn("stage failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, sonic.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "stage failed", record["msg"])
	assert.Equal(t, "t1", record["turn_id"])
	assert.Equal(t, "boom", record["error"])
	assert.NotEmpty(t, record["ts"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestLoggerFromContext(t *testing.T) {
	fallback := NewLogger(nil)
	assert.Same(t, fallback, LoggerFromContext(context.Background(), fallback))

	turnLogger := NewLogger(nil)
	ctx := ContextWithTurnLogger(context.Background(), turnLogger)
	assert.Same(t, turnLogger, LoggerFromContext(ctx, fallback))
	assert.Same(t, GetLogger(), LoggerFromContext(context.Background(), nil))
}

func TestLoggerArgsAreAttrsOrFormatVerbs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, LevelInfo)

	logger.Info("turn finished", "status", "completed")
	logger.Info("took %dms", 12)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var pairs, formatted map[string]any
	require.NoError(t, sonic.Unmarshal([]byte(lines[0]), &pairs))
	require.NoError(t, sonic.Unmarshal([]byte(lines[1]), &formatted))
	assert.Equal(t, "turn finished", pairs["msg"])
	assert.Equal(t, "completed", pairs["status"])
	assert.Equal(t, "took 12ms", formatted["msg"])
}
