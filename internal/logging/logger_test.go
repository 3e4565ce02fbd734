package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestLogger_Log(t *testing.T) {
	t.Run("defaults level to info", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, time.UTC).Log(map[string]any{"event": "x", "status": "success"})

		entry := decode(t, &buf)
		assert.Equal(t, "info", entry["level"])
		assert.Equal(t, "x", entry["event"])
		assert.NotEmpty(t, entry["ts"])
	})

	t.Run("error status implies error level", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, time.UTC).Log(map[string]any{"status": "error"})

		assert.Equal(t, "error", decode(t, &buf)["level"])
	})

	t.Run("explicit level wins", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, nil).Log(map[string]any{"status": "error", "level": "warn"})

		assert.Equal(t, "warn", decode(t, &buf)["level"])
	})

	t.Run("nil logger is a no-op", func(t *testing.T) {
		var l *Logger
		assert.NotPanics(t, func() { l.Log(map[string]any{}) })
	})
}

func TestLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	fields := map[string]any{"file_id": "abc"}
	New(&buf, time.UTC).Error("storage_cleanup_failed", errors.New("boom"), fields)

	entry := decode(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "storage_cleanup_failed", entry["msg"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "abc", entry["file_id"])
	assert.NotContains(t, fields, "msg")
}

func TestLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, time.UTC).Info("started", nil)

	entry := decode(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "started", entry["msg"])
}
