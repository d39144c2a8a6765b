package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronBridge(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	log := Cron(base)

	log.Info("wake", "now", "10:00")
	log.Error(errors.New("panic in job"), "job failed", "entry", 1)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var info, failure map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &info))
	require.NoError(t, json.Unmarshal(lines[1], &failure))

	assert.Equal(t, "DEBUG", info["level"])
	assert.Equal(t, "wake", info["msg"])
	assert.Equal(t, "cron", info["component"])
	assert.Equal(t, "10:00", info["now"])

	assert.Equal(t, "ERROR", failure["level"])
	assert.Equal(t, "panic in job", failure["error"])
	assert.EqualValues(t, 1, failure["entry"])
}

func TestCronDefaultsToSlogDefault(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, Cron(nil))
}
