package logs

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseLevel("loud")
	assert.ErrorContains(t, err, "loud")
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: "warn"})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("fallback", "op", "atan2")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=fallback op=atan2")

	buf.Reset()
	logger, err = New(&buf, Options{Level: "debug"})
	require.NoError(t, err)
	logger.With("level_id", 1).Debug("push level")
	assert.Contains(t, buf.String(), "level_id=1")

	_, err = New(&buf, Options{Level: "verbose"})
	assert.Error(t, err)
}

func TestToJournalKey(t *testing.T) {
	assert.Equal(t, "LEVEL_ID", toJournalKey("level.id"))
	assert.Equal(t, "OP2", toJournalKey("op2"))
}
