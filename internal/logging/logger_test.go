package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARNING "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger(t *testing.T) {
	t.Run("level from env value", func(t *testing.T) {
		var buf bytes.Buffer
		log := newLogger(&buf, false, "warn")

		log.Info("hidden")
		log.Warn("shown", "component", "Reconciler")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "msg=shown")
		assert.Contains(t, out, "component=Reconciler")
		assert.NotContains(t, out, "time=")
	})

	t.Run("debug flag wins", func(t *testing.T) {
		var buf bytes.Buffer
		log := newLogger(&buf, true, "error")

		log.Debug("visible")

		assert.Contains(t, buf.String(), "msg=visible")
	})
}

func TestShortPath(t *testing.T) {
	assert.Equal(t, "internal/usecase/reconciler.go", shortPath("/home/dev/src/govsync/internal/usecase/reconciler.go"))
	assert.Equal(t, "usecase/reconciler.go", shortPath("/tmp/x/usecase/reconciler.go"))
	assert.Equal(t, "main.go", shortPath("main.go"))
}
