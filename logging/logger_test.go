package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestNew_JSONDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(Config{Level: "info", Format: "json"}, "1.2.3", &buf)

	log.Info("door moved", "state", 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "coopdoor", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Equal(t, "door moved", entry["msg"])
	assert.EqualValues(t, 1, entry["state"])
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(Config{Level: "warn", Format: "text"}, "dev", &buf)

	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWith_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(Config{Format: "text"}, "dev", &buf).With("component", "tracker")

	log.Info("hello")
	assert.Contains(t, buf.String(), "component=tracker")
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))
	l := Default()
	assert.Same(t, l, OrDiscard(l))
}
