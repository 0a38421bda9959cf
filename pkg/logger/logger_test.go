package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockwatch/pkg/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output: %s", buf.String())
	return entry
}

func TestNew_SetsGlobalLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log := New(&config.Config{Env: "development", LogLevel: tt.level, LogFormat: "json"})
			require.NotNil(t, log)
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"fatal", zerolog.FatalLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "test")

	tests := []struct {
		name    string
		logFunc func()
		level   string
		msg     string
	}{
		{"debug", func() { log.Debug("d") }, "debug", "d"},
		{"info", func() { log.Info("i") }, "info", "i"},
		{"warn", func() { log.Warn("w") }, "warn", "w"},
		{"error", func() { log.Error("e") }, "error", "e"},
		{"infof", func() { log.Infof("run %d", 3) }, "info", "run 3"},
		{"errorf", func() { log.Errorf("ticker %s", "XYZ") }, "error", "ticker XYZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()

			entry := decodeLine(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, tt.msg, entry["message"])
			assert.Equal(t, "test", entry["env"])
		})
	}
}

func TestFieldsAndErrors(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "")

	log.Module("screening").
		WithFields(map[string]interface{}{"ticker": "XYZ", "admitted": 1}).
		WithError(errors.New("store unavailable")).
		Error("ticker failed")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "screening", entry["module"])
	assert.Equal(t, "XYZ", entry["ticker"])
	assert.Equal(t, float64(1), entry["admitted"])
	assert.Equal(t, "store unavailable", entry["error"])
	assert.NotContains(t, entry, "env")
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().WithField("k", "v").Info("discarded")
	})
}
