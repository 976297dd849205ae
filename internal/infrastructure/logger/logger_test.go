package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/maisgenetica/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromLogConfig(t *testing.T) {
	cfg := FromLogConfig(config.LogConfig{Level: "warn"})

	assert.Equal(t, "warn", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	log.Debug("hidden")
	log.Info("registration stored", zap.String("protocol_id", "20261019150405"))
	require.NoError(t, log.Sync())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		lines = append(lines, entry)
	}
	require.Len(t, lines, 1)
	assert.Equal(t, "registration stored", lines[0]["msg"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "20261019150405", lines[0]["protocol_id"])
	assert.Contains(t, lines[0], "caller")
}

func TestNew_UnwritableOutput(t *testing.T) {
	_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "app.log")})

	assert.Error(t, err)
}

func TestNew_TeesExtraCores(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)

	log, err := New(Config{Level: "debug", Format: "console", Output: "stderr"}, core)
	require.NoError(t, err)
	log.Info("only primary")
	log.Warn("both")

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "both", recorded.All()[0].Message)
}
