package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNew_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netra.log")
	logger := New(Options{Level: "warn", Format: "json", OutputPaths: []string{path}})

	logger.Info("dropped")
	logger.Warn("retrieval degraded", zap.String("code", "RETRIEVAL_DEGRADED"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "retrieval degraded", rec["msg"])
	assert.Equal(t, "RETRIEVAL_DEGRADED", rec["code"])
	assert.Contains(t, rec, "timestamp")
}

func TestNew_FallsBackOnBadOutput(t *testing.T) {
	logger := New(Options{OutputPaths: []string{"unknown-scheme://nowhere"}})
	assert.NotNil(t, logger)
}
