package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapAdapter_FieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"taskType": "process-enrichment-job"})

	log.Debug("hidden", nil)
	log.Info("job started", map[string]interface{}{"jobId": int64(7)})
	log.WithError(assert.AnError).Error("job failed", nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, "job started", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "process-enrichment-job", ctx["taskType"])
	assert.Equal(t, int64(7), ctx["jobId"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, assert.AnError.Error(), entries[1].ContextMap()["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("anything"))
}

func TestNewWithFile_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")
	zl := NewWithFile("info", "console", FileOptions{Filename: path, MaxSize: 1, MaxBackups: 1, MaxAge: 1})

	NewZapAdapter(zl).Info("written to file", map[string]interface{}{"k": "v"})
	_ = zl.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.Contains(t, string(data), `"k":"v"`)
}
