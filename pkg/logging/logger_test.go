package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	logger, err := New(Config{Level: "info", OutputPath: path, Format: "json"})
	require.NoError(t, err)
	logger.Info("SOV saved", zap.String("job", "co/JOB-1"))
	logger.Debug("hidden")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"SOV saved"`)
	assert.Contains(t, string(data), `"job":"co/JOB-1"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	logger, err := New(Config{Level: "loud", OutputPath: "stderr"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestKV(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	kv := NewKV(zap.New(core))

	kv.Info("Draw created", "job", "co/JOB-1", "application_number", 3, 42, "dropped")
	kv.Error("Draw creation failed", "error", errors.New("boom"))

	require.Equal(t, 2, logs.Len())
	first := logs.All()[0].ContextMap()
	assert.Equal(t, "co/JOB-1", first["job"])
	assert.EqualValues(t, 3, first["application_number"])
	assert.Len(t, first, 2)
	assert.Equal(t, "boom", logs.All()[1].ContextMap()["error"])
}
