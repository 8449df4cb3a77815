package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FileOutputAndLevels(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "nested", "devmux.log")
	logger, err := New(File(path))
	require.NoError(err)

	logger.Info("hello", "tab", "web")
	logger.Debug("hidden")
	require.NoError(logger.Close())

	b, err := os.ReadFile(path)
	require.NoError(err)
	assert.Contains(string(b), `"msg":"hello"`)
	assert.Contains(string(b), `"tab":"web"`)
	assert.NotContains(string(b), "hidden", "info level filters debug records")

	var rec map[string]any
	require.NoError(json.Unmarshal(b[:len(b)-1], &rec), "records are JSON lines")
}

func TestNew_DebugEnablesDebugRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devmux.log")
	logger, err := New(File(path), Debug())
	require.NoError(t, err)

	logger.Debug("visible")
	require.NoError(t, logger.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "visible")
}

func TestNew_NoOutputsDiscards(t *testing.T) {
	logger, err := New()
	require.NoError(t, err)
	logger.Info("goes nowhere")
	assert.NoError(t, logger.Close())
}

func TestFile_EmptyPathRejected(t *testing.T) {
	_, err := New(File(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log file path is required")
}

func TestWith_SharesCleanup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devmux.log")
	logger, err := New(File(path))
	require.NoError(t, err)

	child := logger.With("tab", "api")
	child.Info("tagged")
	require.NoError(t, logger.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"tab":"api"`)
}
