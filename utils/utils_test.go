package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortenHomePath(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	home, err := os.UserHomeDir()
	require.NoError(err)

	assert.Equal("~", ShortenHomePath(home))
	assert.Equal("~/projects/x", ShortenHomePath(filepath.Join(home, "projects", "x")))
	assert.Equal("/etc/passwd", ShortenHomePath("/etc/passwd"))
	assert.Equal("", ShortenHomePath(""))

	parent := filepath.Dir(home)
	assert.Equal(parent, ShortenHomePath(parent), "paths above home stay verbatim")
}

func TestConfigFilePath(t *testing.T) {
	path := ConfigFilePath()
	assert.True(t, strings.HasSuffix(path, filepath.Join("devmux", "devmux.yaml")) ||
		strings.HasSuffix(path, filepath.Join(".devmux", "devmux.yaml")))
}

func TestLogFilePath(t *testing.T) {
	assert.Equal(t, "devmux.log", filepath.Base(LogFilePath()))
}
