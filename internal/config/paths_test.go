package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths(t *testing.T) {
	t.Run("default home", func(t *testing.T) {
		t.Setenv("MATRIX_HOME", "")
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		p, err := ResolvePaths()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".matrix"), p.Base)
		assert.Equal(t, filepath.Join(home, ".matrix", "config.yaml"), p.Config)
	})

	t.Run("MATRIX_HOME", func(t *testing.T) {
		base := t.TempDir()
		t.Setenv("MATRIX_HOME", base)

		p, err := ResolvePaths()
		require.NoError(t, err)
		assert.Equal(t, Paths{
			Base:          base,
			Config:        filepath.Join(base, "config.yaml"),
			Credentials:   filepath.Join(base, "credentials"),
			Conversations: filepath.Join(base, "conversations"),
			Logs:          filepath.Join(base, "logs"),
			Data:          filepath.Join(base, "data"),
		}, p)
		assert.Equal(t, filepath.Join(base, "data", "matrix.db"), p.Database())
		assert.Equal(t, filepath.Join(base, "credentials", "google-client.json"), p.GoogleCredentials())
		assert.Equal(t, filepath.Join(base, "credentials", "google-token.json"), p.GoogleToken())
	})
}

func TestEnsureDirs(t *testing.T) {
	t.Setenv("MATRIX_HOME", filepath.Join(t.TempDir(), "home"))
	p, err := ResolvePaths()
	require.NoError(t, err)

	require.NoError(t, p.EnsureDirs())
	require.NoError(t, p.EnsureDirs())

	for _, dir := range []string{p.Base, p.Credentials, p.Conversations, p.Logs, p.Data} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0o700), info.Mode().Perm(), dir)
	}
}
