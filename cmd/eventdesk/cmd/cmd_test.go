package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestSessionShowAndClear(t *testing.T) {
	t.Setenv("EVENTDESK_DATA_DIR", t.TempDir())
	t.Setenv("EVENTDESK_LOG_LEVEL", "error")

	out, err := execute(t, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
	assert.Contains(t, out, "Location: /")

	out, err = execute(t, "session", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Session cleared")
	assert.FileExists(t, filepath.Join(cfg.DataDir, "session.db"))
}

func TestInvalidConfigRejected(t *testing.T) {
	t.Setenv("EVENTDESK_SESSION_DRIVER", "redis")
	_, err := execute(t, "session", "show")
	assert.ErrorContains(t, err, "invalid configuration")
}
