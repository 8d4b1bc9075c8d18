package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdFlags(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd()
	require.NotNil(t, cmd.Flags().Lookup("config"))
	dev := cmd.Flags().Lookup("dev")
	require.NotNil(t, dev)
	assert.Equal(t, "false", dev.DefValue)
}

func TestRootCmdRejectsPositionalArgs(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd()
	cmd.SetArgs([]string{"extra"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	assert.Error(t, cmd.ExecuteContext(context.Background()))
}

func TestRootCmdFailsOnInvalidConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audit:\n  urls: []\n"), 0o600))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--dev", "--config", path})

	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "load config failed")
	assert.ErrorContains(t, err, "audit.urls")
}
