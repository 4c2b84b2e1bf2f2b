package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/pscheid92/webmon/internal/adapter/producer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCommand_PrintsDecodableConfig(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "--redis-url", "redis://cache:6379/2", "--prefix", "game"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	cfg, err := producer.ParseClientConfig(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "redis://cache:6379/2", cfg.RedisURL)
	assert.Equal(t, "game", cfg.KeyPrefix)
}

func TestShutdownCommand_SetsFlag(t *testing.T) {
	mr := miniredis.RunT(t)
	rootCmd.SetArgs([]string{"shutdown", "--redis-url", "redis://" + mr.Addr(), "--prefix", "game"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.True(t, mr.Exists("game:shutdown"))
}

func TestShutdownCommand_InvalidURL(t *testing.T) {
	rootCmd.SetArgs([]string{"shutdown", "--redis-url", "not a url"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --redis-url")
}
