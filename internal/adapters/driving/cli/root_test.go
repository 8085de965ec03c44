package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "fabula", rootCmd.Use)
}

func TestRootCmd_Short(t *testing.T) {
	assert.Equal(t, "Character-persona storytelling from the terminal", rootCmd.Short)
}

func TestRootCmd_Long(t *testing.T) {
	assert.Contains(t, rootCmd.Long, "persona.toml")
	assert.Contains(t, rootCmd.Long, "reference document")
}

func TestRootCmd_HasVerboseFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, flag, "verbose flag should exist")
	assert.Equal(t, "v", flag.Shorthand)
}

func TestRootCmd_HasCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}

	for _, expected := range []string{"generate", "image", "index", "personas", "settings", "chat", "mcp", "version"} {
		assert.True(t, names[expected], "command %s should be registered", expected)
	}
}

func TestResolveHome_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FABULA_HOME", dir)

	home, err := resolveHome()

	require.NoError(t, err)
	assert.Equal(t, dir, home)
}

func TestResolveHome_Default(t *testing.T) {
	t.Setenv("FABULA_HOME", "")
	t.Setenv("HOME", "/tmp/fabula-test-home")

	home, err := resolveHome()

	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/fabula-test-home", ".fabula"), home)
}
