package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxibertaina03/balanza-industrial/internal/config"
)

func TestRootCommandSubcommands(t *testing.T) {
	root := rootCommand()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"], "serve subcommand missing")
	assert.True(t, names["version"], "version subcommand missing")
}

func TestApplyFlagOverrides(t *testing.T) {
	root := rootCommand()
	require.NoError(t, root.Flags().Set("listen", ":9999"))
	require.NoError(t, root.Flags().Set("simulate", "true"))

	cfg := &config.Config{Listen: ":8080"}
	applyFlagOverrides(root, cfg)

	assert.Equal(t, ":9999", cfg.Listen)
	assert.True(t, cfg.Scale.Simulate)
	// Unset flags leave config values alone.
	assert.Empty(t, cfg.Scale.Port)
}
