//go:build !integration

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"audit", "serve", "runs", "probe"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "practice-audit", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestAuditCommand_Flags(t *testing.T) {
	for _, name := range []string{"name", "locality", "category", "url", "campaign-xlsx"} {
		require.NotNil(t, auditCmd.Flags().Lookup(name), "audit command should have --%s", name)
	}
	assert.Equal(t, "json", auditCmd.Flags().Lookup("format").DefValue)
	assert.Equal(t, "1", auditCmd.Flags().Lookup("attempts").DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "stats"} {
		assert.True(t, names[name], "expected runs subcommand %q not found", name)
	}
	assert.Equal(t, "50", runsListCmd.Flags().Lookup("limit").DefValue)
	assert.Equal(t, "24h0m0s", runsStatsCmd.Flags().Lookup("since").DefValue)
}
