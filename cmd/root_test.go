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

	for _, name := range []string{"fetch", "analyze", "runs", "cities", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "fare-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestFetchCommand_Flags(t *testing.T) {
	for _, name := range []string{"request", "token", "delay", "departure", "dest", "all-cities",
		"flight-type", "from", "to", "min-days", "max-days", "sort"} {
		assert.NotNil(t, fetchCmd.Flags().Lookup(name), "fetch should have --%s", name)
	}
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	for _, name := range []string{"run", "input", "min-days", "max-days", "sort", "export", "limit"} {
		assert.NotNil(t, analyzeCmd.Flags().Lookup(name), "analyze should have --%s", name)
	}
	assert.Equal(t, "50", analyzeCmd.Flags().Lookup("limit").DefValue)
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
	assert.True(t, names["list"])
	assert.True(t, names["show"])
}

func TestCitiesCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range citiesCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "add", "remove"} {
		assert.True(t, names[name], "expected cities subcommand %q", name)
	}
}
