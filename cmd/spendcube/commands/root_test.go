package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/YvodeRooij/spendcube/internal/checkpoint"
	"github.com/YvodeRooij/spendcube/internal/printer"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with args and returns captured output
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	prevOut, prevErr, prevNoColor := printer.Out, printer.Err, color.NoColor
	printer.Out, printer.Err, color.NoColor = &out, &errOut, true
	t.Cleanup(func() {
		printer.Out, printer.Err, color.NoColor = prevOut, prevErr, prevNoColor
	})

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yml")}, args...))
	err := Execute()
	return out.String(), errOut.String(), err
}

// memoryEnv clears the checkpoint environment so the memory backend is selected
func memoryEnv(t *testing.T) {
	for _, key := range []string{
		checkpoint.EnvExecutionMode,
		checkpoint.EnvBackend,
		checkpoint.EnvConnectionString,
		checkpoint.EnvRedisURL,
		checkpoint.EnvPoolSize,
	} {
		t.Setenv(key, "")
	}
}

// writeRecords writes the Dell/Staples batch and returns its path
func writeRecords(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"id": "r1", "vendor": "Dell", "description": "Latitude laptop", "amount": 1299},
  {"id": "r2", "vendor": "Staples", "description": "Copy paper", "amount": 89.5}
]`), 0644))
	return path
}

// TestRootCommand_ShowsHelpWhenNoSubcommand tests that the root command
// shows help instead of silently succeeding when invoked without a subcommand
func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	out, _, err := executeCommand(t)
	assert.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "spendcube")
}

// TestRootCommand_RejectsUnknownFlags tests that unknown flags cause an error
func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, _, err := executeCommand(t, "--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestSetVersionInfo(t *testing.T) {
	SetVersionInfo("1.2.3", "abc", "2026-10-17")
	assert.Equal(t, "1.2.3 (commit: abc, built: 2026-10-17)", rootCmd.Version)
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"skills", "classify", "resume", "checkpoint", "watch", "serve-health"} {
		assert.True(t, names[want], want)
	}
}
