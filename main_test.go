package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhcgn/mailbox-grant/config"
	"github.com/dhcgn/mailbox-grant/runner"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"partial failures", fmt.Errorf("%w: 1 of 3 failed", runner.ErrDeliveryFailures), exitPartialFails},
		{"interrupted", fmt.Errorf("%w after 1 of 3", runner.ErrInterrupted), exitFatal},
		{"argument", &config.ArgumentError{Reason: "bad"}, exitFatal},
		{"other", errors.New("boom"), exitFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestExecute_MissingEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	code := execute(config.NormalizeArgs([]string{"-stage", "-grants.csv", "--config-dir", dir, "--log-dir", dir}), &stdout, &stderr)

	assert.Equal(t, exitFatal, code)
	assert.Contains(t, stdout.String(), "environment-stage.json")
	assert.Contains(t, stdout.String(), "Invalid environment values.")

	logs, err := filepath.Glob(filepath.Join(dir, "grant-log-*.txt"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	data, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Invalid environment values.")
}

func TestExecute_InvalidLogLevel(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	code := execute([]string{"grants.csv", "--log-level", "loud", "--log-dir", dir}, &stdout, &stderr)

	assert.Equal(t, exitFatal, code)
	assert.Contains(t, stdout.String(), "invalid --log-level")
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger("warn", &buf)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestExecute_UnknownArgumentsStillWriteGrantLog(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	code := execute(config.NormalizeArgs([]string{"-x", "--bogus", "--log-dir", dir, "--config-dir", dir, "-verbose"}), &stdout, &stderr)

	assert.Equal(t, exitFatal, code)
	assert.NotContains(t, stderr.String(), "unknown")

	logs, err := filepath.Glob(filepath.Join(dir, "grant-log-*.txt"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	data, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Reading configuration values from")
}
