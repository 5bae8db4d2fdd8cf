// Package support holds the godog step definitions that drive the anamorph
// binary in the CLI integration suite.
package support

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastCommand   string
	LastStdout    string
	LastStderr    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	// Test environment
	Binary   string
	TempDir  string
	ImageDir string
	EnvVars  []string

	// Server management
	ServerCmd  *exec.Cmd
	ServerPort int
	ServerHost string
	ServerDone chan error

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPBody       []byte
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a scenario context running the given binary.
func NewTestContext(binary string) (*TestContext, error) {
	if binary == "" {
		return nil, errors.New("anamorph binary path is empty")
	}
	tempDir, err := os.MkdirTemp("", "anamorph-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{
		Binary:     binary,
		TempDir:    tempDir,
		ImageDir:   filepath.Join(tempDir, "images"),
		ServerHost: "127.0.0.1",
		// Scenarios never inherit a developer's config or environment.
		EnvVars: []string{
			"HOME=" + tempDir,
			"XDG_CONFIG_HOME=" + filepath.Join(tempDir, ".config"),
		},
	}, nil
}

// Cleanup stops the server and removes the scenario's temp directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	if err := testCtx.StopServer(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop server: %w", err))
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}
	return errors.Join(errs...)
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// Path resolves a scenario-relative path inside the temp directory.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}

// LastOutput is stdout followed by stderr of the last command.
func (testCtx *TestContext) LastOutput() string {
	return testCtx.LastStdout + testCtx.LastStderr
}

// substituteCommandVariables expands {tmp}, {images} and {port} in a step's
// command line.
func (testCtx *TestContext) substituteCommandVariables(command string) string {
	r := strings.NewReplacer(
		"{tmp}", testCtx.TempDir,
		"{images}", testCtx.ImageDir,
		"{port}", fmt.Sprint(testCtx.ServerPort),
	)
	return r.Replace(command)
}
