package support

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// iRunCommand executes the anamorph binary with the given arguments.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substituteCommandVariables(command)
	testCtx.LastCommand = command
	testCtx.LastStartTime = time.Now()

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] == "anamorph" {
		parts[0] = testCtx.Binary
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...) //nolint:gosec // G204: scenario-controlled command
	cmd.Dir = testCtx.TempDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	testCtx.LastStdout = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastError = err
	testCtx.LastDuration = time.Since(testCtx.LastStartTime)

	var exitError *exec.ExitError
	switch {
	case err == nil:
		testCtx.LastExitCode = 0
	case errors.As(err, &exitError):
		testCtx.LastExitCode = exitError.ExitCode()
	default:
		testCtx.LastExitCode = -1
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput())
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput())
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastOutput(), expectedText) {
		return fmt.Errorf("output does not contain %q\nActual output: %s", expectedText, testCtx.LastOutput())
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput(), text) {
		return fmt.Errorf("output unexpectedly contains %q\nActual output: %s", text, testCtx.LastOutput())
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if !strings.Contains(strings.ToLower(testCtx.LastOutput()), strings.ToLower(errorText)) {
		return fmt.Errorf("error output does not mention %q\nActual output: %s", errorText, testCtx.LastOutput())
	}
	return nil
}

// theOutputShouldBeValidJSON checks that stdout starts with a JSON value;
// logs go to stderr and a trailing "Wrote" line is allowed.
func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	var v any
	if err := json.NewDecoder(strings.NewReader(testCtx.LastStdout)).Decode(&v); err != nil {
		return fmt.Errorf("stdout is not valid JSON: %w\nOutput: %s", err, testCtx.LastStdout)
	}
	return nil
}

// theJSONShouldContain checks a dotted field path in the stdout JSON.
func (testCtx *TestContext) theJSONShouldContain(field string) error {
	return jsonHasField([]byte(testCtx.LastStdout), field)
}

func (testCtx *TestContext) theJSONFieldShouldEqual(field, want string) error {
	v, err := jsonField([]byte(testCtx.LastStdout), field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("JSON field %s is %s, want %s", field, got, want)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidCSVWithRows(rows int) error {
	records, err := csv.NewReader(strings.NewReader(testCtx.LastStdout)).ReadAll()
	if err != nil {
		return fmt.Errorf("stdout is not valid CSV: %w", err)
	}
	// Header plus one row per image.
	if len(records) != rows+1 {
		return fmt.Errorf("CSV has %d data rows, want %d", len(records)-1, rows)
	}
	return nil
}

func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	testCtx.AddEnvVar(name, testCtx.substituteCommandVariables(value))
	return nil
}

func (testCtx *TestContext) aConfigFileContaining(name string, body *godog.DocString) error {
	path := testCtx.Path(name)
	return os.WriteFile(path, []byte(body.Content), 0o600)
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	path := testCtx.Path(testCtx.substituteCommandVariables(name))
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("expected file %s: %w\nOutput: %s", path, err, testCtx.LastOutput())
	}
	return nil
}

func (testCtx *TestContext) theFileShouldNotExist(name string) error {
	path := testCtx.Path(testCtx.substituteCommandVariables(name))
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file %s should not exist", path)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, expected string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}
	if !strings.Contains(string(data), expected) {
		return fmt.Errorf("file %s does not contain %q", name, expected)
	}
	return nil
}

func jsonField(data []byte, field string) (any, error) {
	var current any
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&current); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	for _, part := range strings.Split(field, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("JSON field %s: %s is not an object", field, part)
		}
		if current, ok = obj[part]; !ok {
			return nil, fmt.Errorf("JSON does not contain field %s", field)
		}
	}
	return current, nil
}

func jsonHasField(data []byte, field string) error {
	_, err := jsonField(data, field)
	return err
}

// RegisterCommonSteps registers command, output and file steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)

	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON should contain "([^"]*)"$`, testCtx.theJSONShouldContain)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldEqual)
	sc.Step(`^the output should be valid CSV with (\d+) rows?$`, testCtx.theOutputShouldBeValidCSVWithRows)

	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)
	sc.Step(`^a config file "([^"]*)" containing:$`, testCtx.aConfigFileContaining)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should not exist$`, testCtx.theFileShouldNotExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
}
