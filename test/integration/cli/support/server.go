package support

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// freePort asks the kernel for an unused TCP port.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, errors.New("listener has no TCP address")
	}
	return addr.Port, nil
}

// StartServer launches "anamorph serve" with the given extra arguments on a
// free port and waits until /health answers.
func (testCtx *TestContext) StartServer(args string) error {
	if testCtx.ServerCmd != nil {
		return errors.New("server already running")
	}
	port, err := freePort()
	if err != nil {
		return fmt.Errorf("failed to find a free port: %w", err)
	}
	testCtx.ServerPort = port

	argv := []string{"serve", "--host", testCtx.ServerHost, "--port", fmt.Sprint(port)}
	argv = append(argv, strings.Fields(testCtx.substituteCommandVariables(args))...)

	cmd := exec.CommandContext(context.Background(), testCtx.Binary, argv...) //nolint:gosec // G204: test binary
	cmd.Dir = testCtx.TempDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	testCtx.ServerCmd = cmd
	testCtx.ServerDone = make(chan error, 1)
	go func() { testCtx.ServerDone <- cmd.Wait() }()

	return testCtx.waitForServerReady()
}

func (testCtx *TestContext) waitForServerReady() error {
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case err := <-testCtx.ServerDone:
			testCtx.ServerCmd = nil
			return fmt.Errorf("server exited before becoming ready: %w", err)
		default:
		}
		if testCtx.isServerHealthy() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return errors.New("server did not become ready within 15s")
}

func (testCtx *TestContext) isServerHealthy() bool {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(testCtx.GetServerURL() + "/health")
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// GetServerURL returns the base URL of the running server.
func (testCtx *TestContext) GetServerURL() string {
	return fmt.Sprintf("http://%s:%d", testCtx.ServerHost, testCtx.ServerPort)
}

// SendSignalToServer delivers sig to the server process.
func (testCtx *TestContext) SendSignalToServer(sig os.Signal) error {
	if testCtx.ServerCmd == nil || testCtx.ServerCmd.Process == nil {
		return errors.New("no server process running")
	}
	return testCtx.ServerCmd.Process.Signal(sig)
}

// WaitForServerExit waits for the server process to exit.
func (testCtx *TestContext) WaitForServerExit(timeout time.Duration) error {
	if testCtx.ServerCmd == nil {
		return nil
	}
	select {
	case err := <-testCtx.ServerDone:
		testCtx.ServerCmd = nil
		return err
	case <-time.After(timeout):
		return fmt.Errorf("server did not exit within %v", timeout)
	}
}

// StopServer terminates the server if it is still running.
func (testCtx *TestContext) StopServer() error {
	if testCtx.ServerCmd == nil {
		return nil
	}
	_ = testCtx.SendSignalToServer(syscall.SIGTERM)
	if err := testCtx.WaitForServerExit(10 * time.Second); err != nil {
		if testCtx.ServerCmd != nil {
			_ = testCtx.ServerCmd.Process.Kill()
			testCtx.ServerCmd = nil
		}
		return err
	}
	return nil
}
