package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausocean/spaserve/server"
)

func newTestServer(t *testing.T, port int) *server.Server {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>Home</html>"), 0o644))

	s, err := server.New(server.Config{Host: "127.0.0.1", Port: port, Root: root}, (*logging.TestLogger)(t))
	require.NoError(t, err)
	return s
}

// TestRun checks the server answers its health check while running and
// that cancelling the context shuts it down cleanly.
func TestRun(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	s := newTestServer(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, s, (*logging.TestLogger)(t)) }()

	require.Eventually(t, func() bool {
		addr := s.Addr()
		if addr == nil {
			return false
		}
		return checkHealth(healthURL(addr.(*net.TCPAddr).Port, "/health"), time.Second) == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout):
		t.Fatal("run did not return after cancel")
	}
}

// TestRunBindFailure checks that a bind failure does not end run until the
// context is done.
func TestRunBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := newTestServer(t, ln.Addr().(*net.TCPAddr).Port)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, s, (*logging.TestLogger)(t)) }()

	select {
	case <-done:
		t.Fatal("run returned before cancel")
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	assert.NoError(t, <-done)
}

// TestRunAbsentRoot checks that a server without a static root still runs
// and passes its health check.
func TestRunAbsentRoot(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	cfg := server.Config{Host: "127.0.0.1", Root: filepath.Join(t.TempDir(), "public")}
	s, err := server.New(cfg, (*logging.TestLogger)(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, s, (*logging.TestLogger)(t)) }()

	require.Eventually(t, func() bool {
		addr := s.Addr()
		if addr == nil {
			return false
		}
		return checkHealth(healthURL(addr.(*net.TCPAddr).Port, "/health"), time.Second) == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestNewLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "spaserve.log")
	log := newLogger(true, logFile)
	log.Info("hello", "key", "value")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
