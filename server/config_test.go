package server_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausocean/spaserve/server"
)

func TestPortFromEnv(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "", want: server.DefaultPort},
		{in: "3000", want: 3000},
		{in: "0", want: 0},
		{in: "65535", want: 65535},
		{in: "65536", want: server.DefaultPort},
		{in: "-1", want: server.DefaultPort},
		{in: "http", want: server.DefaultPort},
		{in: " 80", want: server.DefaultPort},
	}

	for _, test := range tests {
		assert.Equal(t, test.want, server.PortFromEnv(test.in), "input %q", test.in)
	}
}

func TestPortFromUnsetEnv(t *testing.T) {
	t.Setenv("PORT", "")
	assert.Equal(t, 8080, server.PortFromEnv(os.Getenv("PORT")))
}

func TestDefaultRoot(t *testing.T) {
	root, err := server.DefaultRoot()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(root))
	assert.Equal(t, server.DefaultRootName, filepath.Base(root))
}

// TestDefaultRootWorkingDir checks the public directory of the working
// directory is used when there is none next to the executable, as is the
// case for test binaries and go run.
func TestDefaultRootWorkingDir(t *testing.T) {
	dir := t.TempDir()
	public := filepath.Join(dir, server.DefaultRootName)
	require.NoError(t, os.Mkdir(public, 0o755))
	t.Chdir(dir)

	root, err := server.DefaultRoot()
	require.NoError(t, err)

	want, err := os.Stat(public)
	require.NoError(t, err)
	got, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, os.SameFile(want, got), "got %s, want %s", root, public)
}
