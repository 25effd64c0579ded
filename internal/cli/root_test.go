package cli

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/fakeapi"
)

// newAPI serves a fake API with habits 1-3 and points the CLI at it and at
// a fresh storage file through the environment.
func newAPI(t *testing.T) *fakeapi.Server {
	t.Helper()
	fake := fakeapi.New(fakeapi.WithPrefix("/api"))
	fake.AddHabit(1, 2, 3)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	t.Setenv("HABITSYNC_API_BASE_URL", srv.URL+"/api")
	t.Setenv("HABITSYNC_STORAGE_PATH", filepath.Join(t.TempDir(), "habitsync.db"))
	return fake
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "habitsync", cmd.Use)
	assert.Contains(t, cmd.Long, "offline")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"toggle"}, {"complete"}, {"bulk"}, {"status"}, {"stats"}, {"weekly"}, {"tracker"},
		{"queue"}, {"queue", "list"}, {"queue", "retry"}, {"queue", "clear"}, {"queue", "drain"},
		{"test"}, {"dev-server"},
	}

	for _, path := range commands {
		t.Run(filepath.Join(path...), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	offlineFlag := cmd.PersistentFlags().Lookup("offline")
	require.NotNil(t, offlineFlag)
	assert.Equal(t, "false", offlineFlag.DefValue)
}

func TestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	toggleCmd, _, err := cmd.Find([]string{"toggle"})
	require.NoError(t, err)
	for _, name := range []string{"date", "notes", "current"} {
		assert.NotNil(t, toggleCmd.Flags().Lookup(name), "toggle --%s", name)
	}

	completeCmd, _, err := cmd.Find([]string{"complete"})
	require.NoError(t, err)
	completed := completeCmd.Flags().Lookup("completed")
	require.NotNil(t, completed)
	assert.Equal(t, "true", completed.DefValue)

	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)
	assert.NotNil(t, testCmd.Flags().Lookup("update"))
	assert.NotNil(t, testCmd.Flags().Lookup("filter"))

	devCmd, _, err := cmd.Find([]string{"dev-server"})
	require.NoError(t, err)
	addr := devCmd.Flags().Lookup("addr")
	require.NotNil(t, addr)
	assert.Equal(t, "localhost:8080", addr.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "queue", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestBadConfigFile(t *testing.T) {
	newAPI(t)
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "queue", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}
