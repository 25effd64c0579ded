package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_ReflectsServer(t *testing.T) {
	newAPI(t)

	out, err := execute(t, "status", "1", "--date", day)
	require.NoError(t, err)
	assert.Contains(t, out, "habit 1 on 2024-01-15: not completed")

	_, err = execute(t, "complete", "1", "--date", day)
	require.NoError(t, err)

	out, err = execute(t, "status", "1", "--date", day)
	require.NoError(t, err)
	assert.Contains(t, out, "habit 1 on 2024-01-15: completed")
}

func TestStatus_OfflineFails(t *testing.T) {
	newAPI(t)

	out, err := execute(t, "--offline", "status", "1", "--date", day)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_OFFLINE]")
}

func TestStatus_BadDate(t *testing.T) {
	newAPI(t)

	_, err := execute(t, "status", "1", "--date", "15/01/2024")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestStats(t *testing.T) {
	newAPI(t)
	_, err := execute(t, "complete", "2", "--date", day)
	require.NoError(t, err)

	out, err := execute(t, "stats", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "habit 2: 1 completions")
}

func TestWeekly(t *testing.T) {
	newAPI(t)
	_, err := execute(t, "complete", "1", "--date", "2024-01-16")
	require.NoError(t, err)

	out, err := execute(t, "weekly", "1", "--week-start", "2024-01-15")
	require.NoError(t, err)
	assert.Contains(t, out, "habit 1, week of 2024-01-15")
	assert.Contains(t, out, "[ ] 2024-01-15")
	assert.Contains(t, out, "[x] 2024-01-16")
	assert.Contains(t, out, "[ ] 2024-01-21")
}

func TestWeekly_RequiresWeekStart(t *testing.T) {
	newAPI(t)

	_, err := execute(t, "weekly", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "week-start")
}

func TestTracker_CachedSnapshotServedOffline(t *testing.T) {
	fake := newAPI(t)
	fake.SetTracker(7, json.RawMessage(`{"name":"morning"}`))

	out, err := execute(t, "tracker", "7")
	require.NoError(t, err)
	assert.Contains(t, out, `{"name":"morning"}`)

	out, err = execute(t, "--offline", "tracker", "7")
	require.NoError(t, err)
	assert.Contains(t, out, `{"name":"morning"}`)
}

func TestTracker_OfflineUncachedFails(t *testing.T) {
	newAPI(t)

	_, err := execute(t, "--offline", "tracker", "8")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestTracker_JSON(t *testing.T) {
	fake := newAPI(t)
	fake.SetTracker(7, json.RawMessage(`{"name":"morning"}`))

	out, err := execute(t, "--format", "json", "tracker", "7")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"name":"morning"}}`, out)
}

func TestTracker_RefreshDropsCachedSnapshot(t *testing.T) {
	fake := newAPI(t)
	fake.SetTracker(7, json.RawMessage(`{"name":"morning"}`))

	_, err := execute(t, "tracker", "7")
	require.NoError(t, err)
	fake.SetTracker(7, json.RawMessage(`{"name":"evening"}`))

	out, err := execute(t, "tracker", "7")
	require.NoError(t, err)
	assert.Contains(t, out, `{"name":"morning"}`, "fresh cache is served without refresh")

	out, err = execute(t, "tracker", "7", "--refresh")
	require.NoError(t, err)
	assert.Contains(t, out, `{"name":"evening"}`)

	out, err = execute(t, "--offline", "tracker", "7")
	require.NoError(t, err)
	assert.Contains(t, out, `{"name":"evening"}`)
}

func TestTracker_RefreshOfflineFails(t *testing.T) {
	fake := newAPI(t)
	fake.SetTracker(7, json.RawMessage(`{"name":"morning"}`))
	_, err := execute(t, "tracker", "7")
	require.NoError(t, err)

	_, err = execute(t, "--offline", "tracker", "7", "--refresh")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, err := execute(t, "--offline", "tracker", "7")
	require.NoError(t, err)
	assert.Contains(t, out, `{"name":"morning"}`, "a failed refresh keeps the cached snapshot")
}
