package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	got := Render("demo", []TraceEvent{
		{Seq: 1, Type: EventStep, Text: "drain"},
		{Seq: 2, Type: EventResult, Text: "skipped"},
	})
	assert.Equal(t, "scenario: demo\n001 step drain\n002 result skipped\n", string(got))
}

func TestRender_Empty(t *testing.T) {
	assert.Equal(t, "scenario: empty\n", string(Render("empty", nil)))
}

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), ".yaml")
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(p)
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/retry_ceiling_drops.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	for range 5 {
		again, err := Run(s)
		require.NoError(t, err)
		assert.Equal(t, Render(s.Name, first.Trace), Render(s.Name, again.Trace))
	}
}
