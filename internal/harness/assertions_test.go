package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Index: 2, Type: AssertQueueSize, Expected: "queue size = 0", Actual: "1"}
	assert.Equal(t, "assertions[2] failed: queue_size\n  Expected: queue size = 0\n  Actual: 1", err.Error())
}

func TestRun_FailedAssertionsReported(t *testing.T) {
	s := &Scenario{
		Name:        "failing",
		Description: "assertions that do not hold",
		Online:      false,
		Steps:       []Step{{Op: OpToggle, Habit: 1}},
		Assertions: []Assertion{
			{Type: AssertQueueSize, Count: intPtr(1)},
			{Type: AssertQueueSize, Count: intPtr(5)},
			{Type: AssertProvisional, Habit: 1, Date: DefaultToday, Expect: boolPtr(false)},
			{Type: AssertWriteCalls, Count: intPtr(0)},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "assertions[1] failed: queue_size")
	assert.Contains(t, result.Errors[0], "Actual: 1")
	assert.Contains(t, result.Errors[1], "assertions[2] failed: provisional")
}

func TestRun_CacheMissExpectFalse(t *testing.T) {
	s := &Scenario{
		Name:        "cached",
		Description: "a cached read stays cached without writes",
		Online:      true,
		Steps:       []Step{{Op: OpReadStatus, Habit: 2}},
		Assertions: []Assertion{
			{Type: AssertCacheMiss, Habit: 2, Date: DefaultToday, Expect: boolPtr(false)},
			{Type: AssertCacheMiss, Habit: 3, Date: DefaultToday},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_FailedCount(t *testing.T) {
	s := &Scenario{
		Name:        "retrying",
		Description: "a failed replay stays queued with one retry",
		Online:      false,
		Steps: []Step{
			{Op: OpComplete, Habit: 1, Completed: true},
			{Op: OpFailWrites, Count: 1},
			{Op: OpSetOnline, Online: true},
		},
		Assertions: []Assertion{
			{Type: AssertQueueSize, Count: intPtr(1)},
			{Type: AssertFailedCount, Count: intPtr(1)},
			{Type: AssertServerState, Habit: 1, Date: DefaultToday, Expect: boolPtr(false)},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}
