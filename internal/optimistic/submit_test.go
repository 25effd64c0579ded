package optimistic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/api"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/completion"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/testutil"
)

func TestSubmitComplete_Online(t *testing.T) {
	s := newStack(t, true, DefaultSettleDelay)

	res, err := s.ctrl.SubmitComplete(context.Background(), 1, model.CompleteRequest{Date: day, IsCompleted: true})
	require.NoError(t, err)

	assert.True(t, res.Record.IsCompleted)
	assert.True(t, s.backend.Completed(1, day))
	assert.False(t, s.reads.IsProvisional(1, day), "explicit writes record no edit")
}

func TestSubmitComplete_OfflineDefers(t *testing.T) {
	s := newStack(t, false, DefaultSettleDelay)

	res, err := s.ctrl.SubmitComplete(context.Background(), 1, model.CompleteRequest{IsCompleted: true})
	require.NoError(t, err)
	require.NotNil(t, res.Queued)

	assert.Equal(t, model.CompleteRequest{Date: day, IsCompleted: true}, res.Queued.Payload)
	assert.Equal(t, 0, s.backend.CallCount(testutil.OpComplete))
}

func TestSubmitComplete_FailureWhileOnlineIsReturned(t *testing.T) {
	s := newStack(t, true, DefaultSettleDelay)
	apiErr := errors.New("API Error")
	s.backend.FailWrites(1, apiErr)

	res, err := s.ctrl.SubmitComplete(context.Background(), 1, model.CompleteRequest{Date: day, IsCompleted: true})

	require.ErrorIs(t, err, apiErr)
	assert.Nil(t, res.Queued)
	assert.Equal(t, 0, s.queue.Len())
}

func TestSubmitComplete_ConflictAfterGoingOfflineIsNotQueued(t *testing.T) {
	s := newStack(t, true, DefaultSettleDelay)
	s.backend.FailWrites(1, &api.APIError{StatusCode: 409, Message: "conflict"})
	s.backend.OnCall(func(testutil.Call) { s.monitor.SetOnline(false) })

	res, err := s.ctrl.SubmitComplete(context.Background(), 1, model.CompleteRequest{Date: day, IsCompleted: true})

	require.ErrorIs(t, err, completion.ErrRejected)
	assert.Nil(t, res.Queued)
	assert.Equal(t, 0, s.queue.Len())
}

func TestSubmitBulk_ConflictAfterGoingOfflineIsNotQueued(t *testing.T) {
	s := newStack(t, true, DefaultSettleDelay)
	s.backend.FailWrites(1, &api.APIError{StatusCode: 409, Message: "conflict"})
	s.backend.OnCall(func(testutil.Call) { s.monitor.SetOnline(false) })

	res, err := s.ctrl.SubmitBulk(context.Background(), model.BulkRequest{HabitIDs: []int64{1, 2}, Date: day})

	require.ErrorIs(t, err, completion.ErrRejected)
	assert.Nil(t, res.Queued)
	assert.Equal(t, 0, s.queue.Len())
}

func TestSubmitBulk_PassesResultThrough(t *testing.T) {
	s := newStack(t, true, DefaultSettleDelay)

	res, err := s.ctrl.SubmitBulk(context.Background(), model.BulkRequest{HabitIDs: []int64{1, 2}, Date: day})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Bulk.SuccessCount)
	assert.True(t, s.backend.Completed(2, day))
}

func TestSubmitBulk_OfflineQueuesOneItem(t *testing.T) {
	s := newStack(t, false, DefaultSettleDelay)

	res, err := s.ctrl.SubmitBulk(context.Background(), model.BulkRequest{HabitIDs: []int64{1, 2}, Date: day})
	require.NoError(t, err)
	require.NotNil(t, res.Queued)

	items := s.queue.Items()
	require.Len(t, items, 1)
	assert.Equal(t, model.KindBulk, items[0].Kind())
	assert.Zero(t, items[0].HabitID)
}

func TestSubmitBulk_RejectsBadIDs(t *testing.T) {
	s := newStack(t, true, DefaultSettleDelay)

	_, err := s.ctrl.SubmitBulk(context.Background(), model.BulkRequest{Date: day})
	assert.ErrorIs(t, err, ErrInvalidHabitID)

	_, err = s.ctrl.SubmitBulk(context.Background(), model.BulkRequest{HabitIDs: []int64{1, -2}, Date: day})
	assert.ErrorIs(t, err, ErrInvalidHabitID)
}
