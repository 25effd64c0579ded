package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuedMutation_MarshalToggle(t *testing.T) {
	m := QueuedMutation{
		ID:         "q-1",
		HabitID:    1,
		Payload:    ToggleRequest{Date: "2024-01-15"},
		EnqueuedAt: time.UnixMilli(1705312800000),
	}

	got, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"id":"q-1","type":"toggle","habitId":1,"data":{"date":"2024-01-15"},"timestamp":1705312800000,"retryCount":0}`,
		string(got))
}

func TestQueuedMutation_BulkOmitsHabitID(t *testing.T) {
	m := QueuedMutation{
		ID:      "q-2",
		Payload: BulkRequest{HabitIDs: []int64{1, 2}, Date: "2024-01-15"},
	}

	got, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(got, &raw))
	assert.NotContains(t, raw, "habitId")
	assert.Equal(t, "bulk", raw["type"])
}

func TestQueuedMutation_UnmarshalSelectsPayload(t *testing.T) {
	var m QueuedMutation
	err := json.Unmarshal([]byte(
		`{"id":"q-3","type":"complete","habitId":7,"data":{"date":"2024-02-01","isCompleted":true},"timestamp":1,"retryCount":2}`),
		&m)
	require.NoError(t, err)

	assert.Equal(t, KindComplete, m.Kind())
	assert.Equal(t, int64(7), m.HabitID)
	assert.Equal(t, 2, m.RetryCount)
	assert.Equal(t, CompleteRequest{Date: "2024-02-01", IsCompleted: true}, m.Payload)
}

func TestQueuedMutation_UnmarshalMissingData(t *testing.T) {
	var m QueuedMutation
	err := json.Unmarshal([]byte(`{"id":"q-4","type":"toggle","habitId":1,"timestamp":1}`), &m)
	require.NoError(t, err)
	assert.Equal(t, ToggleRequest{}, m.Payload)
}

func TestQueuedMutation_UnmarshalUnknownKind(t *testing.T) {
	var m QueuedMutation
	err := json.Unmarshal([]byte(`{"id":"q-5","type":"archive","data":{}}`), &m)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownMutationKind)
}

func TestQueuedMutation_MarshalWithoutPayload(t *testing.T) {
	_, err := json.Marshal(QueuedMutation{ID: "q-6"})
	assert.Error(t, err)
}

type recordingVisitor struct {
	seen []MutationKind
}

func (v *recordingVisitor) VisitToggle(ToggleRequest) error {
	v.seen = append(v.seen, KindToggle)
	return nil
}

func (v *recordingVisitor) VisitComplete(CompleteRequest) error {
	v.seen = append(v.seen, KindComplete)
	return nil
}

func (v *recordingVisitor) VisitBulk(BulkRequest) error {
	v.seen = append(v.seen, KindBulk)
	return nil
}

func TestPayload_AcceptDispatchesByKind(t *testing.T) {
	v := &recordingVisitor{}
	payloads := []Payload{BulkRequest{}, ToggleRequest{}, CompleteRequest{}}
	for _, p := range payloads {
		require.NoError(t, p.Accept(v))
	}
	assert.Equal(t, []MutationKind{KindBulk, KindToggle, KindComplete}, v.seen)
}

func TestNormalizeNotes(t *testing.T) {
	// "e" + combining acute accent composes to a single rune under NFC.
	assert.Equal(t, "caf\u00e9", NormalizeNotes("  cafe\u0301 \n"))
	assert.Equal(t, "", NormalizeNotes("   "))
}

func TestValidateDate(t *testing.T) {
	assert.NoError(t, ValidateDate("2024-02-29"))
	assert.ErrorIs(t, ValidateDate("2023-02-29"), ErrInvalidDate)
	assert.ErrorIs(t, ValidateDate("15/01/2024"), ErrInvalidDate)
}

type fixedNow time.Time

func (f fixedNow) Now() time.Time { return time.Time(f) }

func TestToday(t *testing.T) {
	c := fixedNow(time.Date(2024, 1, 15, 23, 59, 0, 0, time.Local))
	assert.Equal(t, "2024-01-15", Today(c))
}
