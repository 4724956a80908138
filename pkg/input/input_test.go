package input

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	messages [][]byte
	err      error
}

func (s *recordingSender) SendReliable(data []byte) error {
	s.messages = append(s.messages, data)
	return s.err
}

func fixedClock(ts float64) Clock {
	return func() float64 { return ts }
}

func TestRecordInputAssignsSequentialIDs(t *testing.T) {
	sender := &recordingSender{}
	acc := NewAccumulator(8, fixedClock(1.5), sender)

	payloads := [][]byte{nil, {1, 2}, {}, {9}}
	for i, p := range payloads {
		in, err := acc.RecordInput("fire", p)
		require.NoError(t, err)
		require.Equal(t, uint32(i+1), in.ID)
		require.Equal(t, 1.5, in.Timestamp)
	}
	require.Equal(t, uint32(4), acc.LastID())
	require.Len(t, sender.messages, 4)

	decoded, err := Unmarshal(sender.messages[1])
	require.NoError(t, err)
	require.Equal(t, ClientInput{ID: 2, Name: "fire", Parameters: []byte{1, 2}, Timestamp: 1.5}, decoded)
}

func TestRecordInputEvictsOldest(t *testing.T) {
	acc := NewAccumulator(3, fixedClock(0), nil)
	for i := 0; i < 10; i++ {
		_, err := acc.RecordInput("jump", nil)
		require.NoError(t, err)
		require.LessOrEqual(t, acc.Len(), 3)
	}

	inputs := acc.Inputs()
	require.Len(t, inputs, 3)
	require.Equal(t, []uint32{8, 9, 10}, []uint32{inputs[0].ID, inputs[1].ID, inputs[2].ID})
}

func TestHistoryLimitIsClamped(t *testing.T) {
	require.Equal(t, MaxHistoryLimit, NewAccumulator(1000, fixedClock(0), nil).HistoryLimit())
	require.Equal(t, 1, NewAccumulator(0, fixedClock(0), nil).HistoryLimit())
}

func TestSendFailureKeepsInput(t *testing.T) {
	boom := errors.New("boom")
	acc := NewAccumulator(4, fixedClock(2), &recordingSender{err: boom})

	in, err := acc.RecordInput("move", []byte{1})
	require.ErrorIs(t, err, boom)
	require.Equal(t, uint32(1), in.ID)
	require.Equal(t, 1, acc.Len())
}

func TestSenderFunc(t *testing.T) {
	var got []byte
	acc := NewAccumulator(4, fixedClock(0), SenderFunc(func(data []byte) error {
		got = data
		return nil
	}))
	_, err := acc.RecordInput("x", nil)
	require.NoError(t, err)
	require.NotEmpty(t, got)
}

func TestInputsReturnsCopy(t *testing.T) {
	acc := NewAccumulator(4, fixedClock(0), nil)
	acc.RecordInput("a", nil)

	inputs := acc.Inputs()
	inputs[0].Name = "changed"
	require.Equal(t, "a", acc.Inputs()[0].Name)
}
