package inflight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginFinishCycle(t *testing.T) {
	tr := NewTracker()
	seq, err := tr.Begin("task-1")
	require.NoError(t, err)
	assert.False(t, tr.Finish("task-1", seq))
}

func TestSecondMutationOnSameKeyIsRejected(t *testing.T) {
	tr := NewTracker()
	_, err := tr.Begin("task-1")
	require.NoError(t, err)

	_, err = tr.Begin("task-1")
	assert.ErrorIs(t, err, ErrMutationPending)

	// A different key is unaffected.
	_, err = tr.Begin("task-2")
	assert.NoError(t, err)
}

func TestResponseAfterResetIsStale(t *testing.T) {
	tr := NewTracker()
	seq, err := tr.Begin("task-1")
	require.NoError(t, err)

	tr.Reset()

	assert.True(t, tr.Finish("task-1", seq))
}

func TestPreResetResponseCannotCollideWithNewMutation(t *testing.T) {
	tr := NewTracker()
	oldSeq, err := tr.Begin("task-1")
	require.NoError(t, err)

	tr.Reset()

	newSeq, err := tr.Begin("task-1")
	require.NoError(t, err)
	require.NotEqual(t, oldSeq, newSeq)

	// The old response must not clear or overwrite the new mutation.
	assert.True(t, tr.Finish("task-1", oldSeq))
	assert.False(t, tr.Finish("task-1", newSeq))
}

func TestKeyIsReusableAfterFinish(t *testing.T) {
	tr := NewTracker()
	seq, err := tr.Begin("task-1")
	require.NoError(t, err)
	tr.Finish("task-1", seq)

	next, err := tr.Begin("task-1")
	require.NoError(t, err)
	assert.Greater(t, next, seq)
}
