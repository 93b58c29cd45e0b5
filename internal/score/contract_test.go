package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreMidEditPoisonsSession(t *testing.T) {
	sched, veh, _, _ := twoStops(t)
	sess := NewSession(Config{})
	require.NoError(t, sess.Reset(sched))

	_, err := sess.BeforeLinkChange(veh)
	require.NoError(t, err)
	_, err = sess.Score()
	require.ErrorIs(t, err, ErrEditPending)

	_, err = sess.Score()
	require.ErrorIs(t, err, ErrBroken)
	require.ErrorIs(t, err, ErrEditPending, "broken error wraps the original fault")
	require.ErrorIs(t, sess.Err(), ErrEditPending)

	// Reset recovers.
	require.NoError(t, sess.Reset(sched))
	got, err := sess.Score()
	require.NoError(t, err)
	assert.Equal(t, Score{Soft: -86}, got)
}

func TestAfterWithoutBefore(t *testing.T) {
	sched, veh, _, _ := twoStops(t)
	sess := NewSession(Config{})
	require.NoError(t, sess.Reset(sched))

	err := sess.AfterLinkChange(&LinkEdit{s: sess, visit: veh})
	require.ErrorIs(t, err, ErrNoEditPending)
	require.ErrorIs(t, sess.Err(), ErrNoEditPending)
}

func TestDoubleBeforeIsRejected(t *testing.T) {
	sched, veh, a, _ := twoStops(t)
	sess := NewSession(Config{})
	require.NoError(t, sess.Reset(sched))

	_, err := sess.BeforeLinkChange(veh)
	require.NoError(t, err)
	_, err = sess.BeforeLinkChange(a)
	require.ErrorIs(t, err, ErrEditPending)
}

func TestStaleEditToken(t *testing.T) {
	sched, veh, a, _ := twoStops(t)
	sess := NewSession(Config{})
	require.NoError(t, sess.Reset(sched))

	first, err := sess.BeforeLinkChange(a)
	require.NoError(t, err)
	require.NoError(t, first.AfterLinkChange())

	_, err = sess.BeforeLinkChange(veh)
	require.NoError(t, err)
	require.ErrorIs(t, first.AfterLinkChange(), ErrStaleEdit)
}

func TestUnbracketedMutationDetected(t *testing.T) {
	t.Run("before score", func(t *testing.T) {
		sched, _, a, _ := twoStops(t)
		sess := NewSession(Config{})
		require.NoError(t, sess.Reset(sched))
		require.NoError(t, sched.SetSuccessor(a, None))
		_, err := sess.Score()
		require.ErrorIs(t, err, ErrUnbracketedMutation)
	})
	t.Run("wrong visit inside edit", func(t *testing.T) {
		sched, veh, a, _ := twoStops(t)
		sess := NewSession(Config{})
		require.NoError(t, sess.Reset(sched))
		edit, err := sess.BeforeLinkChange(veh)
		require.NoError(t, err)
		require.NoError(t, sched.SetSuccessor(a, None))
		require.ErrorIs(t, edit.AfterLinkChange(), ErrUnbracketedMutation)
	})
	t.Run("two mutations inside edit", func(t *testing.T) {
		sched, _, a, b := twoStops(t)
		sess := NewSession(Config{})
		require.NoError(t, sess.Reset(sched))
		edit, err := sess.BeforeLinkChange(a)
		require.NoError(t, err)
		require.NoError(t, sched.SetSuccessor(a, None))
		require.NoError(t, sched.SetSuccessor(a, b))
		require.ErrorIs(t, edit.AfterLinkChange(), ErrUnbracketedMutation)
	})
}

func TestCallsBeforeReset(t *testing.T) {
	sess := NewSession(Config{})
	_, err := sess.Score()
	require.ErrorIs(t, err, ErrNotReset)
	_, err = sess.BeforeLinkChange(0)
	require.ErrorIs(t, err, ErrNotReset)
	require.ErrorIs(t, sess.Reset(nil), ErrNotReset)
}

func TestRejectedChangeLinkKeepsScore(t *testing.T) {
	sched, veh, _, b := twoStops(t)
	sess := NewSession(Config{})
	require.NoError(t, sess.Reset(sched))

	// b already has a predecessor.
	err := sess.ChangeLink(veh, b)
	require.ErrorIs(t, err, ErrAttached)
	require.NoError(t, sess.Err())

	got, err := sess.Score()
	require.NoError(t, err)
	assert.Equal(t, Score{Soft: -86}, got)
}

func TestEmptyBracketIsHarmless(t *testing.T) {
	sched, veh, _, _ := twoStops(t)
	sess := NewSession(Config{})
	require.NoError(t, sess.Reset(sched))

	edit, err := sess.BeforeLinkChange(veh)
	require.NoError(t, err)
	assert.Equal(t, veh, edit.Visit())
	require.NoError(t, edit.AfterLinkChange())

	got, err := sess.Score()
	require.NoError(t, err)
	assert.Equal(t, Score{Soft: -86}, got)
	assert.Equal(t, int64(1), sess.Stats().Edits)
}
