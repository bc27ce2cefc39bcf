package presence_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communitychat/internal/presence"
)

// fakeChannel records track/untrack calls in order.
type fakeChannel struct {
	calls    []string
	trackErr error
}

func (f *fakeChannel) Track(key string, p presence.Payload) error {
	if f.trackErr != nil {
		return f.trackErr
	}
	f.calls = append(f.calls, "track:"+key+":"+p.UserID)
	return nil
}

func (f *fakeChannel) Untrack(key string) {
	f.calls = append(f.calls, "untrack:"+key)
}

func TestSessionJoinLeave(t *testing.T) {
	ch := &fakeChannel{}
	sess := presence.NewSession(ch)

	assert.Equal(t, presence.Disconnected, sess.State())

	err := sess.Join("conn-1", presence.Payload{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, presence.Tracking, sess.State())

	sess.Leave()
	assert.Equal(t, presence.Disconnected, sess.State())
	assert.Equal(t, []string{"track:conn-1:u1", "untrack:conn-1"}, ch.calls)
}

func TestSessionSwitchUserLeavesFirst(t *testing.T) {
	ch := &fakeChannel{}
	sess := presence.NewSession(ch)

	require.NoError(t, sess.Join("conn-1", presence.Payload{UserID: "u1"}))
	require.NoError(t, sess.Join("conn-1", presence.Payload{UserID: "u2"}))

	// The old membership is withdrawn before the new one is announced
	assert.Equal(t, []string{
		"track:conn-1:u1",
		"untrack:conn-1",
		"track:conn-1:u2",
	}, ch.calls)
	assert.Equal(t, presence.Tracking, sess.State())
}

func TestSessionRejoinSameUserNoLeave(t *testing.T) {
	ch := &fakeChannel{}
	sess := presence.NewSession(ch)

	require.NoError(t, sess.Join("conn-1", presence.Payload{UserID: "u1", Name: "a"}))
	require.NoError(t, sess.Join("conn-1", presence.Payload{UserID: "u1", Name: "b"}))

	// Re-announce in place, no untrack in between
	assert.Equal(t, []string{"track:conn-1:u1", "track:conn-1:u1"}, ch.calls)
}

func TestSessionTrackFailure(t *testing.T) {
	ch := &fakeChannel{trackErr: errors.New("boom")}
	sess := presence.NewSession(ch)

	err := sess.Join("conn-1", presence.Payload{UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, presence.Disconnected, sess.State())

	// Leave after a failed join is a no-op
	ch.trackErr = nil
	sess.Leave()
	assert.Empty(t, ch.calls)
}

func TestSessionLeaveIdempotent(t *testing.T) {
	ch := &fakeChannel{}
	sess := presence.NewSession(ch)

	require.NoError(t, sess.Join("conn-1", presence.Payload{UserID: "u1"}))
	sess.Leave()
	sess.Leave()
	sess.Leave()

	assert.Equal(t, []string{"track:conn-1:u1", "untrack:conn-1"}, ch.calls)
}

func TestSessionWithoutChannel(t *testing.T) {
	sess := presence.NewSession(nil)
	err := sess.Join("conn-1", presence.Payload{UserID: "u1"})
	assert.Error(t, err)
	assert.Equal(t, presence.Disconnected, sess.State())
}

func TestSessionStateString(t *testing.T) {
	assert.Equal(t, "disconnected", presence.Disconnected.String())
	assert.Equal(t, "joining", presence.Joining.String())
	assert.Equal(t, "tracking", presence.Tracking.String())
}
