package presence

import (
	"errors"
	"sync"
)

// Channel is the presence channel a session tracks on.
type Channel interface {
	Track(key string, p Payload) error
	Untrack(key string)
}

type SessionState int

const (
	Disconnected SessionState = iota
	Joining
	Tracking
)

func (s SessionState) String() string {
	switch s {
	case Joining:
		return "joining"
	case Tracking:
		return "tracking"
	default:
		return "disconnected"
	}
}

var errNoChannel = errors.New("presence: session has no channel")

// Session is the explicit handle for one connection's presence membership.
// It moves Disconnected -> Joining -> Tracking and back, and guarantees
// that a switch to a different user fully leaves the old membership
// (untrack) before the new one is announced. A session never holds two
// memberships at once.
type Session struct {
	mu     sync.Mutex
	ch     Channel
	state  SessionState
	key    string
	userID string
}

func NewSession(ch Channel) *Session {
	return &Session{ch: ch}
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Join announces the payload under the given connection key. Joining while
// already tracking re-announces in place for the same user, and leaves
// first for a different user or key.
func (s *Session) Join(key string, p Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch == nil {
		return errNoChannel
	}

	if s.state != Disconnected && (s.userID != p.UserID || s.key != key) {
		s.leaveLocked()
	}

	s.state = Joining
	if err := s.ch.Track(key, p); err != nil {
		s.state = Disconnected
		s.key = ""
		s.userID = ""
		return err
	}
	s.state = Tracking
	s.key = key
	s.userID = p.UserID
	return nil
}

// Leave withdraws the membership. Leaving a disconnected session is a
// no-op, so it is safe to defer unconditionally.
func (s *Session) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaveLocked()
}

func (s *Session) leaveLocked() {
	if s.state == Disconnected {
		return
	}
	s.ch.Untrack(s.key)
	s.state = Disconnected
	s.key = ""
	s.userID = ""
}
