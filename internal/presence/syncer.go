package presence

import (
	"context"
	"log"
	"sync"
	"time"

	"communitychat/internal/domain"
)

// ProfileSource is the subset of the profile repository the syncer needs.
type ProfileSource interface {
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Profile, error)
}

const fetchTimeout = 5 * time.Second

// Syncer turns raw sync states into merged presence records. A single
// worker goroutine processes one sync at a time, so a merge always
// completes (profile fetch included) before the next one starts. Submit
// coalesces: a snapshot that was never processed is replaced by a newer
// one, so the last sync always wins.
type Syncer struct {
	profiles ProfileSource
	publish  func([]Record)

	mu      sync.Mutex
	pending State
	hasWork bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewSyncer(profiles ProfileSource, publish func([]Record)) *Syncer {
	return &Syncer{
		profiles: profiles,
		publish:  publish,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the worker. It returns immediately.
func (s *Syncer) Start() {
	go s.run()
}

// Stop shuts the worker down after the in-flight merge, if any, completes.
func (s *Syncer) Stop() {
	close(s.stop)
	<-s.done
}

// Submit hands the latest sync state to the worker, replacing any state
// that has not been processed yet.
func (s *Syncer) Submit(state State) {
	s.mu.Lock()
	s.pending = state
	s.hasWork = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Syncer) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if !s.hasWork {
				s.mu.Unlock()
				break
			}
			state := s.pending
			s.pending = nil
			s.hasWork = false
			s.mu.Unlock()

			s.publish(s.mergeOnce(state))
		}
	}
}

// mergeOnce fetches profiles for the state and merges. A failed fetch
// degrades to payload-only records instead of dropping the sync.
func (s *Syncer) mergeOnce(state State) []Record {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	var byID map[string]*domain.Profile
	profiles, err := s.profiles.GetByIDs(ctx, state.UserIDs())
	if err != nil {
		log.Printf("presence: profile fetch failed, merging without profiles: %v", err)
	} else {
		byID = make(map[string]*domain.Profile, len(profiles))
		for _, p := range profiles {
			byID[p.ID] = p
		}
	}
	return Merge(state, byID)
}
