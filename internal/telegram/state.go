package telegram

import (
	"sync"
	"time"
)

type userState int

const (
	stateIdle userState = iota
	stateAwaitPhone
	stateAwaitCode
	stateAwaitTwoFactor
)

// flow is the per-user conversation position plus the phone submission the
// current login attempt belongs to.
type flow struct {
	State        userState
	Phone        string
	RecordID     int64
	LastActivity time.Time
}

// flowStore tracks conversation state per user. Entries expire after ttl of
// inactivity, lazily on read and via Sweep.
type flowStore struct {
	mu    sync.Mutex
	flows map[int64]*flow
	ttl   time.Duration
	now   func() time.Time
}

func newFlowStore(ttl time.Duration) *flowStore {
	return &flowStore{
		flows: make(map[int64]*flow),
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// get returns the user's flow, creating an idle one if absent or expired.
func (s *flowStore) get(userID int64) flow {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flows[userID]
	if !ok || s.now().Sub(f.LastActivity) > s.ttl {
		return flow{State: stateIdle}
	}
	return *f
}

func (s *flowStore) set(userID int64, f flow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.LastActivity = s.now()
	s.flows[userID] = &f
}

func (s *flowStore) clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, userID)
}

// sweep drops flows idle past the TTL and returns how many were removed.
func (s *flowStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	dropped := 0
	for userID, f := range s.flows {
		if f.LastActivity.Before(cutoff) {
			delete(s.flows, userID)
			dropped++
		}
	}
	return dropped
}
