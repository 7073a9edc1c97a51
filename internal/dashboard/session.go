package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionIdleLimit is how long an untouched session is kept.
const SessionIdleLimit = 24 * time.Hour

// Session is the interactive state of one browser.
type Session struct {
	ID           string
	SelectedUser int64
	HasUser      bool
	Period       Period
	LastSeen     time.Time
}

// Sessions is a process-local session table.
type Sessions struct {
	mu    sync.Mutex
	byID  map[string]*Session
	now   func() time.Time
	newID func() string
}

// NewSessions returns an empty table.
func NewSessions() *Sessions {
	return &Sessions{
		byID:  make(map[string]*Session),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Ensure returns the session for id, creating a fresh one when id is empty or
// unknown. The returned value is a copy.
func (s *Sessions) Ensure(id string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	if sess, ok := s.byID[id]; ok && id != "" {
		sess.LastSeen = now
		return *sess
	}
	sess := &Session{ID: s.newID(), Period: PeriodAll, LastSeen: now}
	s.byID[sess.ID] = sess
	return *sess
}

// Get returns a copy of the session for id.
func (s *Sessions) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Update applies fn to the session for id, creating it when needed, and
// returns the updated copy.
func (s *Sessions) Update(id string, fn func(*Session)) Session {
	current := s.Ensure(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[current.ID]
	if !ok {
		// Pruned between Ensure and Lock.
		sess = &current
		s.byID[sess.ID] = sess
	}
	fn(sess)
	sess.LastSeen = s.now()
	return *sess
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *Sessions) pruneLocked(now time.Time) {
	for id, sess := range s.byID {
		if now.Sub(sess.LastSeen) > SessionIdleLimit {
			delete(s.byID, id)
		}
	}
}
