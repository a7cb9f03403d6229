package session

import (
	"context"
	"sync"
	"time"

	"github.com/salmanfarse/folio/internal/log"
)

const (
	// DefaultMaxHistory is the sliding-window cap on turns per session.
	DefaultMaxHistory = 12

	// DefaultTTL is how long an idle session survives before the sweep
	// removes it.
	DefaultTTL = 30 * time.Minute

	// sweepInterval bounds how often the inline sweep runs.
	sweepInterval = 5 * time.Minute
)

// memorySession is one in-process session record.
type memorySession struct {
	turns        []Turn
	activeEntity string
	lastAccessed time.Time
}

// MemoryStore is an in-process Store. It backs tests, single-node
// deployments without Postgres, and the fallback side of [Resilient].
//
// Safe for concurrent use. Idle sessions are swept inline during calls
// rather than by a background goroutine, so an idle process holds no
// timers.
type MemoryStore struct {
	mu         sync.Mutex
	sessions   map[string]*memorySession
	maxHistory int
	ttl        time.Duration
	lastSweep  time.Time
	logger     log.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMaxHistory overrides the per-session turn cap.
func WithMaxHistory(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxHistory = n
		}
	}
}

// WithTTL overrides the idle-session lifetime.
func WithTTL(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithClock replaces the time source. Tests use this to drive the TTL
// sweep and window behavior deterministically.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an in-process session store.
func NewMemoryStore(logger log.Logger, opts ...MemoryOption) *MemoryStore {
	if logger == nil {
		logger = log.NewNop()
	}
	s := &MemoryStore{
		sessions:   make(map[string]*memorySession),
		maxHistory: DefaultMaxHistory,
		ttl:        DefaultTTL,
		logger:     logger.With("component", "session_memory"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastSweep = s.now()
	return s
}

// History implements Store. Reading refreshes the session's idle clock.
func (s *MemoryStore) History(_ context.Context, conversationID string) ([]Turn, error) {
	if conversationID == "" {
		return nil, ErrEmptyConversationID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	sess, ok := s.sessions[conversationID]
	if !ok {
		return []Turn{}, nil
	}
	sess.lastAccessed = s.now()

	out := make([]Turn, len(sess.turns))
	copy(out, sess.turns)
	return out, nil
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, conversationID string, turn Turn) error {
	if conversationID == "" {
		return ErrEmptyConversationID
	}
	if turn.Role == "" {
		return ErrInvalidTurn
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	sess := s.getOrCreateLocked(conversationID)
	turn.Content = Truncate(turn.Content)
	sess.turns = append(sess.turns, turn)

	// Sliding window, oldest evicted first.
	if len(sess.turns) > s.maxHistory {
		evicted := len(sess.turns) - s.maxHistory
		sess.turns = append(sess.turns[:0:0], sess.turns[evicted:]...)
		s.logger.Debug("pruned session history",
			"conversation_id", conversationID,
			"evicted", evicted,
		)
	}
	sess.lastAccessed = s.now()
	return nil
}

// ActiveEntity implements Store.
func (s *MemoryStore) ActiveEntity(_ context.Context, conversationID string) (string, error) {
	if conversationID == "" {
		return "", ErrEmptyConversationID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[conversationID]
	if !ok {
		return "", nil
	}
	return sess.activeEntity, nil
}

// SetActiveEntity implements Store.
func (s *MemoryStore) SetActiveEntity(_ context.Context, conversationID, key string) error {
	if conversationID == "" {
		return ErrEmptyConversationID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(conversationID)
	sess.activeEntity = key
	sess.lastAccessed = s.now()
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, conversationID string) error {
	if conversationID == "" {
		return ErrEmptyConversationID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, conversationID)
	return nil
}

// Len reports the number of live sessions. Used by tests and the
// health endpoint.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemoryStore) getOrCreateLocked(conversationID string) *memorySession {
	sess, ok := s.sessions[conversationID]
	if !ok {
		sess = &memorySession{lastAccessed: s.now()}
		s.sessions[conversationID] = sess
	}
	return sess
}

// sweepLocked removes idle sessions. Runs at most once per
// sweepInterval; callers hold s.mu.
func (s *MemoryStore) sweepLocked() {
	now := s.now()
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now

	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastAccessed) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("swept idle sessions", "removed", removed, "remaining", len(s.sessions))
	}
}
