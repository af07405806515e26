// Package session tracks per-session approved command categories
// with a time-to-live. Sessions are created lazily on first use and
// reset to an empty approval set on expiry.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/cmdgate/cmdgate/internal/policy"
)

// AnonymousID is the reserved session identifier shared by all
// callers that omit a session id when require_session_id is off.
// Modeling it as a well-known id keeps the state machine uniform; it
// is a compatibility mode, not a security boundary.
const AnonymousID = "anonymous"

// Session is the state for one session identifier.
type Session struct {
	ID         string
	CreatedAt  time.Time
	LastActive time.Time
	approved   map[policy.Category]bool
}

// Approved returns the categories approved for this session.
func (s *Session) Approved() []policy.Category {
	var cats []policy.Category
	for _, cat := range []policy.Category{policy.CategoryWrite, policy.CategorySystem} {
		if s.approved[cat] {
			cats = append(cats, cat)
		}
	}
	return cats
}

// Manager owns all sessions. Every operation on a session id is
// atomic under the manager lock, so concurrent approve/touch calls
// never lose updates. All operations are sub-millisecond and never
// block on I/O.
type Manager struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewManager creates a session manager with the given time-to-live.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// SetTTL replaces the time-to-live, e.g. after a configuration
// reload. It applies to subsequent expiry checks.
func (m *Manager) SetTTL(ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttl = ttl
}

// TTL returns the current time-to-live.
func (m *Manager) TTL() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttl
}

// get returns the live session for id, replacing an expired one with
// a fresh empty session. Callers must hold m.mu.
func (m *Manager) get(id string) *Session {
	now := m.now()
	s, ok := m.sessions[id]
	if ok && m.ttl > 0 && now.Sub(s.LastActive) > m.ttl {
		// Expired is terminal: the approval set is reset wholesale,
		// never partially invalidated.
		ok = false
	}
	if !ok {
		s = &Session{
			ID:        id,
			CreatedAt: now,
			approved:  make(map[policy.Category]bool),
		}
		m.sessions[id] = s
	}
	s.LastActive = now
	return s
}

// Touch updates the session's last-activity time, creating it (or
// replacing an expired one) as needed.
func (m *Manager) Touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(id)
}

// Approve adds a category to the session's approved set. Only write
// and system are approvable; the call is idempotent.
func (m *Manager) Approve(id string, cat policy.Category) error {
	if !cat.Approvable() {
		return fmt.Errorf("category %q cannot be session-approved", cat)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(id).approved[cat] = true
	return nil
}

// IsApproved reports whether the category is approved for the
// session. Read is always approved; blocked and unrecognized never
// are, regardless of session state. The lookup counts as activity.
func (m *Manager) IsApproved(id string, cat policy.Category) bool {
	switch cat {
	case policy.CategoryRead:
		return true
	case policy.CategoryBlocked, policy.CategoryUnrecognized:
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id).approved[cat]
}

// Sweep drops every session idle longer than the ttl and returns how
// many were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ttl <= 0 {
		return 0
	}
	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.LastActive) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
