package usecases

import (
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
)

// Session is the live playback context of one guild.
// All fields are guarded by mu.
type Session struct {
	mu sync.Mutex

	state      *domain.PlayerState
	conn       ports.VoiceConnection
	pipeline   ports.Pipeline
	resourceID uint64

	idleTimer *time.Timer
	idleGen   uint64

	destroyed bool
}

func newSession(guildID snowflake.ID) *Session {
	return &Session{state: domain.NewPlayerState(guildID)}
}

// stopIdleTimer cancels a pending inactivity check.
func (s *Session) stopIdleTimer() {
	s.idleGen++
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

// SessionRegistry maps guild IDs to sessions.
// The registry lock is never held while a session lock is acquired.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[snowflake.ID]*Session
}

// NewSessionRegistry creates a new SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[snowflake.ID]*Session),
	}
}

// Get returns the session for the given guild, or nil if none exists.
func (r *SessionRegistry) Get(guildID snowflake.ID) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sessions[guildID]
}

// GetOrCreate returns the session for the given guild, creating it on miss.
func (r *SessionRegistry) GetOrCreate(guildID snowflake.ID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[guildID]; ok {
		return sess
	}
	sess := newSession(guildID)
	r.sessions[guildID] = sess
	return sess
}

// Remove deletes the entry for guildID if it still refers to sess.
func (r *SessionRegistry) Remove(guildID snowflake.ID, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[guildID] == sess {
		delete(r.sessions, guildID)
	}
}

// All returns a snapshot of all sessions.
func (r *SessionRegistry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		result = append(result, sess)
	}
	return result
}

// Count returns the number of sessions (for testing/monitoring).
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
