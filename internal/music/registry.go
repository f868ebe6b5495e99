package music

import "sync"

// Registry is the exclusive owner of all playback sessions, keyed by guild.
// Callers never hold a session across operations; they re-fetch by guild ID
// so a torn-down session is transparently replaced.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     Deps
	cfg      Config
}

func NewRegistry(deps Deps, cfg Config) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		deps:     deps,
		cfg:      cfg,
	}
}

// GetOrCreate returns the guild's session, creating a fresh one when none
// exists or the stored one is torn down.
func (r *Registry) GetOrCreate(guildID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok && !s.Closed() {
		return s
	}
	s := newSession(guildID, r.deps, r.cfg)
	r.sessions[guildID] = s
	return s
}

// Get returns the guild's live session without creating one. Torn-down
// sessions count as absent.
func (r *Registry) Get(guildID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[guildID]
	if !ok || s.Closed() {
		return nil, false
	}
	return s, true
}

// Replace tears down the guild's session (if any) and stores a fresh one.
// Safe to call for guilds that never had a session.
func (r *Registry) Replace(guildID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.sessions[guildID]; ok {
		old.Leave()
	}
	s := newSession(guildID, r.deps, r.cfg)
	r.sessions[guildID] = s
	return s
}
