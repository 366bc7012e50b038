package studio

import (
	"context"
	"sync"
	"time"

	"github.com/sakif/code-studio/internal/model"
)

// Manager keeps one coordinator per session key, creating them lazily.
//
// Sessions unused for Options.IdleTimeout are closed by a background
// sweep, and Options.MaxSessions bounds how many live at once. A session
// with an open event stream is never evicted. Closing a session persists
// its preferences, so an evicted browser gets its buffer and theme back
// on its next request.
type Manager struct {
	deps Deps
	opts Options
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*session

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type session struct {
	c        *Coordinator
	lastSeen time.Time
}

func NewManager(deps Deps, opts Options) *Manager {
	m := &Manager{
		deps:     deps,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if opts.IdleTimeout > 0 {
		go m.sweepLoop(max(opts.IdleTimeout/2, time.Second))
	} else {
		close(m.done)
	}
	return m
}

// Get returns the coordinator for key, creating it on first use. user is
// nil for signed-out sessions.
func (m *Manager) Get(ctx context.Context, key string, user *model.User) *Coordinator {
	m.mu.Lock()
	if s, ok := m.sessions[key]; ok {
		s.lastSeen = m.now()
		m.mu.Unlock()
		return s.c
	}
	var evicted *Coordinator
	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		evicted = m.evictOldestLocked()
	}
	c := New(ctx, key, user, m.deps, m.opts)
	m.sessions[key] = &session{c: c, lastSeen: m.now()}
	m.mu.Unlock()

	if evicted != nil {
		evicted.Close()
	}
	return c
}

// Lookup returns the live coordinator for key without creating one.
func (m *Manager) Lookup(key string) (*Coordinator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, false
	}
	s.lastSeen = m.now()
	return s.c, true
}

// Remove closes and forgets the session.
func (m *Manager) Remove(key string) {
	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if ok {
		s.c.Close()
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops the sweep and closes every session.
func (m *Manager) Close() {
	m.once.Do(func() { close(m.stop) })
	<-m.done

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.c.Close()
	}
}

func (m *Manager) sweepLoop(every time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep closes sessions idle for longer than IdleTimeout and returns how
// many it closed.
func (m *Manager) sweep() int {
	cutoff := m.now().Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	var stale []*Coordinator
	for key, s := range m.sessions {
		if s.lastSeen.Before(cutoff) && s.c.idle() {
			stale = append(stale, s.c)
			delete(m.sessions, key)
		}
	}
	m.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	return len(stale)
}

// evictOldestLocked forgets the least recently used session without an
// event stream and returns it for closing, or nil when every session is
// streaming.
func (m *Manager) evictOldestLocked() *Coordinator {
	var oldestKey string
	var oldest *session
	for key, s := range m.sessions {
		if !s.c.idle() {
			continue
		}
		if oldest == nil || s.lastSeen.Before(oldest.lastSeen) {
			oldestKey, oldest = key, s
		}
	}
	if oldest == nil {
		return nil
	}
	delete(m.sessions, oldestKey)
	return oldest.c
}
