package store

import (
	"context"
	"sync"
	"time"
)

type pendingSlots struct {
	Slots     map[string]string
	UpdatedAt time.Time
}

// MemorySessionStore keeps quick-update slot state per session in process
// memory. Entries expire ttl after their last write; a background sweeper
// removes them until Close is called.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]pendingSlots
	ttl      time.Duration
	now      func() time.Time
	janitor  *janitor
}

// NewMemorySessionStore starts a sweeper every sweepEvery when both ttl and
// sweepEvery are positive. A zero ttl disables expiry.
func NewMemorySessionStore(ttl, sweepEvery time.Duration) *MemorySessionStore {
	m := &MemorySessionStore{
		sessions: make(map[string]pendingSlots),
		ttl:      ttl,
		now:      time.Now,
	}
	if ttl > 0 && sweepEvery > 0 {
		m.janitor = startJanitor(sweepEvery, func() { m.Sweep(context.Background()) })
	}
	return m
}

// Get returns a copy of the session's slots if present and not expired.
func (m *MemorySessionStore) Get(_ context.Context, sessionID string) (map[string]string, bool, error) {
	m.mu.RLock()
	p, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if m.expired(p.UpdatedAt) {
		m.mu.Lock()
		if cur, ok := m.sessions[sessionID]; ok && m.expired(cur.UpdatedAt) {
			delete(m.sessions, sessionID)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return copySlots(p.Slots), true, nil
}

// Set stores a copy of slots and refreshes the session's TTL.
func (m *MemorySessionStore) Set(_ context.Context, sessionID string, slots map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = pendingSlots{Slots: copySlots(slots), UpdatedAt: m.now()}
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemorySessionStore) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, p := range m.sessions {
		if m.expired(p.UpdatedAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored sessions, expired or not.
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops the sweeper. It is safe to call more than once.
func (m *MemorySessionStore) Close() error {
	m.janitor.stop()
	return nil
}

func (m *MemorySessionStore) expired(updated time.Time) bool {
	return m.ttl > 0 && m.now().Sub(updated) > m.ttl
}

func copySlots(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// janitor runs fn on a fixed interval until stopped.
type janitor struct {
	once sync.Once
	quit chan struct{}
	done chan struct{}
}

func startJanitor(every time.Duration, fn func()) *janitor {
	j := &janitor{quit: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(j.done)
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				fn()
			case <-j.quit:
				return
			}
		}
	}()
	return j
}

func (j *janitor) stop() {
	if j == nil {
		return
	}
	j.once.Do(func() { close(j.quit) })
	<-j.done
}
