package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Store persists sessions. Implementations must keep the one-active-
// session-per-(user, game) index consistent with the session records.
type Store interface {
	// Get returns a session by id, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	// ActiveID returns the active session id for a (user, game) key,
	// or false when none is open.
	ActiveID(ctx context.Context, userID uuid.UUID, game string) (uuid.UUID, bool, error)
	// Save writes a session. The active-key index entry tracks active
	// sessions only: saving a resolved session clears it.
	Save(ctx context.Context, s *Session) error
	// Delete removes a resolved session and its index entry.
	Delete(ctx context.Context, s *Session) error
}

// Registry wraps a Store with explicit per-key locking: all session
// operations for one (user, game) key serialize, so concurrent
// advance calls can never double-consume a round.
type Registry struct {
	store Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRegistry(store Store) *Registry {
	return &Registry{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

// Store returns the underlying store for use inside a held lock.
func (r *Registry) Store() Store {
	return r.store
}

func key(userID uuid.UUID, game string) string {
	return fmt.Sprintf("%s:%s", userID, game)
}

// WithLock runs fn while holding the (user, game) key lock.
func (r *Registry) WithLock(userID uuid.UUID, game string, fn func() error) error {
	r.mu.Lock()
	k := key(userID, game)
	l, ok := r.locks[k]
	if !ok {
		l = &sync.Mutex{}
		r.locks[k] = l
	}
	r.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn()
}

// MemoryStore keeps sessions in process memory. Active sessions are
// lost on restart; deployments that need recovery use the redis store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	active   map[string]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*Session),
		active:   make(map[string]uuid.UUID),
	}
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) ActiveID(_ context.Context, userID uuid.UUID, game string) (uuid.UUID, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.active[key(userID, game)]
	return id, ok, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	if s.State == StateActive {
		m.active[key(s.UserID, s.Game)] = s.ID
	} else {
		delete(m.active, key(s.UserID, s.Game))
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s.ID)
	delete(m.active, key(s.UserID, s.Game))
	return nil
}
