package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/carsim/game/engine"
	"github.com/wricardo/mcp-training/carsim/game/service"
	"github.com/wricardo/mcp-training/carsim/logging"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// maxIDAttempts bounds the retries when a generated ID is already taken
const maxIDAttempts = 16

var log = logging.New("session")

// Manager keeps the running simulations keyed by lower-cased session ID.
// With persistence configured, every created session is written through and
// sessions missing from memory are restored on first access.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*service.Session
	persistence SessionPersistence
}

func NewManager() *Manager {
	return NewManagerWithPersistence(nil)
}

func NewManagerWithPersistence(persistence SessionPersistence) *Manager {
	return &Manager{
		sessions:    make(map[string]*service.Session),
		persistence: persistence,
	}
}

func key(id string) string {
	return strings.ToLower(id)
}

// newSessionID returns 4 random hex characters
func newSessionID() string {
	var b [2]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func (m *Manager) lookup(id string) (*service.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key(id)]
	return s, ok
}

// Create builds an engine for config and registers it under id. An empty id
// picks a random unused one.
func (m *Manager) Create(id, configID string, config *engine.ScenarioConfig) (*service.Session, error) {
	if strings.ContainsAny(id, `/\. `) {
		return nil, ErrInvalidSessionID
	}

	sim, err := engine.NewEngine(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	m.mu.Lock()
	if id == "" {
		id = newSessionID()
		for attempt := 1; attempt < maxIDAttempts && m.sessions[key(id)] != nil; attempt++ {
			id = newSessionID()
		}
	}
	if _, taken := m.sessions[key(id)]; taken {
		m.mu.Unlock()
		return nil, ErrSessionAlreadyExists
	}

	now := time.Now()
	created := &service.Session{
		ID:             id,
		ConfigID:       configID,
		Engine:         sim,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[key(id)] = created
	m.mu.Unlock()

	if m.persistence != nil {
		if err := m.persistence.Save(created); err != nil {
			// the session stays usable in memory
			log.Warn("failed to persist session", "id", id, "err", err)
		}
	}
	return created, nil
}

// Get returns the session for id, ignoring case, restoring it from
// persistence when it is not in memory.
func (m *Manager) Get(id string) (*service.Session, error) {
	if s, ok := m.lookup(id); ok {
		return s, nil
	}
	if m.persistence == nil || !m.persistence.Exists(id) {
		return nil, ErrSessionNotFound
	}

	restored, err := m.persistence.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key(id)]; ok {
		return s, nil
	}
	m.sessions[key(id)] = restored
	return restored, nil
}

func (m *Manager) GetOrCreate(id, configID string, config *engine.ScenarioConfig) (*service.Session, error) {
	s, err := m.Get(id)
	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, configID, config)
	}
	return s, err
}

// List returns the in-memory sessions in no particular order
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*service.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	return all
}

// Delete removes a session from memory and its file, if any
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, inMemory := m.sessions[key(id)]
	delete(m.sessions, key(id))

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}
	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory forgets a session but leaves its file alone
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[key(id)]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, key(id))
	return nil
}

func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[key(id)]
	if !ok {
		return ErrSessionNotFound
	}
	s.LastAccessedAt = time.Now()
	return nil
}

// Save writes one session through to persistence; a no-op without persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}
	s, ok := m.lookup(id)
	if !ok {
		return ErrSessionNotFound
	}
	return m.persistence.Save(s)
}

// CleanupExpiredSessions drops sessions idle for longer than maxAge from
// memory and returns how many were dropped. Their files are kept.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for k, s := range m.sessions {
		if s.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, k)
			removed++
		}
	}
	return removed
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LoadPersistedSessions restores every stored session not already in memory.
// Unreadable files are logged and skipped.
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if _, ok := m.sessions[key(id)]; ok {
			continue
		}
		restored, err := m.persistence.Load(id)
		if err != nil {
			log.Warn("failed to load persisted session", "id", id, "err", err)
			continue
		}
		m.sessions[key(id)] = restored
		loaded++
	}

	if loaded > 0 {
		log.Info("loaded persisted sessions", "count", loaded)
	}
	return nil
}

// SaveAllSessions writes every in-memory session and joins the failures
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	var errs []error
	for _, s := range m.List() {
		if err := m.persistence.Save(s); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
		}
	}
	return errors.Join(errs...)
}

// PruneDeleted drops in-memory sessions whose persisted file was removed.
// It returns the number of sessions pruned.
func (m *Manager) PruneDeleted() int {
	if m.persistence == nil {
		return 0
	}

	pruned := 0
	for _, s := range m.List() {
		if m.persistence.Exists(s.ID) {
			continue
		}
		if err := m.DeleteFromMemory(s.ID); err == nil {
			pruned++
			log.Info("pruned session from memory, file deleted", "id", s.ID)
		}
	}
	return pruned
}
