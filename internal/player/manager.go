package player

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/felixgeelhaar/pencil/internal/domain"
	"github.com/google/uuid"
)

// ErrTooManySessions is returned when the manager is at capacity
var ErrTooManySessions = errors.New("too many active sessions")

// Manager keeps player sessions in memory, keyed by player ID
type Manager struct {
	newPlayer   func(Config) (*Player, error)
	maxSessions int
	logger      *slog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Player
	pending  int
}

// NewManager creates a manager. maxSessions <= 0 means unlimited.
func NewManager(maxSessions int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		newPlayer:   New,
		maxSessions: maxSessions,
		logger:      logger,
		sessions:    make(map[uuid.UUID]*Player),
	}
}

// Start creates and tracks a new player. A slot is reserved before the
// player is built so concurrent starts cannot overshoot maxSessions.
func (m *Manager) Start(cfg Config) (*Player, error) {
	m.mu.Lock()
	if m.maxSessions > 0 && len(m.sessions)+m.pending >= m.maxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	m.pending++
	m.mu.Unlock()

	p, err := m.newPlayer(cfg)

	m.mu.Lock()
	m.pending--
	if err == nil {
		m.sessions[p.ID()] = p
	}
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.logger.Info("session started", "player_id", p.ID().String(), "exercises", len(cfg.Exercises))
	return p, nil
}

// Get returns the player with the given ID
func (m *Manager) Get(id string) (*Player, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.sessions[uid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return p, nil
}

// Stop closes and forgets a player
func (m *Manager) Stop(id string) error {
	p, err := m.Get(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, p.ID())
	m.mu.Unlock()

	p.Close()
	m.logger.Info("session stopped", "player_id", id)
	return nil
}

// List returns the IDs of all active sessions, sorted
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)
	return ids
}

// Close stops every session
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[uuid.UUID]*Player)
	m.mu.Unlock()

	for _, p := range sessions {
		p.Close()
	}
}
