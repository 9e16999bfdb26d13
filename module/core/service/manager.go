package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nandanugg/collector-tracker/module/core/domain"
	"github.com/nandanugg/collector-tracker/module/core/internal/repository/publisher"
)

var ErrManagerClosed = errors.New("session manager is shut down")

// Manager keeps at most one tracking session per user.
type Manager struct {
	cfg     SessionConfig
	drivers map[domain.Mode]Driver
	queue   snapshotQueue
	events  fanout

	mu       sync.Mutex
	sessions map[string]*Session
	// busy holds users whose provider is being subscribed or unsubscribed.
	// Broker round trips happen outside mu.
	busy   map[string]struct{}
	closed bool
}

func NewManager(cfg SessionConfig, drivers map[domain.Mode]Driver, queue snapshotQueue, pubs ...publisher.EventPublisher) *Manager {
	return &Manager{
		cfg:      cfg,
		drivers:  drivers,
		queue:    queue,
		events:   fanout(pubs),
		sessions: map[string]*Session{},
		busy:     map[string]struct{}{},
	}
}

func (m *Manager) Start(ctx context.Context, userID string, mode domain.Mode) (domain.Session, error) {
	if userID == "" {
		return domain.Session{}, domain.ErrMissingIdentity
	}
	driver, ok := m.drivers[mode]
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: %q", domain.ErrInvalidMode, mode)
	}

	if err := m.reserve(userID); err != nil {
		return domain.Session{}, err
	}

	now := m.now()
	info := domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Mode:      mode,
		StartedAt: now,
	}
	sess := newSession(info, m.cfg, driver, m.queue, m.events)
	startErr := sess.Start(ctx)

	m.mu.Lock()
	delete(m.busy, userID)
	closed := m.closed
	if startErr == nil && !closed {
		m.sessions[userID] = sess
	}
	m.mu.Unlock()

	if startErr != nil {
		return domain.Session{}, fmt.Errorf("start sampler: %w", startErr)
	}
	if closed {
		sess.Stop()
		return domain.Session{}, ErrManagerClosed
	}

	log.Info().Str("user_id", userID).Str("session_id", info.ID).Str("mode", string(mode)).Msg("tracking started")
	return info, nil
}

func (m *Manager) reserve(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	if _, exists := m.sessions[userID]; exists {
		return domain.ErrAlreadyTracking
	}
	if _, pending := m.busy[userID]; pending {
		return domain.ErrAlreadyTracking
	}
	m.busy[userID] = struct{}{}
	return nil
}

// Stop tears the session down. The user stays reserved until the old
// subscription is gone, so a concurrent Start cannot overlap it.
func (m *Manager) Stop(userID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	if !ok {
		m.mu.Unlock()
		return domain.ErrNotTracking
	}
	delete(m.sessions, userID)
	m.busy[userID] = struct{}{}
	m.mu.Unlock()

	sess.Stop()

	m.mu.Lock()
	delete(m.busy, userID)
	m.mu.Unlock()

	log.Info().Str("user_id", userID).Str("session_id", sess.info.ID).Msg("tracking stopped")
	return nil
}

// StopAll stops every session and refuses further starts.
func (m *Manager) StopAll() {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = map[string]*Session{}
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Stop()
	}
}

func (m *Manager) Active() []domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Session returns the active session for userID.
func (m *Manager) Session(userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return nil, domain.ErrNotTracking
	}
	return sess, nil
}

func (m *Manager) now() time.Time {
	if m.cfg.Now != nil {
		return m.cfg.Now()
	}
	return time.Now()
}
