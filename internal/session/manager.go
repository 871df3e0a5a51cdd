package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/mapview/internal/geocoding"
	"github.com/UnknownOlympus/mapview/internal/mapsurface"
	"github.com/UnknownOlympus/mapview/internal/mapview"
	"github.com/UnknownOlympus/mapview/internal/metrics"
	"github.com/UnknownOlympus/mapview/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown or already unmounted session ids.
var ErrNotFound = errors.New("session not found")

// Session is one mounted page: its view and the map instance it owns.
type Session struct {
	ID      string
	View    *mapview.View
	Surface *mapsurface.Map

	cancel   context.CancelFunc
	lastSeen time.Time
}

// Manager mounts and unmounts map views and reaps the idle ones.
type Manager struct {
	log          *slog.Logger
	provider     geocoding.Provider
	providerName string
	metrics      *metrics.Metrics
	idleTTL      time.Duration
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager. Sessions untouched for idleTTL are
// unmounted by Run.
func NewManager(
	log *slog.Logger,
	provider geocoding.Provider,
	providerName string,
	m *metrics.Metrics,
	idleTTL time.Duration,
) *Manager {
	return &Manager{
		log:          log,
		provider:     provider,
		providerName: providerName,
		metrics:      m,
		idleTTL:      idleTTL,
		now:          time.Now,
		sessions:     make(map[string]*Session),
	}
}

// Mount creates a view with its own map instance, starts its loop and hands it
// the map handle. The view outlives ctx; it stops on Unmount or Run exit.
func (m *Manager) Mount(ctx context.Context) (*Session, error) {
	view := mapview.New(m.log, m.provider, m.providerName, m.metrics)
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	go view.Run(loopCtx)

	surface := mapsurface.New(models.Coordinates{}, mapview.DefaultZoom)
	if err := view.Load(ctx, surface); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to load map handle: %w", err)
	}

	sess := &Session{
		ID:       uuid.NewString(),
		View:     view,
		Surface:  surface,
		cancel:   cancel,
		lastSeen: m.now(),
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.log.InfoContext(ctx, "Map view mounted", "session", sess.ID)

	return sess, nil
}

// Get returns a mounted session and marks it as recently used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	sess.lastSeen = m.now()

	return sess, nil
}

// Unmount detaches the view from its map and stops its loop.
func (m *Manager) Unmount(ctx context.Context, id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	m.stop(ctx, sess)
	m.log.InfoContext(ctx, "Map view unmounted", "session", id)

	return nil
}

// Len reports the number of mounted sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

// Run reaps idle sessions every interval until ctx is canceled, then unmounts
// whatever is left.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.log.InfoContext(ctx, "Session reaper started", "interval", interval, "idle_ttl", m.idleTTL)

	for {
		select {
		case <-ctx.Done():
			m.unmountAll(context.WithoutCancel(ctx))
			m.log.InfoContext(ctx, "Session reaper stopped")
			return
		case <-ticker.C:
			m.reap(ctx)
		}
	}
}

func (m *Manager) reap(ctx context.Context) {
	deadline := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	var idle []*Session
	for id, sess := range m.sessions {
		if sess.lastSeen.Before(deadline) {
			idle = append(idle, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range idle {
		m.stop(ctx, sess)
	}
	if len(idle) > 0 {
		m.log.InfoContext(ctx, "Reaped idle map views", "count", len(idle))
	}
}

func (m *Manager) unmountAll(ctx context.Context) {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range all {
		m.stop(ctx, sess)
	}
}

func (m *Manager) stop(ctx context.Context, sess *Session) {
	if err := sess.View.Unmount(ctx); err != nil && !errors.Is(err, mapview.ErrUnmounted) {
		m.log.WarnContext(ctx, "Failed to unmount map view", "session", sess.ID, "error", err)
	}
	sess.cancel()
	<-sess.View.Done()
}
