// Package session keeps the per-dashboard containers: one profile synchronizer and one order store each.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"vendordesk/internal/domain"
	"vendordesk/internal/geocode"
	"vendordesk/internal/repository/storage"
	"vendordesk/internal/service/orders"
	"vendordesk/internal/service/profile"
	"vendordesk/internal/service/token"

	"github.com/google/uuid"
)

// VendorAPI is everything the session containers need from the vendor backend.
type VendorAPI interface {
	profile.API
	orders.API
}

// Session is one logged-in dashboard.
type Session struct {
	ID      string
	Tokens  *token.Source
	Profile *profile.Synchronizer
	Orders  *orders.Store

	// guarded by Manager.mu
	lastUsed    time.Time
	lastTouched time.Time
}

// Bootstrap loads the vendor profile and then that vendor's orders.
// An order fetch failure is recorded on the store and not returned.
func (s *Session) Bootstrap(ctx context.Context) error {
	if err := s.Profile.Refresh(ctx); err != nil {
		return err
	}
	if err := s.Orders.Fetch(ctx, s.Profile.VendorID()); errors.Is(err, domain.ErrUnauthenticated) {
		return err
	}
	return nil
}

// Deps wires the shared collaborators into every session.
type Deps struct {
	Storage  storage.Repository
	TokenKey string
	API      VendorAPI
	Geocoder geocode.Provider
	Previews profile.Previews
	Options  profile.Options
	// IdleTTL evicts sessions unused for longer; zero keeps them forever.
	IdleTTL time.Duration
}

// Manager tracks live sessions. A session whose token survives in storage
// is rebuilt on first use, so sessions outlive a process restart.
type Manager struct {
	deps   Deps
	logger *log.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(deps Deps, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if deps.TokenKey == "" {
		deps.TokenKey = "vendorToken"
	}
	return &Manager{
		deps:     deps,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Start persists the vendor token under a new session id.
func (m *Manager) Start(ctx context.Context, vendorToken string) (*Session, error) {
	id := uuid.NewString()
	sess := m.build(id)
	if err := sess.Tokens.Store(ctx, vendorToken); err != nil {
		return nil, err
	}

	m.mu.Lock()
	now := m.now()
	sess.lastUsed, sess.lastTouched = now, now
	m.sessions[id] = sess
	m.mu.Unlock()
	m.logger.Printf("session: start session_id=%s", id)
	return sess, nil
}

// Get returns the live session, rebuilding it when only its stored token remains.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, domain.ErrUnauthenticated
	}
	m.mu.Lock()
	sess, ok := m.sessions[id]
	touch := false
	if ok {
		now := m.now()
		sess.lastUsed = now
		if every := m.touchEvery(); every > 0 && now.Sub(sess.lastTouched) >= every {
			sess.lastTouched = now
			touch = true
		}
	}
	m.mu.Unlock()
	if ok {
		if touch {
			m.touch(ctx, id)
		}
		return sess, nil
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrUnauthenticated
	}
	sess = m.build(id)
	if _, err := sess.Tokens.Token(ctx); err != nil {
		return nil, err
	}
	if err := sess.Bootstrap(ctx); err != nil {
		m.logger.Printf("session: restore session_id=%s error=%v", id, err)
		if errors.Is(err, domain.ErrUnauthenticated) {
			return nil, err
		}
	}

	m.mu.Lock()
	now := m.now()
	if existing, ok := m.sessions[id]; ok {
		existing.lastUsed = now
		m.mu.Unlock()
		sess.Profile.Reset()
		return existing, nil
	}
	sess.lastUsed, sess.lastTouched = now, now
	m.sessions[id] = sess
	m.mu.Unlock()
	m.touch(ctx, id)
	m.logger.Printf("session: restore session_id=%s", id)
	return sess, nil
}

// End logs the session out: the token and any stored values are removed and
// both containers return to their empty state.
func (m *Manager) End(ctx context.Context, id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		sess.Profile.Reset()
		sess.Orders.Reset()
	} else {
		sess = &Session{ID: id, Tokens: token.NewSource(m.deps.Storage, id, m.deps.TokenKey)}
	}
	if err := sess.Tokens.Clear(ctx); err != nil {
		return fmt.Errorf("end session: clear token: %w", err)
	}
	if err := m.deps.Storage.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	m.logger.Printf("session: end session_id=%s", id)
	return nil
}

// Sweep evicts sessions idle for longer than Deps.IdleTTL, resetting their
// containers, and drops stored values nobody has used within the same window.
// It returns the number of evicted live sessions.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	if m.deps.IdleTTL <= 0 {
		return 0, nil
	}
	cutoff := m.now().Add(-m.deps.IdleTTL)

	m.mu.Lock()
	var idle []*Session
	for id, sess := range m.sessions {
		if sess.lastUsed.Before(cutoff) {
			idle = append(idle, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range idle {
		sess.Profile.Reset()
		sess.Orders.Reset()
		if err := m.deps.Storage.DeleteSession(ctx, sess.ID); err != nil {
			m.logger.Printf("session: evict session_id=%s error=%v", sess.ID, err)
		}
	}

	// Rows of live sessions lag lastUsed by at most one touch interval.
	removed, err := m.deps.Storage.DeleteIdle(ctx, cutoff.Add(-m.touchEvery()))
	if err != nil {
		m.logger.Printf("session: sweep evicted=%d error=%v", len(idle), err)
		return len(idle), fmt.Errorf("sweep sessions: %w", err)
	}
	m.logger.Printf("session: sweep evicted=%d removed_rows=%d live=%d", len(idle), removed, m.Len())
	return len(idle), nil
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.deps.IdleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = m.Sweep(ctx)
		}
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) build(id string) *Session {
	tokens := token.NewSource(m.deps.Storage, id, m.deps.TokenKey)
	return &Session{
		ID:      id,
		Tokens:  tokens,
		Profile: profile.New(m.deps.API, tokens, m.deps.Geocoder, m.deps.Previews, m.deps.Options, m.logger),
		Orders:  orders.New(m.deps.API, tokens, m.logger),
	}
}

// touchEvery bounds how often a busy session refreshes its stored rows.
func (m *Manager) touchEvery() time.Duration {
	return m.deps.IdleTTL / 4
}

func (m *Manager) touch(ctx context.Context, id string) {
	if m.deps.IdleTTL <= 0 {
		return
	}
	if err := m.deps.Storage.Touch(ctx, id); err != nil {
		m.logger.Printf("session: touch session_id=%s error=%v", id, err)
	}
}
