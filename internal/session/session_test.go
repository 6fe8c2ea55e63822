package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vendordesk/internal/domain"
	"vendordesk/internal/preview"
	"vendordesk/internal/repository/storage"
)

type memStorage struct {
	mu          sync.Mutex
	entries     map[string]map[string]string
	updated     map[string]time.Time
	touches     map[string]int
	deletedKeys []string
	clock       func() time.Time
}

func newMemStorage() *memStorage {
	return &memStorage{
		entries: make(map[string]map[string]string),
		updated: make(map[string]time.Time),
		touches: make(map[string]int),
		clock:   time.Now,
	}
}

func (m *memStorage) Get(_ context.Context, sessionID, key string) (*storage.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[sessionID][key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &storage.Entry{SessionID: sessionID, Key: key, Value: v}, nil
}

func (m *memStorage) Set(_ context.Context, sessionID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries[sessionID] == nil {
		m.entries[sessionID] = make(map[string]string)
	}
	m.entries[sessionID][key] = value
	m.updated[sessionID] = m.clock()
	return nil
}

func (m *memStorage) Delete(_ context.Context, sessionID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[sessionID][key]; !ok {
		return domain.ErrNotFound
	}
	delete(m.entries[sessionID], key)
	m.deletedKeys = append(m.deletedKeys, sessionID+"/"+key)
	return nil
}

func (m *memStorage) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
	delete(m.updated, sessionID)
	return nil
}

func (m *memStorage) Touch(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[sessionID]; ok {
		m.updated[sessionID] = m.clock()
	}
	m.touches[sessionID]++
	return nil
}

func (m *memStorage) DeleteIdle(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, at := range m.updated {
		if at.Before(before) {
			n += int64(len(m.entries[id]))
			delete(m.entries, id)
			delete(m.updated, id)
		}
	}
	return n, nil
}

type stubAPI struct {
	vendor     domain.Vendor
	profileErr error
	orders     []domain.Order
	lastToken  string
	lastVendor string
}

func (s *stubAPI) Profile(_ context.Context, token string) (*domain.Vendor, error) {
	s.lastToken = token
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	v := s.vendor.Clone()
	return &v, nil
}

func (s *stubAPI) UpdateProfile(_ context.Context, _ string, _ domain.ProfileUpdate, _ *domain.Upload) (*domain.Vendor, error) {
	v := s.vendor.Clone()
	return &v, nil
}

func (s *stubAPI) SetOnline(_ context.Context, _ string, online bool) (*domain.Vendor, error) {
	v := s.vendor.Clone()
	v.IsOnline = online
	return &v, nil
}

func (s *stubAPI) VendorOrders(_ context.Context, token, vendorID string) ([]domain.Order, error) {
	s.lastToken = token
	s.lastVendor = vendorID
	return s.orders, nil
}

func (s *stubAPI) UpdateOrderStatus(_ context.Context, _, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	return &domain.Order{ID: orderID, Status: status}, nil
}

type noGeocoder struct{}

func (noGeocoder) Reverse(context.Context, float64, float64) (domain.Address, error) {
	return domain.Address{}, nil
}

func (noGeocoder) SearchPostalCode(context.Context, string, string) ([]domain.Address, error) {
	return nil, nil
}

func newManager(api *stubAPI, store *memStorage) *Manager {
	return NewManager(Deps{
		Storage:  store,
		API:      api,
		Geocoder: noGeocoder{},
		Previews: preview.NewStore(0, 0),
	}, nil)
}

func TestStart_PersistsTokenAndBootstraps(t *testing.T) {
	store := newMemStorage()
	api := &stubAPI{
		vendor: domain.Vendor{ID: "v1", Name: "Ravi"},
		orders: []domain.Order{{ID: "o1", Status: domain.StatusPlaced}},
	}
	m := newManager(api, store)

	sess, err := m.Start(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got, _ := store.Get(context.Background(), sess.ID, "vendorToken"); got == nil || got.Value != "tok-1" {
		t.Fatalf("expected token persisted, got %+v", got)
	}
	if err := sess.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if sess.Profile.VendorID() != "v1" || api.lastVendor != "v1" || api.lastToken != "tok-1" {
		t.Fatalf("unexpected bootstrap vendor=%q lastVendor=%q token=%q", sess.Profile.VendorID(), api.lastVendor, api.lastToken)
	}
	if got := len(sess.Orders.State().Orders); got != 1 {
		t.Fatalf("expected 1 order, got %d", got)
	}
}

func TestStart_BlankTokenRejected(t *testing.T) {
	m := newManager(&stubAPI{}, newMemStorage())
	var verr *domain.ValidationError
	if _, err := m.Start(context.Background(), "  "); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expected no session")
	}
}

func TestGet_RestoresFromStoredToken(t *testing.T) {
	store := newMemStorage()
	api := &stubAPI{vendor: domain.Vendor{ID: "v1"}}
	first := newManager(api, store)
	sess, err := first.Start(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	restarted := newManager(api, store)
	got, err := restarted.Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Profile.VendorID() != "v1" {
		t.Fatalf("expected restored session to be bootstrapped")
	}
	again, _ := restarted.Get(context.Background(), sess.ID)
	if again != got {
		t.Fatalf("expected the same session on second get")
	}
}

func TestGet_UnknownSession(t *testing.T) {
	m := newManager(&stubAPI{}, newMemStorage())
	for _, id := range []string{"", "not-a-uuid", "6f1c2a8e-6d0e-4a57-9d55-2f3d2b8f0c11"} {
		if _, err := m.Get(context.Background(), id); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("id %q: expected unauthenticated, got %v", id, err)
		}
	}
}

func TestGet_RestoreRejectedByBackend(t *testing.T) {
	store := newMemStorage()
	api := &stubAPI{vendor: domain.Vendor{ID: "v1"}}
	sess, _ := newManager(api, store).Start(context.Background(), "tok-1")

	api.profileErr = domain.ErrUnauthenticated
	if _, err := newManager(api, store).Get(context.Background(), sess.ID); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestEnd_ClearsTokenAndState(t *testing.T) {
	store := newMemStorage()
	api := &stubAPI{vendor: domain.Vendor{ID: "v1"}, orders: []domain.Order{{ID: "o1"}}}
	m := newManager(api, store)
	sess, _ := m.Start(context.Background(), "tok-1")
	_ = sess.Bootstrap(context.Background())

	if err := m.End(context.Background(), sess.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := sess.Tokens.Token(context.Background()); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected token removed, got %v", err)
	}
	if sess.Profile.VendorID() != "" || len(sess.Orders.State().Orders) != 0 {
		t.Fatalf("expected containers reset")
	}
	if _, err := m.Get(context.Background(), sess.ID); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected session gone, got %v", err)
	}
	if len(store.deletedKeys) != 1 || store.deletedKeys[0] != sess.ID+"/vendorToken" {
		t.Fatalf("expected token cleared through its source, got %v", store.deletedKeys)
	}
}

func TestEnd_AfterRestartClearsStoredToken(t *testing.T) {
	store := newMemStorage()
	api := &stubAPI{vendor: domain.Vendor{ID: "v1"}}
	sess, _ := newManager(api, store).Start(context.Background(), "tok-1")

	restarted := newManager(api, store)
	if err := restarted.End(context.Background(), sess.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	if len(store.deletedKeys) != 1 || store.deletedKeys[0] != sess.ID+"/vendorToken" {
		t.Fatalf("expected stored token cleared, got %v", store.deletedKeys)
	}
	if _, err := restarted.Get(context.Background(), sess.ID); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected session gone, got %v", err)
	}
}

func TestSweep_EvictsIdleSessions(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	now := start
	clock := func() time.Time { return now }

	store := newMemStorage()
	store.clock = clock
	api := &stubAPI{
		vendor: domain.Vendor{ID: "v1"},
		orders: []domain.Order{{ID: "o1", Status: domain.StatusPlaced}},
	}
	m := NewManager(Deps{
		Storage:  store,
		API:      api,
		Geocoder: noGeocoder{},
		Previews: preview.NewStore(0, 0),
		IdleTTL:  time.Hour,
	}, nil)
	m.now = clock

	now = start.Add(-30 * time.Minute)
	if err := store.Set(context.Background(), "orphan", "vendorToken", "tok-old"); err != nil {
		t.Fatalf("seed orphan: %v", err)
	}
	now = start

	idle, err := m.Start(context.Background(), "tok-idle")
	if err != nil {
		t.Fatalf("start idle: %v", err)
	}
	busy, err := m.Start(context.Background(), "tok-busy")
	if err != nil {
		t.Fatalf("start busy: %v", err)
	}
	_ = idle.Bootstrap(context.Background())
	_ = busy.Bootstrap(context.Background())

	now = start.Add(40 * time.Minute)
	if _, err := m.Get(context.Background(), busy.ID); err != nil {
		t.Fatalf("get busy: %v", err)
	}
	now = start.Add(45 * time.Minute)
	if _, err := m.Get(context.Background(), busy.ID); err != nil {
		t.Fatalf("get busy again: %v", err)
	}
	if store.touches[busy.ID] != 1 {
		t.Fatalf("expected one touch within the touch interval, got %d", store.touches[busy.ID])
	}

	now = start.Add(70 * time.Minute)
	evicted, err := m.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if evicted != 1 || m.Len() != 1 {
		t.Fatalf("expected one eviction leaving one session, got evicted=%d live=%d", evicted, m.Len())
	}
	if idle.Profile.VendorID() != "" || len(idle.Orders.State().Orders) != 0 {
		t.Fatalf("expected evicted containers reset")
	}
	if busy.Profile.VendorID() != "v1" || len(busy.Orders.State().Orders) != 1 {
		t.Fatalf("expected busy session untouched")
	}
	if _, err := store.Get(context.Background(), "orphan", "vendorToken"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected orphaned token removed, got %v", err)
	}
	if _, err := store.Get(context.Background(), busy.ID, "vendorToken"); err != nil {
		t.Fatalf("expected busy token kept, got %v", err)
	}
	if _, err := m.Get(context.Background(), idle.ID); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected evicted session to need a new login, got %v", err)
	}
}

func TestSweep_DisabledWithoutIdleTTL(t *testing.T) {
	store := newMemStorage()
	m := newManager(&stubAPI{vendor: domain.Vendor{ID: "v1"}}, store)
	m.now = func() time.Time { return time.Now().Add(365 * 24 * time.Hour) }
	if _, err := m.Start(context.Background(), "tok-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	evicted, err := m.Sweep(context.Background())
	if err != nil || evicted != 0 || m.Len() != 1 {
		t.Fatalf("expected no eviction, got evicted=%d err=%v live=%d", evicted, err, m.Len())
	}
}
