// Package orders caches and mutates the orders of the authenticated vendor.
package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"vendordesk/internal/domain"
)

const (
	fallbackFetchMessage  = "Failed to fetch orders"
	fallbackUpdateMessage = "Failed to update order status"
)

// OpStatus is the state of one async operation.
type OpStatus string

const (
	OpIdle      OpStatus = "idle"
	OpPending   OpStatus = "pending"
	OpFulfilled OpStatus = "fulfilled"
	OpRejected  OpStatus = "rejected"
)

// API is the slice of the vendor API the store needs.
type API interface {
	VendorOrders(ctx context.Context, token, vendorID string) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, token, orderID string, status domain.OrderStatus) (*domain.Order, error)
}

// TokenSource yields the vendor bearer token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Confirmer asks the user to accept or reject a pending change.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Answer is a Confirmer with a fixed answer, for callers that collected consent up front.
type Answer bool

func (a Answer) Confirm(context.Context, string) bool {
	return bool(a)
}

// State is a snapshot of the store for rendering.
type State struct {
	VendorID     string         `json:"vendorId"`
	Orders       []domain.Order `json:"orders"`
	FetchStatus  OpStatus       `json:"fetchStatus"`
	UpdateStatus OpStatus       `json:"updateStatus"`
	Error        string         `json:"error,omitempty"`
}

// Store is the per-session order cache.
type Store struct {
	api    API
	tokens TokenSource
	logger *log.Logger

	mu           sync.Mutex
	vendorID     string
	orders       []domain.Order
	fetchStatus  OpStatus
	updateStatus OpStatus
	errMsg       string
	// epoch changes on Reset; fetchSeq on every started fetch; mutSeq on every applied update.
	epoch    uint64
	fetchSeq uint64
	mutSeq   uint64
	// confirmed holds server copies from updates newer than the last applied fetch.
	confirmed []mutation
}

type mutation struct {
	seq   uint64
	order domain.Order
}

func New(api API, tokens TokenSource, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{
		api:          api,
		tokens:       tokens,
		logger:       logger,
		fetchStatus:  OpIdle,
		updateStatus: OpIdle,
	}
}

// Fetch replaces the cached list with the vendor's orders.
// Only the most recently started fetch may apply its result; older completions return domain.ErrSuperseded.
func (s *Store) Fetch(ctx context.Context, vendorID string) error {
	vendorID = strings.TrimSpace(vendorID)
	if vendorID == "" {
		s.rejectFetch("Vendor not authenticated")
		return domain.ErrUnauthenticated
	}
	token, err := s.tokens.Token(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			s.rejectFetch("Vendor not authenticated")
		} else {
			s.rejectFetch(fallbackFetchMessage)
		}
		return err
	}

	s.mu.Lock()
	s.fetchSeq++
	seq, epoch, mutSeq := s.fetchSeq, s.epoch, s.mutSeq
	s.fetchStatus = OpPending
	s.mu.Unlock()

	orders, err := s.api.VendorOrders(ctx, token, vendorID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.fetchSeq || epoch != s.epoch {
		s.logger.Printf("orders: fetch vendor_id=%s discarded stale result seq=%d", vendorID, seq)
		return domain.ErrSuperseded
	}
	if err != nil {
		s.fetchStatus = OpRejected
		s.errMsg = domain.UserMessage(err, fallbackFetchMessage)
		s.logger.Printf("orders: fetch vendor_id=%s error=%v", vendorID, err)
		return fmt.Errorf("fetch orders: %w", err)
	}
	s.vendorID = vendorID
	s.orders = cloneOrders(orders)
	s.reapplyLocked(mutSeq)
	s.fetchStatus = OpFulfilled
	s.errMsg = ""
	s.logger.Printf("orders: fetch vendor_id=%s count=%d", vendorID, len(orders))
	return nil
}

// UpdateStatus asks confirm before changing an order's status. A declined prompt returns the
// unchanged cached order with domain.ErrNotConfirmed so the caller can revert its control.
// On success the cached order is replaced by the server's copy.
func (s *Store) UpdateStatus(ctx context.Context, orderID, status string, confirm Confirmer) (*domain.Order, error) {
	next, ok := domain.ParseOrderStatus(status)
	if !ok {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown order status %q", status), "status")
	}

	s.mu.Lock()
	current, found := s.find(orderID)
	s.mu.Unlock()
	if !found {
		return nil, domain.ErrNotFound
	}

	prompt := fmt.Sprintf("Change status of order %s from %s to %s?", orderID, current.Status, next)
	if confirm == nil || !confirm.Confirm(ctx, prompt) {
		return &current, domain.ErrNotConfirmed
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		s.mu.Lock()
		s.updateStatus = OpRejected
		if errors.Is(err, domain.ErrUnauthenticated) {
			s.errMsg = "Vendor not authenticated"
		} else {
			s.errMsg = fallbackUpdateMessage
		}
		s.mu.Unlock()
		return &current, err
	}

	s.mu.Lock()
	epoch := s.epoch
	s.updateStatus = OpPending
	s.mu.Unlock()

	updated, err := s.api.UpdateOrderStatus(ctx, token, orderID, next)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return nil, domain.ErrSuperseded
	}
	if err != nil {
		s.updateStatus = OpRejected
		s.errMsg = domain.UserMessage(err, fallbackUpdateMessage)
		s.logger.Printf("orders: update status order_id=%s status=%s error=%v", orderID, next, err)
		if latest, ok := s.find(orderID); ok {
			current = latest
		}
		return &current, fmt.Errorf("%w: %w", domain.ErrRemoteMutationFailed, err)
	}

	replacement := cloneOrder(*updated)
	if replacement.ID == "" {
		replacement.ID = orderID
	}
	for i := range s.orders {
		if s.orders[i].ID == orderID {
			s.orders[i] = replacement
			break
		}
	}
	s.mutSeq++
	s.confirmed = append(s.confirmed, mutation{seq: s.mutSeq, order: cloneOrder(replacement)})
	s.updateStatus = OpFulfilled
	s.logger.Printf("orders: update status order_id=%s status=%s", orderID, replacement.Status)
	out := cloneOrder(replacement)
	return &out, nil
}

// ClearError resets the surfaced error message.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

// Reset empties the cache and invalidates in-flight operations.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.vendorID = ""
	s.orders = nil
	s.confirmed = nil
	s.fetchStatus = OpIdle
	s.updateStatus = OpIdle
	s.errMsg = ""
}

// State returns a copy of the store for rendering.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		VendorID:     s.vendorID,
		Orders:       cloneOrders(s.orders),
		FetchStatus:  s.fetchStatus,
		UpdateStatus: s.updateStatus,
		Error:        s.errMsg,
	}
}

// Order returns a copy of the cached order with id.
func (s *Store) Order(id string) (domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(id)
}

// Statistics derives totals from the cached list.
func (s *Store) Statistics() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Compute(s.orders, s.vendorID)
}

// Filter projects the cached list through a status and search filter.
func (s *Store) Filter(status, query string) []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FilterOrders(s.orders, status, query)
}

// reapplyLocked lays updates confirmed after a fetch started over that fetch's list.
// Updates the fetch already observed are dropped. Must be called with mu held.
func (s *Store) reapplyLocked(since uint64) {
	kept := s.confirmed[:0]
	for _, m := range s.confirmed {
		if m.seq <= since {
			continue
		}
		kept = append(kept, m)
		for i := range s.orders {
			if s.orders[i].ID == m.order.ID {
				s.orders[i] = cloneOrder(m.order)
				break
			}
		}
	}
	s.confirmed = kept
}

func (s *Store) rejectFetch(msg string) {
	s.mu.Lock()
	s.fetchStatus = OpRejected
	s.errMsg = msg
	s.mu.Unlock()
}

// find must be called with mu held.
func (s *Store) find(id string) (domain.Order, bool) {
	for _, o := range s.orders {
		if o.ID == id {
			return cloneOrder(o), true
		}
	}
	return domain.Order{}, false
}

func cloneOrders(in []domain.Order) []domain.Order {
	out := make([]domain.Order, len(in))
	for i, o := range in {
		out[i] = cloneOrder(o)
	}
	return out
}

func cloneOrder(o domain.Order) domain.Order {
	if o.Items != nil {
		o.Items = append([]domain.OrderItem(nil), o.Items...)
	}
	return o
}
