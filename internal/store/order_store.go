package store

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"bakehouse/internal/api"
	"bakehouse/internal/device"
	"bakehouse/internal/domain"
	applog "bakehouse/internal/log"
)

var ErrReasonRequired = errors.New("a rejection reason is required")

// OrderStore reconciles order data between the server (when a session
// exists) and the device-local guest history, and drives checkout and
// status changes. Failures are never retried; the message lands on Err
// for passive display and the error is also returned to the caller.
type OrderStore struct {
	mu       sync.Mutex
	client   *api.Client
	session  *SessionStore
	guest    *device.GuestRepo
	products *ProductStore
	orders   []domain.Order
	loading  bool
	err      string
}

func NewOrderStore(client *api.Client, session *SessionStore, guest *device.GuestRepo, products *ProductStore) *OrderStore {
	return &OrderStore{client: client, session: session, guest: guest, products: products}
}

// Fetch refreshes the order list. Guests never hit the network: the
// device-persisted history is returned verbatim. Authenticated users get
// their own orders, admins the full board.
func (s *OrderStore) Fetch(ctx context.Context) ([]domain.Order, error) {
	s.begin()
	user, ok := s.session.User()
	if !ok {
		orders, err := s.guest.Orders()
		return s.finish(orders, errors.Wrap(err, "load guest orders"))
	}
	var (
		orders []domain.Order
		err    error
	)
	if user.IsAdmin() {
		orders, err = s.client.AllOrders(ctx)
	} else {
		orders, err = s.client.MyOrders(ctx)
	}
	return s.finish(orders, err)
}

// Create posts the checkout payload. On success the new order goes to
// the head of the in-memory list, ordered quantities are deducted from
// the cached catalog as a tentative overlay, and guest sessions persist
// the order plus any server-assigned customer id on the device.
func (s *OrderStore) Create(ctx context.Context, payload domain.CheckoutPayload) (domain.Order, error) {
	s.begin()
	o, err := s.client.CreateOrder(ctx, payload)
	if err != nil {
		s.fail(err)
		return domain.Order{}, err
	}

	s.mu.Lock()
	s.orders = append([]domain.Order{o}, s.orders...)
	s.loading = false
	s.mu.Unlock()

	s.products.ApplyTentative(payload.Items)

	if !s.session.Authenticated() {
		if err := s.guest.Prepend(o); err != nil {
			applog.Error("orders.guest.persist", err, map[string]any{"order": o.ID})
		}
		if o.Customer.ID != "" {
			if err := s.guest.SetCustomerID(o.Customer.ID); err != nil {
				applog.Error("orders.guest.customer", err, nil)
			}
		}
	}
	applog.Audit("orders.create", map[string]any{"order": o.ID, "total": o.Total})
	return o, nil
}

// UpdateStatus sends a status-only (or status+reason) patch and mirrors
// the result in memory. Legal-transition policy lives in the callers:
// Advance walks the chain, SetStatus is the unrestricted admin selector.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status domain.Status, reason string) error {
	s.begin()
	if err := s.client.PatchOrderStatus(ctx, id, status, reason); err != nil {
		s.fail(err)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders[i].Status = status
			if reason != "" {
				s.orders[i].Reason = reason
			}
			break
		}
	}
	return nil
}

// CanAdvance reports whether the "advance" control is enabled for an
// order: false once a terminal status is reached.
func (s *OrderStore) CanAdvance(id string) bool {
	o, ok := s.find(id)
	if !ok {
		return false
	}
	_, ok = o.Status.Next()
	return ok
}

// Advance moves an order one step along the forward chain.
func (s *OrderStore) Advance(ctx context.Context, id string) error {
	o, ok := s.find(id)
	if !ok {
		return errors.Errorf("unknown order %s", id)
	}
	next, ok := o.Status.Next()
	if !ok {
		return domain.ErrTerminalStatus
	}
	return s.UpdateStatus(ctx, id, next, "")
}

// Reject marks a pending order rejected; the reason is mandatory.
func (s *OrderStore) Reject(ctx context.Context, id, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	if o, ok := s.find(id); ok && !o.Status.Rejectable() {
		return errors.Errorf("order %s is %s and can no longer be rejected", id, o.Status)
	}
	return s.UpdateStatus(ctx, id, domain.StatusRejected, reason)
}

// Cancel backs an order out before preparation begins.
func (s *OrderStore) Cancel(ctx context.Context, id string) error {
	o, ok := s.find(id)
	if !ok {
		return errors.Errorf("unknown order %s", id)
	}
	if !o.Status.Cancellable() {
		return errors.Errorf("order %s is %s and can no longer be cancelled", id, o.Status)
	}
	return s.UpdateStatus(ctx, id, domain.StatusCancelled, "")
}

// SetStatus is the admin selector: any status, no chain check. The
// looseness is deliberate — it mirrors the manual control as shipped.
func (s *OrderStore) SetStatus(ctx context.Context, id string, status domain.Status) error {
	if !status.Valid() {
		return errors.Errorf("unknown status %q", status)
	}
	return s.UpdateStatus(ctx, id, status, "")
}

// Delete removes an order server-side, in memory, and from the guest
// history. Guests have nothing to delete server-side, so no network
// call happens without a session.
func (s *OrderStore) Delete(ctx context.Context, id string) error {
	s.begin()
	if s.session.Authenticated() {
		if err := s.client.DeleteOrder(ctx, id); err != nil {
			s.fail(err)
			return err
		}
	}
	s.mu.Lock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			break
		}
	}
	s.loading = false
	s.mu.Unlock()
	if err := s.guest.Delete(id); err != nil {
		applog.Error("orders.guest.delete", err, map[string]any{"order": id})
	}
	return nil
}

func (s *OrderStore) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

func (s *OrderStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *OrderStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *OrderStore) find(id string) (domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Order{}, false
}

// begin sets the loading flag and clears the previous error, matching
// the per-call lifecycle every operation follows.
func (s *OrderStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

func (s *OrderStore) fail(err error) {
	s.mu.Lock()
	s.loading = false
	s.err = err.Error()
	s.mu.Unlock()
	applog.Error("orders.op", err, nil)
}

func (s *OrderStore) finish(orders []domain.Order, err error) ([]domain.Order, error) {
	if err != nil {
		s.fail(err)
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.orders = orders
	out := make([]domain.Order, len(orders))
	copy(out, orders)
	return out, nil
}
