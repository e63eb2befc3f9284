// Package cart mirrors the server-side cart of the authenticated user.
//
// The store moves through Uninitialized → Loading → Ready. It is reset to
// Uninitialized whenever the session becomes unauthenticated and loads once
// on every transition into the authenticated state. Mutations replace the
// local snapshot with the one the server returns; totals are never computed
// locally.
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/bus"
)

// State is the lifecycle state of the cart snapshot.
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Authenticator reports whether a session is held.
type Authenticator interface {
	IsAuthenticated() bool
}

// Store holds the cart snapshot.
//
// Thread-safety: fields are guarded by mu, never held across a request. gen
// is bumped on every reset so a response that arrives after a logout is
// discarded.
type Store struct {
	client *api.Client
	auth   Authenticator
	logger *slog.Logger

	mu      sync.RWMutex
	state   State
	gen     uint64
	cart    *api.Cart
	err     error
	loading chan struct{} // closed when the in-flight fetch finishes
}

// New creates an Uninitialized cart store.
func New(client *api.Client, auth Authenticator, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, auth: auth, logger: logger}
}

// HandleEvent follows authentication transitions. It is a bus.Listener.
func (s *Store) HandleEvent(ctx context.Context, e bus.Event) error {
	switch e.Kind {
	case bus.Authenticated:
		s.Reset()
		return s.EnsureFetched(ctx)
	case bus.Unauthenticated:
		s.Reset()
	}
	return nil
}

// FollowLazily is a bus.Listener that resets on every transition without
// fetching. The snapshot then loads on the first EnsureFetched.
func (s *Store) FollowLazily(_ context.Context, _ bus.Event) error {
	s.Reset()
	return nil
}

// Reset drops the snapshot and error and returns to Uninitialized.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = Uninitialized
	s.cart = nil
	s.err = nil
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Cart returns a copy of the current snapshot, or nil.
func (s *Store) Cart() *api.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCart(s.cart)
}

// ItemCount is the sum of line item quantities.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cart == nil {
		return 0
	}
	n := 0
	for _, item := range s.cart.Items {
		n += item.Quantity
	}
	return n
}

// Err returns the error recorded by the last operation, or nil.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// EnsureFetched loads the cart if it has not been loaded for this session.
func (s *Store) EnsureFetched(ctx context.Context) error {
	if s.State() != Uninitialized {
		return nil
	}
	return s.Fetch(ctx)
}

// Fetch reloads the cart from the server. It does nothing when
// unauthenticated or while another fetch is in flight. A rejected
// credential clears the cart without recording an error.
func (s *Store) Fetch(ctx context.Context) error {
	_, err := s.fetch(ctx)
	return err
}

// fetch returns the in-flight fetch's done channel instead of fetching when
// one is already running.
func (s *Store) fetch(ctx context.Context) (<-chan struct{}, error) {
	if !s.auth.IsAuthenticated() {
		return nil, nil
	}

	s.mu.Lock()
	if s.state == Loading {
		busy := s.loading
		s.mu.Unlock()
		return busy, nil
	}
	s.state = Loading
	gen := s.gen
	done := make(chan struct{})
	s.loading = done
	s.mu.Unlock()
	defer close(done)

	fetched, err := s.client.GetCart(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, nil
	}
	if err != nil {
		if api.IsAuthRejected(err) {
			s.logger.Debug("cart fetch rejected, clearing")
			s.cart = nil
			s.err = nil
			s.state = Uninitialized
			return nil, nil
		}
		s.err = &Error{Op: "fetch", Message: api.MessageOr(err, msgFetchFailed), Err: err}
		s.state = Ready
		return nil, s.err
	}
	s.cart = fetched
	s.err = nil
	s.state = Ready
	return nil, nil
}

// refetch fetches after any in-flight fetch finishes, since that one may
// have started before the change the caller needs to see.
func (s *Store) refetch(ctx context.Context) error {
	for {
		busy, err := s.fetch(ctx)
		if busy == nil {
			return err
		}
		select {
		case <-busy:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// AddItem adds quantity of a menu item. Unlike the other mutations it fails
// when unauthenticated.
func (s *Store) AddItem(ctx context.Context, menuItemID string, quantity int) (*api.Cart, error) {
	if !s.auth.IsAuthenticated() {
		return nil, &Error{Op: "add", Message: msgLoginToAdd, Err: ErrNotAuthenticated}
	}

	gen := s.generation()
	updated, err := s.client.AddToCart(ctx, menuItemID, quantity)
	if err != nil {
		return nil, s.fail(gen, "add", err, msgLoginToAdd, msgAddFailed)
	}
	s.adopt(gen, updated)
	return cloneCart(updated), nil
}

// UpdateItemQuantity sets the quantity of a line item. Quantity is not
// clamped; callers reject values below 1.
func (s *Store) UpdateItemQuantity(ctx context.Context, menuItemID string, quantity int) (*api.Cart, error) {
	if !s.auth.IsAuthenticated() {
		return nil, nil
	}

	gen := s.generation()
	updated, err := s.client.UpdateCartItem(ctx, menuItemID, quantity)
	if err != nil {
		return nil, s.fail(gen, "update", err, msgLoginToUpdate, msgUpdateFailed)
	}
	s.adopt(gen, updated)
	return cloneCart(updated), nil
}

// RemoveItem deletes a line item. When the response carries no cart the
// snapshot is refreshed with one fetch, started after any fetch already in
// flight.
func (s *Store) RemoveItem(ctx context.Context, menuItemID string) (*api.Cart, error) {
	if !s.auth.IsAuthenticated() {
		return nil, nil
	}

	gen := s.generation()
	resp, err := s.client.RemoveFromCart(ctx, menuItemID)
	if err != nil {
		return nil, s.fail(gen, "remove", err, msgLoginToRemove, msgRemoveFailed)
	}
	if resp.Cart != nil {
		s.adopt(gen, resp.Cart)
		return cloneCart(resp.Cart), nil
	}

	s.logger.Debug("remove response without cart, refetching")
	if err := s.refetch(ctx); err != nil {
		return nil, err
	}
	return s.Cart(), nil
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) (*api.Cart, error) {
	if !s.auth.IsAuthenticated() {
		return nil, nil
	}

	gen := s.generation()
	resp, err := s.client.ClearCart(ctx)
	if err != nil {
		return nil, s.fail(gen, "clear", err, msgLoginToClear, msgClearFailed)
	}
	s.adopt(gen, resp.Cart)
	return cloneCart(resp.Cart), nil
}

func (s *Store) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// adopt replaces the snapshot unless the store was reset meanwhile.
func (s *Store) adopt(gen uint64, c *api.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.cart = cloneCart(c)
	s.err = nil
	s.state = Ready
}

// fail records and returns the normalized error for a mutation. A rejected
// credential also clears the snapshot.
func (s *Store) fail(gen uint64, op string, err error, loginMsg, fallback string) error {
	rejected := api.IsAuthRejected(err)
	cartErr := &Error{Op: op, Message: api.MessageOr(err, fallback), Err: err}
	if rejected {
		cartErr = &Error{Op: op, Message: loginMsg, Err: fmt.Errorf("%w: %w", ErrNotAuthenticated, err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return cartErr
	}
	if rejected {
		s.cart = nil
		s.state = Uninitialized
	}
	s.err = cartErr
	return cartErr
}

func cloneCart(c *api.Cart) *api.Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = make([]api.LineItem, len(c.Items))
	copy(out.Items, c.Items)
	return &out
}
