// Package checkout turns the current cart into an order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/forms"
	"github.com/roach88/bistro/internal/store"
)

// ErrEmptyCart is returned when there is nothing to order.
var ErrEmptyCart = errors.New("cart is empty")

// Error is a failed order placement with a user-facing message.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return "checkout: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Cart is the part of the cart store checkout needs.
type Cart interface {
	EnsureFetched(ctx context.Context) error
	ItemCount() int
	Clear(ctx context.Context) (*api.Cart, error)
}

// Storage remembers the last delivery address.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// Service places orders.
type Service struct {
	client  *api.Client
	cart    Cart
	storage Storage
	logger  *slog.Logger
}

// New creates a checkout service.
func New(client *api.Client, cart Cart, storage Storage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, cart: cart, storage: storage, logger: logger}
}

// DefaultAddress returns the delivery address of the last order, "" if none.
func (s *Service) DefaultAddress(ctx context.Context) (string, error) {
	addr, _, err := s.storage.Get(ctx, store.KeyLastDeliveryAddress)
	if err != nil {
		return "", fmt.Errorf("read last delivery address: %w", err)
	}
	return addr, nil
}

// Prefill returns a checkout form with the remembered address, the phone of
// identity (if any) and cash on delivery selected.
func (s *Service) Prefill(ctx context.Context, identity *api.User) (forms.Checkout, error) {
	addr, err := s.DefaultAddress(ctx)
	if err != nil {
		return forms.Checkout{}, err
	}
	form := forms.Checkout{DeliveryAddress: addr, PaymentMethod: api.PaymentCashOnDelivery}
	if identity != nil {
		form.Phone = string(identity.Phone)
	}
	return form, nil
}

// PlaceOrder validates form, refuses an empty cart, submits the order,
// remembers the address and syncs the local cart.
//
// The order is returned even if remembering the address or syncing the cart
// fails afterwards; those failures are logged.
func (s *Service) PlaceOrder(ctx context.Context, form forms.Checkout) (*api.Order, error) {
	req, err := form.Validate()
	if err != nil {
		return nil, err
	}

	if err := s.cart.EnsureFetched(ctx); err != nil {
		return nil, err
	}
	if s.cart.ItemCount() == 0 {
		return nil, ErrEmptyCart
	}

	order, err := s.client.Checkout(ctx, req)
	if err != nil {
		return nil, &Error{Message: api.MessageOr(err, "Failed to place order. Please try again."), Err: err}
	}

	if err := s.storage.Put(ctx, store.KeyLastDeliveryAddress, req.DeliveryAddress); err != nil {
		s.logger.Warn("could not remember delivery address", "error", err)
	}
	if _, err := s.cart.Clear(ctx); err != nil {
		s.logger.Warn("could not sync cart after checkout", "error", err)
	}

	s.logger.Info("order placed", "order_id", order.ID, "total", order.TotalPrice)
	return order, nil
}
