package cart

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated marks failures caused by a missing or rejected session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Error is a cart failure with a user-facing message.
type Error struct {
	// Op is the cart operation: fetch, add, update, remove or clear.
	Op string

	// Message is safe to show to the user.
	Message string

	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cart %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Per-operation user-facing messages.
const (
	msgLoginToAdd    = "Please login to add items to cart"
	msgLoginToUpdate = "Please login to update cart"
	msgLoginToRemove = "Please login to remove items from cart"
	msgLoginToClear  = "Please login to clear cart"

	msgFetchFailed  = "Failed to fetch cart"
	msgAddFailed    = "Failed to add item to cart"
	msgUpdateFailed = "Failed to update item quantity"
	msgRemoveFailed = "Failed to remove item from cart"
	msgClearFailed  = "Failed to clear cart"
)
