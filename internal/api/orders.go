package api

import (
	"context"
	"net/http"
	"net/url"
)

type addToCartRequest struct {
	MenuItemID string `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type statusRequest struct {
	Status Status `json:"status"`
}

// GetCart fetches the caller's cart.
func (c *Client) GetCart(ctx context.Context) (*Cart, error) {
	var out Cart
	if err := c.Do(ctx, http.MethodGet, "/orders/cart", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddToCart adds quantity of a menu item and returns the updated cart.
func (c *Client) AddToCart(ctx context.Context, menuItemID string, quantity int) (*Cart, error) {
	var out Cart
	body := addToCartRequest{MenuItemID: menuItemID, Quantity: quantity}
	if err := c.Do(ctx, http.MethodPost, "/orders/cart", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCartItem sets the quantity of a cart line and returns the updated cart.
func (c *Client) UpdateCartItem(ctx context.Context, menuItemID string, quantity int) (*Cart, error) {
	var out Cart
	path := "/orders/cart/items/" + url.PathEscape(menuItemID)
	if err := c.Do(ctx, http.MethodPatch, path, nil, quantityRequest{Quantity: quantity}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveFromCart deletes a cart line. The backend answers {message, cart}.
func (c *Client) RemoveFromCart(ctx context.Context, menuItemID string) (*CartMutation, error) {
	var out CartMutation
	path := "/orders/cart/items/" + url.PathEscape(menuItemID)
	if err := c.Do(ctx, http.MethodDelete, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearCart deletes every cart line. The backend answers {message, cart}.
func (c *Client) ClearCart(ctx context.Context) (*CartMutation, error) {
	var out CartMutation
	if err := c.Do(ctx, http.MethodDelete, "/orders/cart", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Checkout converts the cart into an order.
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	var out Order
	if err := c.Do(ctx, http.MethodPost, "/orders/checkout", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyOrders returns the caller's orders.
func (c *Client) MyOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.Do(ctx, http.MethodGet, "/orders/my-orders", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteOrder deletes an order.
func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/orders/"+url.PathEscape(id), nil, nil, nil)
}

// ListOrders returns every order (admin only).
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.Do(ctx, http.MethodGet, "/orders", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateOrderStatus moves an order to status (admin only).
func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status Status) (*Order, error) {
	var out Order
	if err := c.Do(ctx, http.MethodPatch, "/orders/"+url.PathEscape(id), nil, statusRequest{Status: status}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
