package api

import (
	"context"
	"net/http"
	"net/url"
)

// ListMenu returns menu items, filtered by category unless it is empty or "All".
func (c *Client) ListMenu(ctx context.Context, category string) ([]MenuItem, error) {
	var query url.Values
	if category != "" && category != CategoryAll {
		query = url.Values{"category": {category}}
	}
	var out []MenuItem
	if err := c.Do(ctx, http.MethodGet, "/menu", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMenuItem returns a single menu item.
func (c *Client) GetMenuItem(ctx context.Context, id string) (*MenuItem, error) {
	var out MenuItem
	if err := c.Do(ctx, http.MethodGet, "/menu/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateMenuItem adds a menu item (admin only).
func (c *Client) CreateMenuItem(ctx context.Context, in MenuItemInput) (*MenuItem, error) {
	var out MenuItem
	if err := c.Do(ctx, http.MethodPost, "/menu", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMenuItem replaces the editable fields of a menu item (admin only).
func (c *Client) UpdateMenuItem(ctx context.Context, id string, in MenuItemInput) (*MenuItem, error) {
	var out MenuItem
	if err := c.Do(ctx, http.MethodPatch, "/menu/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMenuItem removes a menu item (admin only).
func (c *Client) DeleteMenuItem(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/menu/"+url.PathEscape(id), nil, nil, nil)
}
