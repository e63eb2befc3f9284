package api

import (
	"context"
	"net/http"
	"net/url"
)

// Profile fetches the caller's identity.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var out User
	if err := c.Do(ctx, http.MethodGet, "/users/profile", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser patches identity fields or the password of user id.
func (c *Client) UpdateUser(ctx context.Context, id string, update ProfileUpdate) (*User, error) {
	var out User
	if err := c.Do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), nil, update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers returns every identity (admin only).
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.Do(ctx, http.MethodGet, "/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
