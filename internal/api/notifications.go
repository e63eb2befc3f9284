package api

import (
	"context"
	"net/http"
	"net/url"
)

// ListNotifications returns the caller's notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context) ([]Notification, error) {
	var out []Notification
	if err := c.Do(ctx, http.MethodGet, "/notifications", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NotificationCount returns the caller's unread count.
func (c *Client) NotificationCount(ctx context.Context) (int, error) {
	var out NotificationCount
	if err := c.Do(ctx, http.MethodGet, "/notifications/count", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// DeleteNotification deletes one notification.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil, nil, nil)
}

// ClearNotifications deletes all of the caller's notifications.
func (c *Client) ClearNotifications(ctx context.Context) error {
	return c.Do(ctx, http.MethodDelete, "/notifications", nil, nil, nil)
}
