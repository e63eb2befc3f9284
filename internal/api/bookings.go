package api

import (
	"context"
	"net/http"
	"net/url"
)

// CreateBooking reserves a table.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (*Booking, error) {
	var out Booking
	if err := c.Do(ctx, http.MethodPost, "/bookings", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyBookings returns the caller's bookings.
func (c *Client) MyBookings(ctx context.Context) ([]Booking, error) {
	var out []Booking
	if err := c.Do(ctx, http.MethodGet, "/bookings/my-bookings", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBookings returns every booking (admin only).
func (c *Client) ListBookings(ctx context.Context) ([]Booking, error) {
	var out []Booking
	if err := c.Do(ctx, http.MethodGet, "/bookings", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateBookingStatus moves a booking to status (admin only).
func (c *Client) UpdateBookingStatus(ctx context.Context, id string, status Status) (*Booking, error) {
	var out Booking
	if err := c.Do(ctx, http.MethodPatch, "/bookings/"+url.PathEscape(id), nil, statusRequest{Status: status}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBooking deletes a booking.
func (c *Client) DeleteBooking(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/bookings/"+url.PathEscape(id), nil, nil, nil)
}
