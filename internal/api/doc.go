// Package api is the HTTP client for the restaurant ordering backend.
//
// A single Client sends every request. It attaches the persisted bearer
// credential (read through a TokenSource on each request, so a login or
// logout is visible immediately), a fresh X-Request-ID, and classifies
// failures into the client error taxonomy:
//
//   - KindAuthRejected: HTTP 401. The credential is missing, invalid or expired.
//   - KindRequestFailed: any other non-2xx status or a transport failure.
//     Message carries the server's "message" field when it sent one.
//
// Resource methods (auth.go, users.go, menu.go, orders.go, notifications.go,
// bookings.go) are thin wrappers over Do, one per backend endpoint.
//
// Ids arrive as either "_id" or "id"; phone numbers as JSON numbers or
// strings. The wire types in types.go accept both.
package api
