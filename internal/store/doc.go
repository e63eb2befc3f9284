// Package store provides SQLite-backed durable client storage for bistro.
//
// The store is a small key/value table holding the state that must survive
// process restarts:
//   - "auth": the persisted session record (identity + credential, JSON)
//   - "lastDeliveryAddress": the delivery address used by the last checkout
//
// # Database Configuration
//
//   - WAL mode: readers (the HTTP client) never block the session writer
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Only the session package writes the "auth" key. Every other component
// reads it through api.TokenSource.
package store
