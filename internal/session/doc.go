// Package session holds the authenticated identity and bearer credential.
//
// The Store is the only writer of the persisted "auth" record. It restores
// the record at startup, replaces it on login, merges identity updates into
// it, and erases it on logout or when the backend rejects the credential.
// Every change of authentication state is published on the transition bus so
// the cart and notification stores can follow along.
package session
