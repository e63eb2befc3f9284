// Package notify mirrors the user's notifications and surfaces new ones.
//
// The Store remembers which notification ids it has already surfaced. The
// first successful fetch after authentication (or after ClearAll) only
// records ids; later fetches raise one alert per id not yet seen. The Poller
// runs Fetch and FetchCount on a fixed interval for the lifetime of one
// authenticated session.
package notify
