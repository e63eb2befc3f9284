// Package bus delivers authentication transitions from the session store to
// the stores that depend on it.
//
// Publishers enqueue an Event and return immediately; a single dispatcher
// goroutine (Run) hands each event to every listener in FIFO order. Listeners
// therefore never run while the publisher holds its own locks, and a listener
// that calls back into the session store cannot deadlock it.
//
// Tests that want deterministic delivery call DispatchPending instead of Run.
package bus
