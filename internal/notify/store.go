package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/bus"
)

// Phase tells how the next successful fetch treats unseen ids.
type Phase int

const (
	// Priming: the next fetch records every id without alerting.
	Priming Phase = iota
	// Live: unseen ids raise alerts.
	Live
)

func (p Phase) String() string {
	if p == Live {
		return "live"
	}
	return "priming"
}

// Authenticator reports whether a session is held.
type Authenticator interface {
	IsAuthenticated() bool
}

// Store holds the notification list, the unread count and the set of ids
// already surfaced.
//
// Thread-safety: fields are guarded by mu. Alerts are raised after mu is
// released.
type Store struct {
	client  *api.Client
	auth    Authenticator
	alerter Alerter
	logger  *slog.Logger

	mu       sync.RWMutex
	gen      uint64
	phase    Phase
	list     []api.Notification
	count    int
	surfaced map[string]struct{}
	err      error
}

// New creates an empty store in the Priming phase. A nil alerter logs.
func New(client *api.Client, auth Authenticator, alerter Alerter, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if alerter == nil {
		alerter = LogAlerter{Logger: logger}
	}
	return &Store{
		client:   client,
		auth:     auth,
		alerter:  alerter,
		logger:   logger,
		surfaced: make(map[string]struct{}),
	}
}

// HandleEvent resets the store on every authentication transition. It is a
// bus.Listener.
func (s *Store) HandleEvent(_ context.Context, e bus.Event) error {
	s.Reset()
	return nil
}

// Reset forgets everything, including the surfaced set.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.phase = Priming
	s.list = nil
	s.count = 0
	s.surfaced = make(map[string]struct{})
	s.err = nil
}

// Notifications returns a copy of the current list.
func (s *Store) Notifications() []api.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.Notification, len(s.list))
	copy(out, s.list)
	return out
}

// Count returns the last known unread count.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Phase returns the current phase.
func (s *Store) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Surfaced reports whether id has already been surfaced or recorded.
func (s *Store) Surfaced(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.surfaced[id]
	return ok
}

// Err returns the error recorded by the last operation, or nil.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Fetch reloads the list and alerts on ids not seen before. A rejected
// credential empties the list and count without an error; the session
// reports the expiry.
func (s *Store) Fetch(ctx context.Context) error {
	if !s.auth.IsAuthenticated() {
		return nil
	}
	gen := s.generation()

	list, err := s.client.ListNotifications(ctx)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		defer s.mu.Unlock()
		if api.IsAuthRejected(err) {
			s.list = nil
			s.count = 0
			s.err = nil
			return nil
		}
		s.err = &Error{Op: "fetch", Message: api.MessageOr(err, msgFetchFailed), Err: err}
		return s.err
	}

	var fresh []api.Notification
	for _, n := range list {
		if _, seen := s.surfaced[n.ID]; seen {
			continue
		}
		s.surfaced[n.ID] = struct{}{}
		if s.phase == Live {
			fresh = append(fresh, n)
		}
	}
	s.phase = Live
	s.list = list
	s.err = nil
	s.mu.Unlock()

	for _, n := range fresh {
		s.alerter.Alert(n)
	}
	return nil
}

// FetchCount reloads the unread count. A rejected credential reads as zero.
func (s *Store) FetchCount(ctx context.Context) error {
	if !s.auth.IsAuthenticated() {
		return nil
	}
	gen := s.generation()

	count, err := s.client.NotificationCount(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil
	}
	if err != nil {
		if api.IsAuthRejected(err) {
			s.count = 0
			return nil
		}
		s.err = &Error{Op: "count", Message: api.MessageOr(err, msgCountFailed), Err: err}
		return s.err
	}
	s.count = count
	return nil
}

// DeleteOne deletes a notification and forgets its id.
//
// A rejected credential clears the local list and count, then records and
// returns an *Error asking the user to log in.
func (s *Store) DeleteOne(ctx context.Context, id string) error {
	if !s.auth.IsAuthenticated() {
		return nil
	}
	gen := s.generation()

	err := s.client.DeleteNotification(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return s.failLocked(gen, "delete", err, msgLoginToDelete, msgDeleteFailed)
	}
	if s.gen != gen {
		return nil
	}
	for i, n := range s.list {
		if n.ID == id {
			s.list = append(s.list[:i:i], s.list[i+1:]...)
			break
		}
	}
	delete(s.surfaced, id)
	if s.count > 0 {
		s.count--
	}
	s.err = nil
	return nil
}

// ClearAll deletes every notification. The next Fetch behaves like the
// first one after authentication. A rejected credential is handled as in
// DeleteOne.
func (s *Store) ClearAll(ctx context.Context) error {
	if !s.auth.IsAuthenticated() {
		return nil
	}
	gen := s.generation()

	err := s.client.ClearNotifications(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return s.failLocked(gen, "clear", err, msgLoginToClear, msgClearFailed)
	}
	if s.gen != gen {
		return nil
	}
	s.list = nil
	s.count = 0
	s.surfaced = make(map[string]struct{})
	s.phase = Priming
	s.err = nil
	return nil
}

func (s *Store) failLocked(gen uint64, op string, err error, loginMsg, fallback string) error {
	current := s.gen == gen
	notifyErr := &Error{Op: op, Message: api.MessageOr(err, fallback), Err: err}
	if api.IsAuthRejected(err) {
		notifyErr.Message = loginMsg
		if current {
			s.list = nil
			s.count = 0
		}
	}
	if current {
		s.err = notifyErr
	}
	return notifyErr
}

func (s *Store) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}
