package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/bus"
	"github.com/roach88/bistro/internal/store"
)

// Publisher receives authentication transitions.
type Publisher interface {
	Publish(e bus.Event) bool
}

// Store holds the current session.
//
// Thread-safety: fields are guarded by mu. No lock is held across a network
// call or while publishing.
type Store struct {
	client  *api.Client
	storage Storage
	events  Publisher
	logger  *slog.Logger

	mu           sync.RWMutex
	identity     *api.User
	credential   string
	initializing bool
}

// New creates an empty, unauthenticated session store.
func New(client *api.Client, storage Storage, events Publisher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:  client,
		storage: storage,
		events:  events,
		logger:  logger,
	}
}

// IsAuthenticated reports whether a credential is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential != ""
}

// Identity returns a copy of the current identity, or nil.
func (s *Store) Identity() *api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.identity)
}

// Credential returns the current bearer token, "" when unauthenticated.
func (s *Store) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

// IsAdmin reports whether the current identity has the admin role.
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil && s.identity.Role == api.RoleAdmin
}

// Initializing is true only while Restore runs.
func (s *Store) Initializing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initializing
}

// Restore adopts the persisted session, if any.
//
// A record whose identity lacks an id is completed from /users/profile and
// re-persisted; failure of that fetch is logged and the restored session is
// kept. A malformed record is deleted. Initializing is cleared on return in
// every case.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.Lock()
	s.initializing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.initializing = false
		s.mu.Unlock()
	}()

	var rec Record
	ok, err := s.storage.GetJSON(ctx, store.KeyAuth, &rec)
	var corrupt *store.CorruptError
	if errors.As(err, &corrupt) {
		s.logger.Warn("discarding malformed session record", "error", err)
		return s.storage.Delete(ctx, store.KeyAuth)
	}
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if !ok {
		return nil
	}
	if rec.Token == "" {
		s.logger.Warn("discarding session record without credential")
		return s.storage.Delete(ctx, store.KeyAuth)
	}

	s.mu.Lock()
	s.identity = cloneUser(rec.User)
	s.credential = rec.Token
	s.mu.Unlock()
	s.publish(bus.Authenticated, bus.ReasonRestore)

	if rec.User != nil && rec.User.ID != "" {
		return nil
	}

	profile, err := s.client.Profile(api.ContextWithToken(ctx, rec.Token))
	if err != nil {
		s.logger.Warn("could not complete restored identity", "error", err)
		return nil
	}

	s.mu.Lock()
	if s.credential != rec.Token {
		// Logged out or expired while the profile was in flight.
		s.mu.Unlock()
		return nil
	}
	merged := mergeUser(s.identity, *profile)
	s.identity = merged
	s.mu.Unlock()

	if err := s.persist(ctx, merged, rec.Token); err != nil {
		s.logger.Warn("could not persist restored identity", "error", err)
	}
	return nil
}

// Login exchanges credentials for a token, resolves the identity, then
// persists and adopts the new session.
func (s *Store) Login(ctx context.Context, creds api.Credentials) (*Record, error) {
	resp, err := s.client.Login(ctx, creds)
	if err != nil {
		if api.IsAuthRejected(err) || api.StatusCode(err) == http.StatusBadRequest {
			return nil, &AuthError{Message: api.MessageOr(err, "Invalid credentials"), Err: err}
		}
		return nil, &RequestError{Op: "login", Message: api.MessageOr(err, "Login failed"), Err: err}
	}
	if resp.AccessToken == "" {
		return nil, &AuthError{Message: "no access token in response"}
	}

	identity, err := s.client.Profile(api.ContextWithToken(ctx, resp.AccessToken))
	if err != nil {
		s.logger.Warn("profile unavailable after login, using fallback identity", "error", err)
		identity = fallbackIdentity(resp.AccessToken, creds.Email, resp.Role)
	}

	if err := s.persist(ctx, identity, resp.AccessToken); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.identity = cloneUser(identity)
	s.credential = resp.AccessToken
	s.mu.Unlock()
	s.publish(bus.Authenticated, bus.ReasonLogin)

	s.logger.Info("logged in", "email", identity.Email, "role", string(identity.Role))
	return &Record{User: cloneUser(identity), Token: resp.AccessToken}, nil
}

// Register creates an account. When email and password were supplied it
// then logs in with them; a failure of that login is logged and swallowed.
func (s *Store) Register(ctx context.Context, reg api.Registration) (*api.RegisterResponse, error) {
	resp, err := s.client.Register(ctx, reg)
	if err != nil {
		return nil, &RequestError{Op: "register", Message: api.MessageOr(err, "Registration failed"), Err: err}
	}

	if reg.Email != "" && reg.Password != "" {
		if _, err := s.Login(ctx, api.Credentials{Email: reg.Email, Password: reg.Password}); err != nil {
			s.logger.Warn("auto-login after registration failed", "email", reg.Email, "error", err)
		}
	}
	return resp, nil
}

// UpdateIdentity merges the non-empty fields of partial into the identity
// and re-persists the record.
func (s *Store) UpdateIdentity(ctx context.Context, partial api.User) error {
	s.mu.Lock()
	if s.credential == "" {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	merged := mergeUser(s.identity, partial)
	s.identity = merged
	token := s.credential
	s.mu.Unlock()

	return s.persist(ctx, merged, token)
}

// UpdateProfile sends a profile change to the backend, then merges the
// resulting name and phone into the identity. Password fields are sent but
// never stored.
func (s *Store) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*api.User, error) {
	current := s.Identity()
	if !s.IsAuthenticated() || current == nil || current.ID == "" {
		return nil, ErrNotAuthenticated
	}

	updated, err := s.client.UpdateUser(ctx, current.ID, update)
	if err != nil {
		return nil, &RequestError{Op: "update profile", Message: api.MessageOr(err, "Failed to update profile"), Err: err}
	}

	partial := api.User{Name: update.Name, Phone: api.Phone(update.Phone)}
	if updated != nil {
		if updated.Name != "" {
			partial.Name = updated.Name
		}
		if updated.Phone != "" {
			partial.Phone = updated.Phone
		}
	}
	if err := s.UpdateIdentity(ctx, partial); err != nil {
		return nil, err
	}
	return s.Identity(), nil
}

// Logout erases the persisted record and the in-memory session.
func (s *Store) Logout(ctx context.Context) error {
	was := s.clear()
	if err := s.storage.Delete(ctx, store.KeyAuth); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if was {
		s.publish(bus.Unauthenticated, bus.ReasonLogout)
		s.logger.Info("logged out")
	}
	return nil
}

// Expire ends the session after the backend rejected token. A rejection of
// a token other than the current credential is stale and ignored.
//
// The signature matches api.AuthRejectedHandler.
func (s *Store) Expire(ctx context.Context, token string) {
	s.mu.Lock()
	if s.credential == "" || (token != "" && token != s.credential) {
		s.mu.Unlock()
		return
	}
	s.identity = nil
	s.credential = ""
	s.mu.Unlock()

	if err := s.storage.Delete(ctx, store.KeyAuth); err != nil {
		s.logger.Error("could not erase expired session", "error", err)
	}
	s.publish(bus.Unauthenticated, bus.ReasonExpired)
	s.logger.Info("session expired")
}

// clear drops the in-memory session and reports whether one was held.
func (s *Store) clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.credential != ""
	s.identity = nil
	s.credential = ""
	return was
}

func (s *Store) persist(ctx context.Context, identity *api.User, token string) error {
	if err := s.storage.PutJSON(ctx, store.KeyAuth, Record{User: identity, Token: token}); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

func (s *Store) publish(kind bus.Kind, reason bus.Reason) {
	if s.events == nil {
		return
	}
	s.events.Publish(bus.Event{Kind: kind, Reason: reason})
}
