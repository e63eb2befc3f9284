package session

import (
	"context"
	"errors"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/store"
)

// Record is the persisted session: identity plus credential.
type Record struct {
	User  *api.User `json:"user"`
	Token string    `json:"token"`
}

// Storage is the durable key/value store the session persists into.
type Storage interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	PutJSON(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
}

// StoredToken returns a TokenSource that reads the credential from the
// persisted record on every call. A missing or malformed record yields "".
func StoredToken(storage Storage) api.TokenSource {
	return api.TokenSourceFunc(func(ctx context.Context) (string, error) {
		var rec Record
		ok, err := storage.GetJSON(ctx, store.KeyAuth, &rec)
		var corrupt *store.CorruptError
		if errors.As(err, &corrupt) {
			return "", nil
		}
		if err != nil || !ok {
			return "", err
		}
		return rec.Token, nil
	})
}

func cloneUser(u *api.User) *api.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// mergeUser copies the non-empty fields of partial over base.
func mergeUser(base *api.User, partial api.User) *api.User {
	out := cloneUser(base)
	if out == nil {
		out = &api.User{}
	}
	if partial.ID != "" {
		out.ID = partial.ID
	}
	if partial.Name != "" {
		out.Name = partial.Name
	}
	if partial.Email != "" {
		out.Email = partial.Email
	}
	if partial.Phone != "" {
		out.Phone = partial.Phone
	}
	if partial.Role != "" {
		out.Role = partial.Role
	}
	return out
}
