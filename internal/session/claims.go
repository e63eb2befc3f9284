package session

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/roach88/bistro/internal/api"
)

// fallbackIdentity builds the minimal identity used when the profile cannot
// be fetched after login. The token is decoded without verification; the
// client never holds the signing key and only reads display hints from it.
func fallbackIdentity(token, email string, role api.Role) *api.User {
	u := &api.User{Email: email, Role: role}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if sub, ok := claims["sub"].(string); ok && sub != "" {
			u.ID = sub
		} else if id, ok := claims["id"].(string); ok {
			u.ID = id
		}
		if u.Role == "" {
			if r, ok := claims["role"].(string); ok {
				u.Role = api.Role(r)
			}
		}
		if u.Email == "" {
			if e, ok := claims["email"].(string); ok {
				u.Email = e
			}
		}
	}

	if u.Role == "" {
		u.Role = api.RoleUser
	}
	return u
}
