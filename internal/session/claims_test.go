package session

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bistro/internal/api"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return token
}

func TestFallbackIdentity(t *testing.T) {
	tests := []struct {
		name  string
		token string
		email string
		role  api.Role
		want  api.User
	}{
		{
			name:  "opaque token defaults to user",
			token: "not-a-jwt",
			email: "a@b.com",
			want:  api.User{Email: "a@b.com", Role: api.RoleUser},
		},
		{
			name:  "response role wins over claim",
			token: signed(t, jwt.MapClaims{"sub": "u1", "role": "admin"}),
			email: "a@b.com",
			role:  api.RoleUser,
			want:  api.User{ID: "u1", Email: "a@b.com", Role: api.RoleUser},
		},
		{
			name:  "claims fill id and role",
			token: signed(t, jwt.MapClaims{"id": "u2", "role": "admin", "email": "x@y.z"}),
			want:  api.User{ID: "u2", Email: "x@y.z", Role: api.RoleAdmin},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fallbackIdentity(tt.token, tt.email, tt.role)
			assert.Equal(t, tt.want, *got)
		})
	}
}
