package cli

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bistro/internal/api"
)

func TestLogin_PersistsAcrossRuns(t *testing.T) {
	h := newCLI(t)

	res := h.run("login", "--email", annEmail, "--password", annPassword)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "Logged in as Ann <ann@example.com> (user)\n", res.stdout)

	var me api.User
	data(t, h.run("--format", "json", "whoami"), &me)
	assert.Equal(t, "Ann", me.Name)
	assert.Equal(t, annEmail, me.Email)
	assert.Equal(t, api.RoleUser, me.Role)
	assert.NotEmpty(t, me.ID)
}

func TestLogin_BadCredentials(t *testing.T) {
	h := newCLI(t)

	res := h.run("login", "--email", annEmail, "--password", "wrong")
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, "Error ["+CodeLoginFailed+"]: Invalid credentials")

	res = h.run("whoami")
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, notLoggedInMessage)
}

func TestLogin_ValidatedLocally(t *testing.T) {
	h := newCLI(t)

	res := h.run("login", "--email", "not-an-email")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "Error ["+CodeInvalidInput+"]: invalid input")
	assert.Contains(t, res.stderr, "  email: Please enter a valid email address")
	assert.Contains(t, res.stderr, "  password: Password is required")
	assert.Zero(t, h.fake.CountRequests(http.MethodPost, "/auth/login"))
}

func TestLogout(t *testing.T) {
	h := newCLI(t)
	h.login(t, annEmail, annPassword)

	res := h.run("logout")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "Logged out.\n", res.stdout)

	res = h.run("logout")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "Not logged in.\n", res.stdout)
}

func TestLogout_AfterRevokedSession(t *testing.T) {
	h := newCLI(t)
	h.login(t, annEmail, annPassword)
	h.fake.RevokeTokens()

	res := h.run("logout")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "Not logged in.\n", res.stdout)
}

func TestRegister_LogsIn(t *testing.T) {
	h := newCLI(t)

	res := h.run("register", "--name", "Cid", "--email", "cid@example.com", "--password", "Cc3$cccc", "--phone", "5551234567")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "Account created. Logged in as Cid <cid@example.com>\n", res.stdout)

	var me api.User
	data(t, h.run("--format", "json", "whoami"), &me)
	assert.Equal(t, "cid@example.com", me.Email)
	assert.Equal(t, api.Phone("5551234567"), me.Phone)
}

func TestRegister_Errors(t *testing.T) {
	h := newCLI(t)

	res := h.run("register", "--name", "Ann", "--email", annEmail, "--password", "Aa1!zzzz")
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, "Email already exists")

	res = h.run("register", "--name", "Dee", "--email", "dee@example.com", "--password", "weakpass")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "  password: ")

	res = h.run("register", "--name", "Dee", "--email", "dee@example.com", "--password", "Dd4%dddd", "--confirm-password", "Dd4%dddx")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "  confirmPassword: ")
}

func TestProfileUpdate(t *testing.T) {
	h := newCLI(t)
	h.login(t, annEmail, annPassword)

	res := h.run("profile", "update", "--phone", "5559876543")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "Profile updated.\n", res.stdout)

	var me api.User
	data(t, h.run("--format", "json", "whoami"), &me)
	assert.Equal(t, "Ann", me.Name)
	assert.Equal(t, api.Phone("5559876543"), me.Phone)
}

func TestProfileUpdate_PasswordChange(t *testing.T) {
	h := newCLI(t)
	h.login(t, annEmail, annPassword)

	res := h.run("profile", "update", "--phone", "5559876543",
		"--current-password", "nope", "--new-password", "Zz9!zzzz", "--confirm-password", "Zz9!zzzz")
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, "Current password is incorrect")

	res = h.run("profile", "update", "--phone", "5559876543",
		"--current-password", annPassword, "--new-password", "Zz9!zzzz", "--confirm-password", "Zz9!zzzz")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	require.Equal(t, ExitSuccess, h.run("logout").code)
	h.login(t, annEmail, "Zz9!zzzz")
}

func TestProfileUpdate_MissingPhone(t *testing.T) {
	h := newCLI(t)
	h.login(t, annEmail, annPassword)

	res := h.run("profile", "update", "--name", "Annie")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "  phone: Phone is required")
}
