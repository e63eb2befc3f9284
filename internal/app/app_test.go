package app

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/bus"
	"github.com/roach88/bistro/internal/cart"
	"github.com/roach88/bistro/internal/config"
	"github.com/roach88/bistro/internal/logs"
	"github.com/roach88/bistro/internal/testutil"
)

type harness struct {
	fake *testutil.FakeAPI
	cfg  *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("Ann", "ann@example.com", "Aa1!aaaa", "user")

	cfg := config.Default()
	cfg.API.BaseURL = fake.URL()
	cfg.API.Timeout = 5 * time.Second
	cfg.Storage.Path = filepath.Join(t.TempDir(), "state", "bistro.db")
	return &harness{fake: fake, cfg: cfg}
}

func (h *harness) start(t *testing.T) *App {
	t.Helper()
	a, err := Start(context.Background(), Options{Config: h.cfg, Logger: logs.Discard()})
	require.NoError(t, err)
	return a
}

func stop(t *testing.T, a *App) {
	t.Helper()
	require.NoError(t, a.Stop(context.Background()))
}

func login(t *testing.T, a *App) {
	t.Helper()
	_, err := a.Session.Login(context.Background(), api.Credentials{Email: "ann@example.com", Password: "Aa1!aaaa"})
	require.NoError(t, err)
}

func TestStart_RequiresConfig(t *testing.T) {
	_, err := Start(context.Background(), Options{})
	require.Error(t, err)
}

func TestStart_Anonymous(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	defer stop(t, a)

	assert.False(t, a.Session.IsAuthenticated())
	assert.False(t, a.Session.Initializing())
	assert.Equal(t, cart.Uninitialized, a.Cart.State())
	assert.Zero(t, h.fake.CountRequests(http.MethodGet, "/orders/cart"))
	assert.False(t, a.Poller.Running())
}

func TestStart_RestoresSessionAndLoadsCart(t *testing.T) {
	h := newHarness(t)
	item := h.fake.AddMenuItem("Pancakes", 5, "Breakfast")

	a := h.start(t)
	login(t, a)
	_, err := a.Cart.AddItem(context.Background(), item, 2)
	require.NoError(t, err)
	stop(t, a)

	a = h.start(t)
	defer stop(t, a)

	require.True(t, a.Session.IsAuthenticated())
	assert.Equal(t, "ann@example.com", a.Session.Identity().Email)
	assert.Equal(t, cart.Ready, a.Cart.State())
	assert.Equal(t, 2, a.Cart.ItemCount())
}

func TestStart_DeferCartLoad(t *testing.T) {
	h := newHarness(t)
	item := h.fake.AddMenuItem("Pancakes", 5, "Breakfast")

	a := h.start(t)
	login(t, a)
	_, err := a.Cart.AddItem(context.Background(), item, 2)
	require.NoError(t, err)
	stop(t, a)
	before := h.fake.CountRequests(http.MethodGet, "/orders/cart")

	a, err = Start(context.Background(), Options{Config: h.cfg, Logger: logs.Discard(), DeferCartLoad: true})
	require.NoError(t, err)
	defer stop(t, a)

	require.True(t, a.Session.IsAuthenticated())
	assert.Equal(t, cart.Uninitialized, a.Cart.State())
	assert.Equal(t, before, h.fake.CountRequests(http.MethodGet, "/orders/cart"))

	require.NoError(t, a.Cart.EnsureFetched(context.Background()))
	assert.Equal(t, 2, a.Cart.ItemCount())
	assert.Equal(t, before+1, h.fake.CountRequests(http.MethodGet, "/orders/cart"))
}

func TestStart_RevokedCredentialExpiresSession(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	login(t, a)
	stop(t, a)

	h.fake.RevokeTokens()

	a = h.start(t)
	defer stop(t, a)

	assert.False(t, a.Session.IsAuthenticated())
	assert.Equal(t, cart.Uninitialized, a.Cart.State())

	val, ok, err := a.Storage.Get(context.Background(), "auth")
	require.NoError(t, err)
	assert.False(t, ok, "stored record should be deleted, got %q", val)
}

func TestLogin_AfterStartLoadsCartInBackground(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	defer stop(t, a)

	login(t, a)

	require.Eventually(t, func() bool {
		return a.Cart.State() == cart.Ready
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, h.fake.CountRequests(http.MethodGet, "/orders/cart"))
}

func TestLogout_ResetsDependents(t *testing.T) {
	h := newHarness(t)
	h.fake.Notify("ann@example.com", "Order accepted", "Your order is on its way")

	a := h.start(t)
	login(t, a)
	stop(t, a)

	a = h.start(t)
	defer stop(t, a)
	require.Equal(t, cart.Ready, a.Cart.State())
	require.NoError(t, a.Notifications.Fetch(context.Background()))
	require.Len(t, a.Notifications.Notifications(), 1)

	require.NoError(t, a.Session.Logout(context.Background()))

	require.Eventually(t, func() bool {
		return a.Cart.State() == cart.Uninitialized && len(a.Notifications.Notifications()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListeners_ObserveRestoreExpiry(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	login(t, a)
	stop(t, a)
	h.fake.RevokeTokens()

	var seen []bus.Event
	a, err := Start(context.Background(), Options{
		Config: h.cfg,
		Logger: logs.Discard(),
		Listeners: []bus.Listener{func(_ context.Context, e bus.Event) error {
			seen = append(seen, e)
			return nil
		}},
	})
	require.NoError(t, err)
	defer stop(t, a)

	require.Len(t, seen, 2)
	assert.Equal(t, bus.Event{Kind: bus.Authenticated, Reason: bus.ReasonRestore}, seen[0])
	assert.Equal(t, bus.Event{Kind: bus.Unauthenticated, Reason: bus.ReasonExpired}, seen[1])
}
