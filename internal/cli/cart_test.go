package cli

import (
	"net/http"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartShow_Golden(t *testing.T) {
	h := newCLI(t)
	pancakes := h.fake.AddMenuItem("Pancakes", 5, "Breakfast")
	lemonade := h.fake.AddMenuItem("Lemonade", 2.5, "Drinks")
	h.login(t, annEmail, annPassword)

	require.Equal(t, ExitSuccess, h.run("cart", "add", pancakes, "-q", "2").code)
	require.Equal(t, ExitSuccess, h.run("cart", "add", lemonade).code)

	res := h.run("cart", "show")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "cart_show", []byte(res.stdout))
}

func TestCartShow_Empty(t *testing.T) {
	h := newCLI(t)
	h.login(t, annEmail, annPassword)

	res := h.run("cart", "show")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "Your cart is empty.\n", res.stdout)
}

func TestCart_RequiresLogin(t *testing.T) {
	h := newCLI(t)
	item := h.fake.AddMenuItem("Pancakes", 5, "Breakfast")

	res := h.run("cart", "add", item)
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, notLoggedInMessage)
	assert.Zero(t, h.fake.CountRequests(http.MethodPost, "/orders/cart"))
}

func TestCommands_LoadCartOnlyWhenNeeded(t *testing.T) {
	h := newCLI(t)
	h.fake.AddMenuItem("Pancakes", 5, "Breakfast")
	h.login(t, annEmail, annPassword)

	for _, args := range [][]string{
		{"menu", "list"},
		{"whoami"},
		{"bookings", "slots"},
		{"orders", "list"},
		{"logout"},
	} {
		res := h.run(args...)
		require.Equal(t, ExitSuccess, res.code, "%v: %s", args, res.stderr)
	}
	assert.Zero(t, h.fake.CountRequests(http.MethodGet, "/orders/cart"))
}

func TestCart_Lifecycle(t *testing.T) {
	h := newCLI(t)
	pancakes := h.fake.AddMenuItem("Pancakes", 5, "Breakfast")
	lemonade := h.fake.AddMenuItem("Lemonade", 2.5, "Drinks")
	h.login(t, annEmail, annPassword)

	res := h.run("cart", "add", pancakes)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "Added 1 x Pancakes. Cart: 1 item, total $5.00\n", res.stdout)

	res = h.run("cart", "add", lemonade, "--quantity", "2")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "Added 2 x Lemonade. Cart: 3 items, total $10.00\n", res.stdout)

	res = h.run("cart", "update", pancakes, "3")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "Set Pancakes to 3. Cart: 5 items, total $20.00\n", res.stdout)
	assert.Equal(t, 3, h.fake.CartQuantity(annEmail, pancakes))

	res = h.run("cart", "remove", lemonade)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "Removed Lemonade. Cart: 3 items, total $15.00\n", res.stdout)

	var cart cartView
	data(t, h.run("--format", "json", "cart", "show"), &cart)
	assert.Equal(t, 3, cart.ItemCount)
	assert.InDelta(t, 15.0, cart.TotalPrice, 0.001)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, pancakes, cart.Items[0].MenuItemID)

	res = h.run("cart", "clear")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "Cart cleared. Cart: 0 items, total $0.00\n", res.stdout)
	assert.Zero(t, h.fake.CartQuantity(annEmail, pancakes))
}

func TestCart_QuantityValidatedLocally(t *testing.T) {
	h := newCLI(t)
	item := h.fake.AddMenuItem("Pancakes", 5, "Breakfast")
	h.login(t, annEmail, annPassword)

	res := h.run("cart", "add", item, "-q", "0")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "quantity must be at least 1")

	res = h.run("cart", "update", item, "two")
	assert.Equal(t, ExitCommandError, res.code)

	assert.Zero(t, h.fake.CountRequests(http.MethodPost, "/orders/cart"))
}

func TestCart_UnknownItemShowsServerMessage(t *testing.T) {
	h := newCLI(t)
	h.login(t, annEmail, annPassword)

	res := h.run("cart", "add", "menu-404")
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, "Error ["+CodeRequestFailed+"]: Menu item not found")
}

func TestCart_RevokedSessionReportsExpiry(t *testing.T) {
	h := newCLI(t)
	h.login(t, annEmail, annPassword)
	h.fake.RevokeTokens()

	res := h.run("cart", "show")
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, "Error ["+CodeSessionExpired+"]: "+sessionExpiredMessage)

	// The stale record is gone; the next command just sees no session.
	res = h.run("cart", "show")
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, notLoggedInMessage)
}
