package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bistro/internal/testutil"
)

func loggedIn(t *testing.T, fake *testutil.FakeAPI, email, password string) *Client {
	t.Helper()
	anon := New(fake.URL(), nil)
	resp, err := anon.Login(context.Background(), Credentials{Email: email, Password: password})
	require.NoError(t, err)
	return New(fake.URL(), staticToken(resp.AccessToken))
}

func TestResources_CartLifecycle(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("Ann", "a@b.com", "Aa1!aaaa", "user")
	soup := fake.AddMenuItem("Soup", 4, "Main Dishes")
	tea := fake.AddMenuItem("Tea", 2, "Drinks")
	c := loggedIn(t, fake, "a@b.com", "Aa1!aaaa")

	cart, err := c.AddToCart(ctx, soup, 1)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	cart, err = c.AddToCart(ctx, tea, 3)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, cart.TotalPrice, 0.001)

	cart, err = c.UpdateCartItem(ctx, soup, 2)
	require.NoError(t, err)
	assert.InDelta(t, 14.0, cart.TotalPrice, 0.001)

	mutation, err := c.RemoveFromCart(ctx, tea)
	require.NoError(t, err)
	require.NotNil(t, mutation.Cart)
	assert.Len(t, mutation.Cart.Items, 1)

	mutation, err = c.ClearCart(ctx)
	require.NoError(t, err)
	require.NotNil(t, mutation.Cart)
	assert.Empty(t, mutation.Cart.Items)
}

func TestResources_MenuCategoryFilter(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeAPI(t)
	fake.AddMenuItem("Soup", 4, "Main Dishes")
	fake.AddMenuItem("Tea", 2, "Drinks")
	c := New(fake.URL(), nil)

	all, err := c.ListMenu(ctx, CategoryAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Empty(t, fake.Requests()[0].Query)

	drinks, err := c.ListMenu(ctx, CategoryDrinks)
	require.NoError(t, err)
	require.Len(t, drinks, 1)
	assert.Equal(t, "Tea", drinks[0].Name)
	assert.NotEmpty(t, drinks[0].ID)
}

func TestResources_CheckoutAndOrders(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("Ann", "a@b.com", "pw", "user")
	soup := fake.AddMenuItem("Soup", 4, "Main Dishes")
	c := loggedIn(t, fake, "a@b.com", "pw")

	_, err := c.Checkout(ctx, CheckoutRequest{DeliveryAddress: "1 Main St", Phone: 5551234, PaymentMethod: PaymentCard})
	require.Error(t, err)
	assert.Equal(t, "Cart is empty", MessageOr(err, ""))

	_, err = c.AddToCart(ctx, soup, 2)
	require.NoError(t, err)

	order, err := c.Checkout(ctx, CheckoutRequest{DeliveryAddress: "1 Main St", Phone: 5551234, PaymentMethod: PaymentCard})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, Phone("5551234"), order.Phone)
	assert.False(t, order.CreatedAt.IsZero())

	orders, err := c.MyOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)

	require.NoError(t, c.DeleteOrder(ctx, order.ID))
	orders, err = c.MyOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestResources_AdminOrderStatus(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("Ann", "a@b.com", "pw", "user")
	fake.AddUser("Boss", "boss@b.com", "pw", "admin")
	soup := fake.AddMenuItem("Soup", 4, "Main Dishes")

	user := loggedIn(t, fake, "a@b.com", "pw")
	_, err := user.AddToCart(ctx, soup, 1)
	require.NoError(t, err)
	order, err := user.Checkout(ctx, CheckoutRequest{DeliveryAddress: "x", Phone: 1, PaymentMethod: PaymentCashOnDelivery})
	require.NoError(t, err)

	_, err = user.ListOrders(ctx)
	assert.Equal(t, http.StatusForbidden, StatusCode(err))

	admin := loggedIn(t, fake, "boss@b.com", "pw")
	updated, err := admin.UpdateOrderStatus(ctx, order.ID, StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, updated.Status)

	_, err = admin.UpdateOrderStatus(ctx, order.ID, StatusPending)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestResources_Notifications(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("Ann", "a@b.com", "pw", "user")
	first := fake.Notify("a@b.com", "Order accepted", "")
	fake.Notify("a@b.com", "", "Your table is ready")
	c := loggedIn(t, fake, "a@b.com", "pw")

	list, err := c.ListNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Your table is ready", list[0].Label())

	count, err := c.NotificationCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, c.DeleteNotification(ctx, first))
	count, err = c.NotificationCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, c.ClearNotifications(ctx))
	list, err = c.ListNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestResources_Bookings(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("Ann", "a@b.com", "pw", "user")
	c := loggedIn(t, fake, "a@b.com", "pw")

	req := BookingRequest{Date: "2030-01-02", Time: "19:30", NumberOfGuests: 2, TableNumber: 4, Name: "Ann", Phone: 5551234}
	booking, err := c.CreateBooking(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, booking.Status)

	_, err = c.CreateBooking(ctx, req)
	assert.Equal(t, http.StatusConflict, StatusCode(err))

	mine, err := c.MyBookings(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, c.DeleteBooking(ctx, booking.ID))
}

func TestResources_RegisterAndUpdateProfile(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeAPI(t)
	anon := New(fake.URL(), nil)

	resp, err := anon.Register(ctx, Registration{Name: "Ann", Email: "a@b.com", Password: "Aa1!aaaa", Phone: "5551234"})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.NotEmpty(t, resp.User.ID)

	_, err = anon.Register(ctx, Registration{Name: "Ann", Email: "a@b.com", Password: "Aa1!aaaa"})
	assert.Equal(t, http.StatusConflict, StatusCode(err))
	assert.Equal(t, "Email already exists", MessageOr(err, ""))

	c := loggedIn(t, fake, "a@b.com", "Aa1!aaaa")
	updated, err := c.UpdateUser(ctx, resp.User.ID, ProfileUpdate{Name: "Annie"})
	require.NoError(t, err)
	assert.Equal(t, "Annie", updated.Name)

	profile, err := c.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Annie", profile.Name)
	assert.Equal(t, Phone("5551234"), profile.Phone)
}
