package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// FakeAPI is an in-memory restaurant backend served over httptest.
//
// It implements the REST surface the client consumes, issues HS256 JWTs
// carrying sub/role/exp claims, and lets tests inject failures. Responses
// use "_id" keys and numeric phones, as the real backend does.
//
// Thread-safety: all state is guarded by mu; handlers run concurrently.
type FakeAPI struct {
	Server *httptest.Server

	mu            sync.Mutex
	seq           int
	users         map[string]*fakeUser // by id
	tokens        map[string]string    // token -> user id
	menu          map[string]*fakeMenuItem
	menuOrder     []string
	carts         map[string][]fakeLine // user id -> lines
	orders        []*fakeOrder
	bookings      []*fakeBooking
	notifications map[string][]*fakeNotification // user id -> newest first
	failures      []injectedFailure
	holds         []*Hold
	requests      []RecordedRequest

	omitCart           bool
	profileUnavailable bool
}

// RecordedRequest is one request seen by the fake.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
}

// Hold parks one matching request until Release is called.
type Hold struct {
	method  string
	path    string
	arrived chan struct{}
	release chan struct{}
	once    sync.Once
}

// Arrived is closed once the held request reaches the fake.
func (h *Hold) Arrived() <-chan struct{} {
	return h.arrived
}

// Release lets the held request proceed. It is safe to call more than once.
func (h *Hold) Release() {
	h.once.Do(func() { close(h.release) })
}

type injectedFailure struct {
	method  string
	path    string
	status  int
	message string
}

type fakeUser struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    int64  `json:"phone,omitempty"`
	Role     string `json:"role"`
	password string
}

type fakeMenuItem struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Image       string  `json:"image,omitempty"`
}

type fakeLine struct {
	MenuItemID string
	Price      float64
	Quantity   int
}

type fakeOrder struct {
	ID              string         `json:"_id"`
	UserID          string         `json:"user"`
	Items           []fakeLineJSON `json:"items"`
	TotalPrice      float64        `json:"totalPrice"`
	Status          string         `json:"status"`
	PaymentMethod   string         `json:"paymentMethod"`
	DeliveryAddress string         `json:"deliveryAddress"`
	Phone           int64          `json:"phone"`
	Notes           string         `json:"notes,omitempty"`
	CreatedAt       string         `json:"createdAt"`
}

type fakeBooking struct {
	ID             string `json:"_id"`
	UserID         string `json:"user"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	NumberOfGuests int    `json:"numberOfGuests"`
	TableNumber    int    `json:"tableNumber"`
	Name           string `json:"name"`
	Phone          int64  `json:"phone"`
	Notes          string `json:"notes,omitempty"`
	Status         string `json:"status"`
}

type fakeNotification struct {
	ID        string `json:"_id"`
	Title     string `json:"title,omitempty"`
	Message   string `json:"message,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type fakeLineJSON struct {
	MenuItemID *fakeMenuItem `json:"menuItemId"`
	Price      float64       `json:"price"`
	Quantity   int           `json:"quantity"`
}

type fakeCartJSON struct {
	ID         string         `json:"_id"`
	Items      []fakeLineJSON `json:"items"`
	TotalPrice float64        `json:"totalPrice"`
}

var orderFlow = map[string][]string{
	"Pending":     {"Accepted", "Rejected"},
	"Accepted":    {"In Progress", "Rejected"},
	"In Progress": {"Delivered", "Rejected"},
}

// FakeSigningKey signs the fake's tokens.
var FakeSigningKey = []byte("bistro-test-key")

// NewFakeAPI starts a fake backend that is shut down when t finishes.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		users:         make(map[string]*fakeUser),
		tokens:        make(map[string]string),
		menu:          make(map[string]*fakeMenuItem),
		carts:         make(map[string][]fakeLine),
		notifications: make(map[string][]*fakeNotification),
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(func() {
		f.mu.Lock()
		holds := f.holds
		f.holds = nil
		f.mu.Unlock()
		for _, h := range holds {
			h.Release()
		}
		f.Server.Close()
	})
	return f
}

// URL is the base URL of the fake.
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

func (f *FakeAPI) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Pre(f.record)

	e.POST("/auth/login", f.login)
	e.POST("/auth/register", f.register)

	e.GET("/users/profile", f.authed(f.profile))
	e.PATCH("/users/:id", f.authed(f.updateUser))
	e.GET("/users", f.admin(f.listUsers))

	e.GET("/menu", f.listMenu)
	e.GET("/menu/:id", f.getMenuItem)
	e.POST("/menu", f.admin(f.createMenuItem))
	e.PATCH("/menu/:id", f.admin(f.updateMenuItem))
	e.DELETE("/menu/:id", f.admin(f.deleteMenuItem))

	e.GET("/orders/cart", f.authed(f.getCart))
	e.POST("/orders/cart", f.authed(f.addToCart))
	e.PATCH("/orders/cart/items/:id", f.authed(f.updateCartItem))
	e.DELETE("/orders/cart/items/:id", f.authed(f.removeCartItem))
	e.DELETE("/orders/cart", f.authed(f.clearCart))
	e.POST("/orders/checkout", f.authed(f.checkout))
	e.GET("/orders/my-orders", f.authed(f.myOrders))
	e.DELETE("/orders/:id", f.authed(f.deleteOrder))
	e.GET("/orders", f.admin(f.listOrders))
	e.PATCH("/orders/:id", f.admin(f.updateOrderStatus))

	e.GET("/notifications", f.authed(f.listNotifications))
	e.GET("/notifications/count", f.authed(f.countNotifications))
	e.DELETE("/notifications/:id", f.authed(f.deleteNotification))
	e.DELETE("/notifications", f.authed(f.clearNotifications))

	e.POST("/bookings", f.authed(f.createBooking))
	e.GET("/bookings/my-bookings", f.authed(f.myBookings))
	e.GET("/bookings", f.admin(f.listBookings))
	e.PATCH("/bookings/:id", f.admin(f.updateBookingStatus))
	e.DELETE("/bookings/:id", f.authed(f.deleteBooking))

	return e
}

// --- test controls ---

// AddUser registers an account directly and returns its id.
func (f *FakeAPI) AddUser(name, email, password, role string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(name, email, password, role, 0)
}

// AddMenuItem adds a dish and returns its id.
func (f *FakeAPI) AddMenuItem(name string, price float64, category string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("menu")
	f.menu[id] = &fakeMenuItem{ID: id, Name: name, Description: name, Price: price, Category: category}
	f.menuOrder = append(f.menuOrder, id)
	return id
}

// Notify pushes a notification to the user with the given email and returns its id.
func (f *FakeAPI) Notify(email, title, message string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.userByEmailLocked(email)
	if user == nil {
		panic("FakeAPI.Notify: unknown user " + email)
	}
	id := f.nextID("notif")
	n := &fakeNotification{ID: id, Title: title, Message: message, CreatedAt: time.Now().UTC().Format(time.RFC3339)}
	f.notifications[user.ID] = append([]*fakeNotification{n}, f.notifications[user.ID]...)
	return id
}

// SetOmitCartInMutations makes item removal and clear answer {message} only.
func (f *FakeAPI) SetOmitCartInMutations(omit bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.omitCart = omit
}

// SetProfileUnavailable makes GET /users/profile answer 500.
func (f *FakeAPI) SetProfileUnavailable(unavailable bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileUnavailable = unavailable
}

// RevokeTokens invalidates every issued token; later requests get 401.
func (f *FakeAPI) RevokeTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]string)
}

// FailNext makes the next request matching method and path answer status
// with {"message": message}.
func (f *FakeAPI) FailNext(method, path string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, injectedFailure{method: method, path: path, status: status, message: message})
}

// HoldNext parks the next request matching method and path until the
// returned hold is released. Failures injected for the same request apply
// after it is released.
func (f *FakeAPI) HoldNext(method, path string) *Hold {
	h := &Hold{method: method, path: path, arrived: make(chan struct{}), release: make(chan struct{})}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holds = append(f.holds, h)
	return h
}

// Requests returns a copy of every recorded request.
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// CountRequests counts recorded requests matching method and path.
func (f *FakeAPI) CountRequests(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// OrderStatus returns the status of an order, "" if unknown.
func (f *FakeAPI) OrderStatus(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			return o.Status
		}
	}
	return ""
}

// SetOrderStatus forces an order into status.
func (f *FakeAPI) SetOrderStatus(id, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			o.Status = status
		}
	}
}

// CartQuantity returns the quantity of menuItemID in the cart of email.
func (f *FakeAPI) CartQuantity(email, menuItemID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.userByEmailLocked(email)
	if user == nil {
		return 0
	}
	for _, line := range f.carts[user.ID] {
		if line.MenuItemID == menuItemID {
			return line.Quantity
		}
	}
	return 0
}

// --- middleware ---

func (f *FakeAPI) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method:        req.Method,
			Path:          req.URL.Path,
			Query:         req.URL.RawQuery,
			Authorization: req.Header.Get("Authorization"),
			RequestID:     req.Header.Get("X-Request-ID"),
		})
		var hold *Hold
		for _, candidate := range f.holds {
			if candidate.method == req.Method && candidate.path == req.URL.Path {
				select {
				case <-candidate.arrived:
					continue
				default:
				}
				hold = candidate
				close(hold.arrived)
				break
			}
		}
		var failure *injectedFailure
		for i, candidate := range f.failures {
			if candidate.method == req.Method && candidate.path == req.URL.Path {
				failure = &f.failures[i]
				f.failures = append(f.failures[:i:i], f.failures[i+1:]...)
				break
			}
		}
		f.mu.Unlock()

		if hold != nil {
			<-hold.release
		}
		if failure != nil {
			return c.JSON(failure.status, echo.Map{"message": failure.message})
		}
		return next(c)
	}
}

type userHandler func(c echo.Context, user *fakeUser) error

func (f *FakeAPI) authed(h userHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		user := f.users[f.tokens[token]]
		f.mu.Unlock()
		if token == "" || user == nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
		}
		return h(c, user)
	}
}

func (f *FakeAPI) admin(h userHandler) echo.HandlerFunc {
	return f.authed(func(c echo.Context, user *fakeUser) error {
		if user.Role != "admin" {
			return c.JSON(http.StatusForbidden, echo.Map{"message": "Forbidden resource"})
		}
		return h(c, user)
	})
}

// --- auth & users ---

func (f *FakeAPI) login(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid body"})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.userByEmailLocked(body.Email)
	if user == nil || user.password != body.Password {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid credentials"})
	}
	token, err := f.issueTokenLocked(user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"access_token": token, "role": user.Role})
}

func (f *FakeAPI) register(c echo.Context) error {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Phone    string `json:"phone"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid body"})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userByEmailLocked(body.Email) != nil {
		return c.JSON(http.StatusConflict, echo.Map{"message": "Email already exists"})
	}
	phone, _ := strconv.ParseInt(body.Phone, 10, 64)
	id := f.addUserLocked(body.Name, body.Email, body.Password, "user", phone)
	return c.JSON(http.StatusCreated, echo.Map{"message": "User registered successfully", "user": f.users[id]})
}

func (f *FakeAPI) profile(c echo.Context, user *fakeUser) error {
	f.mu.Lock()
	unavailable := f.profileUnavailable
	f.mu.Unlock()
	if unavailable {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Profile service unavailable"})
	}
	return c.JSON(http.StatusOK, user)
}

func (f *FakeAPI) updateUser(c echo.Context, user *fakeUser) error {
	if c.Param("id") != user.ID && user.Role != "admin" {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "Forbidden resource"})
	}
	var body struct {
		Name            string `json:"name"`
		Phone           string `json:"phone"`
		Password        string `json:"password"`
		CurrentPassword string `json:"currentPassword"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid body"})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	target := f.users[c.Param("id")]
	if target == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
	}
	if body.Password != "" {
		if body.CurrentPassword != target.password {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Current password is incorrect"})
		}
		target.password = body.Password
	}
	if body.Name != "" {
		target.Name = body.Name
	}
	if body.Phone != "" {
		target.Phone, _ = strconv.ParseInt(body.Phone, 10, 64)
	}
	return c.JSON(http.StatusOK, target)
}

func (f *FakeAPI) listUsers(c echo.Context, _ *fakeUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*fakeUser, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return c.JSON(http.StatusOK, out)
}

// --- menu ---

func (f *FakeAPI) listMenu(c echo.Context) error {
	category := c.QueryParam("category")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*fakeMenuItem, 0, len(f.menuOrder))
	for _, id := range f.menuOrder {
		item := f.menu[id]
		if category == "" || item.Category == category {
			out = append(out, item)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (f *FakeAPI) getMenuItem(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.menu[c.Param("id")]
	if item == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Menu item not found"})
	}
	return c.JSON(http.StatusOK, item)
}

func (f *FakeAPI) createMenuItem(c echo.Context, _ *fakeUser) error {
	var body fakeMenuItem
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid body"})
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	body.ID = f.nextID("menu")
	f.menu[body.ID] = &body
	f.menuOrder = append(f.menuOrder, body.ID)
	return c.JSON(http.StatusCreated, body)
}

func (f *FakeAPI) updateMenuItem(c echo.Context, _ *fakeUser) error {
	var body fakeMenuItem
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid body"})
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.menu[c.Param("id")]
	if item == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Menu item not found"})
	}
	body.ID = item.ID
	*item = body
	return c.JSON(http.StatusOK, item)
}

func (f *FakeAPI) deleteMenuItem(c echo.Context, _ *fakeUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := c.Param("id")
	if f.menu[id] == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Menu item not found"})
	}
	delete(f.menu, id)
	for i, candidate := range f.menuOrder {
		if candidate == id {
			f.menuOrder = append(f.menuOrder[:i], f.menuOrder[i+1:]...)
			break
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Menu item deleted"})
}

// --- cart & orders ---

func (f *FakeAPI) getCart(c echo.Context, user *fakeUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return c.JSON(http.StatusOK, f.cartJSONLocked(user.ID))
}

func (f *FakeAPI) addToCart(c echo.Context, user *fakeUser) error {
	var body struct {
		MenuItemID string `json:"menuItemId"`
		Quantity   int    `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid body"})
	}
	if body.Quantity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Quantity must be at least 1"})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.menu[body.MenuItemID]
	if item == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Menu item not found"})
	}
	lines := f.carts[user.ID]
	found := false
	for i := range lines {
		if lines[i].MenuItemID == body.MenuItemID {
			lines[i].Quantity += body.Quantity
			found = true
		}
	}
	if !found {
		lines = append(lines, fakeLine{MenuItemID: item.ID, Price: item.Price, Quantity: body.Quantity})
	}
	f.carts[user.ID] = lines
	return c.JSON(http.StatusCreated, f.cartJSONLocked(user.ID))
}

func (f *FakeAPI) updateCartItem(c echo.Context, user *fakeUser) error {
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid body"})
	}
	if body.Quantity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Quantity must be at least 1"})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.carts[user.ID]
	for i := range lines {
		if lines[i].MenuItemID == c.Param("id") {
			lines[i].Quantity = body.Quantity
			return c.JSON(http.StatusOK, f.cartJSONLocked(user.ID))
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"message": "Item not found in cart"})
}

func (f *FakeAPI) removeCartItem(c echo.Context, user *fakeUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.carts[user.ID]
	for i := range lines {
		if lines[i].MenuItemID == c.Param("id") {
			f.carts[user.ID] = append(lines[:i:i], lines[i+1:]...)
			return c.JSON(http.StatusOK, f.mutationLocked(user.ID, "Item removed from cart"))
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"message": "Item not found in cart"})
}

func (f *FakeAPI) clearCart(c echo.Context, user *fakeUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, user.ID)
	return c.JSON(http.StatusOK, f.mutationLocked(user.ID, "Cart cleared"))
}

func (f *FakeAPI) checkout(c echo.Context, user *fakeUser) error {
	var body struct {
		DeliveryAddress string `json:"deliveryAddress"`
		Phone           int64  `json:"phone"`
		PaymentMethod   string `json:"paymentMethod"`
		Notes           string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid body"})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.carts[user.ID]) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Cart is empty"})
	}
	cart := f.cartJSONLocked(user.ID)
	order := &fakeOrder{
		ID:              f.nextID("order"),
		UserID:          user.ID,
		Items:           cart.Items,
		TotalPrice:      cart.TotalPrice,
		Status:          "Pending",
		PaymentMethod:   body.PaymentMethod,
		DeliveryAddress: body.DeliveryAddress,
		Phone:           body.Phone,
		Notes:           body.Notes,
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	f.orders = append(f.orders, order)
	delete(f.carts, user.ID)
	return c.JSON(http.StatusCreated, order)
}

func (f *FakeAPI) myOrders(c echo.Context, user *fakeUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*fakeOrder, 0)
	for _, o := range f.orders {
		if o.UserID == user.ID {
			out = append(out, o)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (f *FakeAPI) deleteOrder(c echo.Context, user *fakeUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, o := range f.orders {
		if o.ID != c.Param("id") {
			continue
		}
		if o.UserID != user.ID && user.Role != "admin" {
			return c.JSON(http.StatusForbidden, echo.Map{"message": "Forbidden resource"})
		}
		if o.Status != "Pending" && o.Status != "Rejected" {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Order cannot be deleted in status " + o.Status})
		}
		f.orders = append(f.orders[:i], f.orders[i+1:]...)
		return c.JSON(http.StatusOK, echo.Map{"message": "Order deleted"})
	}
	return c.JSON(http.StatusNotFound, echo.Map{"message": "Order not found"})
}

func (f *FakeAPI) listOrders(c echo.Context, _ *fakeUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return c.JSON(http.StatusOK, f.orders)
}

func (f *FakeAPI) updateOrderStatus(c echo.Context, _ *fakeUser) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid body"})
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == c.Param("id") {
			if !allowed(o.Status, body.Status) {
				return c.JSON(http.StatusBadRequest, echo.Map{"message": fmt.Sprintf("Cannot move order from %s to %s", o.Status, body.Status)})
			}
			o.Status = body.Status
			return c.JSON(http.StatusOK, o)
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"message": "Order not found"})
}

// --- notifications ---

func (f *FakeAPI) listNotifications(c echo.Context, user *fakeUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.notifications[user.ID]
	if out == nil {
		out = []*fakeNotification{}
	}
	return c.JSON(http.StatusOK, out)
}

func (f *FakeAPI) countNotifications(c echo.Context, user *fakeUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return c.JSON(http.StatusOK, echo.Map{"count": len(f.notifications[user.ID])})
}

func (f *FakeAPI) deleteNotification(c echo.Context, user *fakeUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.notifications[user.ID]
	for i, n := range list {
		if n.ID == c.Param("id") {
			f.notifications[user.ID] = append(list[:i:i], list[i+1:]...)
			return c.JSON(http.StatusOK, echo.Map{"message": "Notification deleted"})
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"message": "Notification not found"})
}

func (f *FakeAPI) clearNotifications(c echo.Context, user *fakeUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.notifications, user.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "All notifications deleted"})
}

// --- bookings ---

func (f *FakeAPI) createBooking(c echo.Context, user *fakeUser) error {
	var body fakeBooking
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid body"})
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.Date == body.Date && b.Time == body.Time && b.TableNumber == body.TableNumber && b.Status != "Rejected" {
			return c.JSON(http.StatusConflict, echo.Map{"message": "Table already booked for this time"})
		}
	}
	body.ID = f.nextID("booking")
	body.UserID = user.ID
	body.Status = "Pending"
	f.bookings = append(f.bookings, &body)
	return c.JSON(http.StatusCreated, body)
}

func (f *FakeAPI) myBookings(c echo.Context, user *fakeUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*fakeBooking, 0)
	for _, b := range f.bookings {
		if b.UserID == user.ID {
			out = append(out, b)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (f *FakeAPI) listBookings(c echo.Context, _ *fakeUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return c.JSON(http.StatusOK, f.bookings)
}

func (f *FakeAPI) updateBookingStatus(c echo.Context, _ *fakeUser) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid body"})
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.ID == c.Param("id") {
			if !allowed(b.Status, body.Status) {
				return c.JSON(http.StatusBadRequest, echo.Map{"message": fmt.Sprintf("Cannot move booking from %s to %s", b.Status, body.Status)})
			}
			b.Status = body.Status
			return c.JSON(http.StatusOK, b)
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"message": "Booking not found"})
}

func (f *FakeAPI) deleteBooking(c echo.Context, user *fakeUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.bookings {
		if b.ID != c.Param("id") {
			continue
		}
		if b.UserID != user.ID && user.Role != "admin" {
			return c.JSON(http.StatusForbidden, echo.Map{"message": "Forbidden resource"})
		}
		if b.Status != "Pending" && b.Status != "Rejected" {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Booking cannot be deleted in status " + b.Status})
		}
		f.bookings = append(f.bookings[:i], f.bookings[i+1:]...)
		return c.JSON(http.StatusOK, echo.Map{"message": "Booking deleted"})
	}
	return c.JSON(http.StatusNotFound, echo.Map{"message": "Booking not found"})
}

// --- helpers (callers hold mu) ---

func (f *FakeAPI) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *FakeAPI) addUserLocked(name, email, password, role string, phone int64) string {
	id := f.nextID("user")
	f.users[id] = &fakeUser{ID: id, Name: name, Email: email, Phone: phone, Role: role, password: password}
	return id
}

func (f *FakeAPI) userByEmailLocked(email string) *fakeUser {
	for _, u := range f.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (f *FakeAPI) issueTokenLocked(user *fakeUser) (string, error) {
	f.seq++
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"jti":  strconv.Itoa(f.seq),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(FakeSigningKey)
	if err != nil {
		return "", err
	}
	f.tokens[token] = user.ID
	return token, nil
}

func (f *FakeAPI) cartJSONLocked(userID string) fakeCartJSON {
	cart := fakeCartJSON{ID: "cart-" + userID, Items: []fakeLineJSON{}}
	for _, line := range f.carts[userID] {
		item := f.menu[line.MenuItemID]
		if item == nil {
			item = &fakeMenuItem{ID: line.MenuItemID}
		}
		cart.Items = append(cart.Items, fakeLineJSON{MenuItemID: item, Price: line.Price, Quantity: line.Quantity})
		cart.TotalPrice += line.Price * float64(line.Quantity)
	}
	return cart
}

func (f *FakeAPI) mutationLocked(userID, message string) echo.Map {
	if f.omitCart {
		return echo.Map{"message": message}
	}
	return echo.Map{"message": message, "cart": f.cartJSONLocked(userID)}
}

func allowed(from, to string) bool {
	for _, candidate := range orderFlow[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
