package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Role is the authorization role of an identity.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Phone is a phone number that the backend may encode as a JSON number or string.
type Phone string

func (p *Phone) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Phone(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = Phone(n.String())
	return nil
}

// Int returns the phone as the integer the checkout and booking endpoints expect.
func (p Phone) Int() (int64, error) {
	return strconv.ParseInt(string(p), 10, 64)
}

// unmarshalWithID decodes data into v, then fills *id from "_id" when the
// payload had no "id".
func unmarshalWithID(data []byte, v any, id *string) error {
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	if *id != "" {
		return nil
	}
	var ref struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &ref); err != nil {
		return err
	}
	*id = ref.ID
	return nil
}

// User is an identity as returned by /users/profile and /users.
type User struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone Phone  `json:"phone,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	return unmarshalWithID(data, (*alias)(u), &u.ID)
}

// Credentials is the /auth/login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the /auth/login response body.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        Role   `json:"role,omitempty"`
}

// Registration is the /auth/register request body.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// RegisterResponse is the /auth/register response body.
type RegisterResponse struct {
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}

// ProfileUpdate is the PATCH /users/:id request body.
type ProfileUpdate struct {
	Name            string `json:"name,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Password        string `json:"password,omitempty"`
	CurrentPassword string `json:"currentPassword,omitempty"`
}

// Menu categories.
const (
	CategoryAll        = "All"
	CategoryBreakfast  = "Breakfast"
	CategoryMainDishes = "Main Dishes"
	CategoryDrinks     = "Drinks"
	CategoryDesserts   = "Desserts"
)

// Categories lists the menu categories in display order.
var Categories = []string{CategoryBreakfast, CategoryMainDishes, CategoryDrinks, CategoryDesserts}

// MenuItem is a dish on the menu.
type MenuItem struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Category    string  `json:"category,omitempty"`
	Image       string  `json:"image,omitempty"`
}

func (m *MenuItem) UnmarshalJSON(data []byte) error {
	type alias MenuItem
	return unmarshalWithID(data, (*alias)(m), &m.ID)
}

// MenuItemInput is the create/update body for /menu.
type MenuItemInput struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Price       float64 `json:"price" yaml:"price"`
	Category    string  `json:"category" yaml:"category"`
	Image       string  `json:"image,omitempty" yaml:"image,omitempty"`
}

// LineItem is one entry of a cart or order. The backend sends menuItemId
// either as a plain id or populated with the menu item.
type LineItem struct {
	MenuItemID string    `json:"menuItemId"`
	MenuItem   *MenuItem `json:"menuItem,omitempty"`
	Price      float64   `json:"price"`
	Quantity   int       `json:"quantity"`
}

func (li *LineItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		MenuItemID json.RawMessage `json:"menuItemId"`
		Price      float64         `json:"price"`
		Quantity   int             `json:"quantity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*li = LineItem{Price: raw.Price, Quantity: raw.Quantity}

	ref := bytes.TrimSpace(raw.MenuItemID)
	switch {
	case len(ref) == 0 || bytes.Equal(ref, []byte("null")):
	case ref[0] == '"':
		return json.Unmarshal(ref, &li.MenuItemID)
	default:
		var item MenuItem
		if err := json.Unmarshal(ref, &item); err != nil {
			return err
		}
		li.MenuItem = &item
		li.MenuItemID = item.ID
	}
	return nil
}

// Name returns the populated menu item name, or the id.
func (li LineItem) Name() string {
	if li.MenuItem != nil && li.MenuItem.Name != "" {
		return li.MenuItem.Name
	}
	return li.MenuItemID
}

// Cart is the server's cart snapshot.
type Cart struct {
	ID         string     `json:"id,omitempty"`
	Items      []LineItem `json:"items"`
	TotalPrice float64    `json:"totalPrice"`
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	type alias Cart
	return unmarshalWithID(data, (*alias)(c), &c.ID)
}

// CartMutation is the {message, cart} body returned by item removal and clear.
type CartMutation struct {
	Message string `json:"message,omitempty"`
	Cart    *Cart  `json:"cart,omitempty"`
}

// Payment methods accepted at checkout.
const (
	PaymentCashOnDelivery = "Cash on Delivery"
	PaymentCard           = "Card"
)

// CheckoutRequest is the /orders/checkout body.
type CheckoutRequest struct {
	DeliveryAddress string `json:"deliveryAddress"`
	Phone           int64  `json:"phone"`
	PaymentMethod   string `json:"paymentMethod"`
	Notes           string `json:"notes,omitempty"`
}

// Status is the lifecycle state shared by orders and bookings.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusAccepted   Status = "Accepted"
	StatusInProgress Status = "In Progress"
	StatusDelivered  Status = "Delivered"
	StatusRejected   Status = "Rejected"
)

var statusFlow = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusRejected},
	StatusAccepted:   {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusDelivered, StatusRejected},
	StatusDelivered:  nil,
	StatusRejected:   nil,
}

// NextStatuses returns the statuses an admin may move s to.
func (s Status) NextStatuses() []Status {
	return statusFlow[s]
}

// CanTransition reports whether next is reachable from s in one step.
func (s Status) CanTransition(next Status) bool {
	for _, candidate := range statusFlow[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Deletable reports whether the owner may delete an order or booking in status s.
func (s Status) Deletable() bool {
	return s == StatusPending || s == StatusRejected
}

// Order is a placed order.
type Order struct {
	ID              string     `json:"id,omitempty"`
	Items           []LineItem `json:"items,omitempty"`
	TotalPrice      float64    `json:"totalPrice"`
	Status          Status     `json:"status"`
	PaymentMethod   string     `json:"paymentMethod,omitempty"`
	DeliveryAddress string     `json:"deliveryAddress,omitempty"`
	Phone           Phone      `json:"phone,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"createdAt,omitempty"`
}

func (o *Order) UnmarshalJSON(data []byte) error {
	type alias Order
	return unmarshalWithID(data, (*alias)(o), &o.ID)
}

// Booking is a table reservation.
type Booking struct {
	ID             string    `json:"id,omitempty"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	NumberOfGuests int       `json:"numberOfGuests"`
	TableNumber    int       `json:"tableNumber"`
	Name           string    `json:"name,omitempty"`
	Phone          Phone     `json:"phone,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
}

func (b *Booking) UnmarshalJSON(data []byte) error {
	type alias Booking
	return unmarshalWithID(data, (*alias)(b), &b.ID)
}

// BookingRequest is the POST /bookings body.
type BookingRequest struct {
	Date           string `json:"date"`
	Time           string `json:"time"`
	NumberOfGuests int    `json:"numberOfGuests"`
	TableNumber    int    `json:"tableNumber"`
	Name           string `json:"name"`
	Phone          int64  `json:"phone"`
	Notes          string `json:"notes,omitempty"`
}

// Notification is a message pushed to the user by the backend.
type Notification struct {
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

func (n *Notification) UnmarshalJSON(data []byte) error {
	type alias Notification
	return unmarshalWithID(data, (*alias)(n), &n.ID)
}

// Label is the text shown when the notification is surfaced: the title,
// else the message, else a generic label.
func (n Notification) Label() string {
	if n.Title != "" {
		return n.Title
	}
	if n.Message != "" {
		return n.Message
	}
	return "New notification"
}

// NotificationCount is the /notifications/count body.
type NotificationCount struct {
	Count int `json:"count"`
}
