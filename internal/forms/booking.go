package forms

import (
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/bistro/internal/api"
)

// Booking slots run every half hour from 18:00 to 23:30.
const (
	firstSlotHour = 18
	lastSlotHour  = 23
	maxPartySize  = 10
	maxTable      = 10
)

// Slots lists the bookable times in order.
func Slots() []string {
	var out []string
	for h := firstSlotHour; h <= lastSlotHour; h++ {
		out = append(out, fmt.Sprintf("%02d:00", h), fmt.Sprintf("%02d:30", h))
	}
	return out
}

// ValidSlot reports whether s is one of Slots.
func ValidSlot(s string) bool {
	t, err := time.Parse("15:04", s)
	if err != nil || t.Format("15:04") != s {
		return false
	}
	return t.Hour() >= firstSlotHour && t.Hour() <= lastSlotHour && t.Minute()%30 == 0
}

// Booking is the table reservation form.
type Booking struct {
	Date        string `form:"date" validate:"required,datetime=2006-01-02"`
	Time        string `form:"time" validate:"required,slot"`
	Guests      int    `form:"totalPerson" validate:"required,min=1,max=10"`
	TableNumber int    `form:"tableNumber" validate:"required,min=1,max=10"`
	Name        string `form:"name" validate:"required"`
	Phone       string `form:"phone" validate:"required,digits"`
	Notes       string `form:"notes"`
}

var bookingMessages = messages{
	"date.required":        "Date is required",
	"date.datetime":        "Date must be in YYYY-MM-DD format",
	"time.required":        "Time is required",
	"time.slot":            "Time must be a half-hour slot between 18:00 and 23:30",
	"totalPerson.required": "Number of guests is required",
	"totalPerson.min":      "Number of guests is required",
	"totalPerson.max":      fmt.Sprintf("At most %d guests per booking", maxPartySize),
	"tableNumber.required": "Table number is required",
	"tableNumber.min":      "Table number is required",
	"tableNumber.max":      fmt.Sprintf("Table number must be between 1 and %d", maxTable),
	"name.required":        "Name is required",
	"phone.required":       "Phone is required",
	"phone.digits":         "Phone number must contain only digits",
}

// Validate returns the booking body to send. now decides which dates are in
// the past; the comparison is by calendar day in now's location.
func (f Booking) Validate(now time.Time) (api.BookingRequest, error) {
	f.Date = clean(f.Date)
	f.Time = clean(f.Time)
	f.Name = clean(f.Name)
	f.Phone = clean(f.Phone)
	f.Notes = clean(f.Notes)

	verr := check(f, bookingMessages)

	if verr.Field("date") == "" {
		day, _ := time.ParseInLocation("2006-01-02", f.Date, now.Location())
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if day.Before(today) {
			verr = merge(verr, map[string]string{"date": "Booking date cannot be in the past"})
		}
	}

	var phone int64
	if verr.Field("phone") == "" {
		n, err := strconv.ParseInt(f.Phone, 10, 64)
		if err != nil {
			verr = merge(verr, map[string]string{"phone": "Phone number is too long"})
		}
		phone = n
	}
	if verr != nil {
		return api.BookingRequest{}, verr
	}

	return api.BookingRequest{
		Date:           f.Date,
		Time:           f.Time,
		NumberOfGuests: f.Guests,
		TableNumber:    f.TableNumber,
		Name:           f.Name,
		Phone:          phone,
		Notes:          f.Notes,
	}, nil
}
