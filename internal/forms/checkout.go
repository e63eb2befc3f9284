package forms

import (
	"strconv"

	"github.com/roach88/bistro/internal/api"
)

// Checkout is the order placement form.
type Checkout struct {
	DeliveryAddress string `form:"deliveryAddress" validate:"required"`
	Phone           string `form:"phone" validate:"required,digits"`
	PaymentMethod   string `form:"paymentMethod" validate:"required,payment"`
	Notes           string `form:"notes"`
}

var checkoutMessages = messages{
	"deliveryAddress.required": "Delivery address is required",
	"phone.required":           "Phone number is required",
	"phone.digits":             "Phone number must contain only digits",
	"paymentMethod.required":   "Payment method is required",
	"paymentMethod.payment":    `Payment method must be either "Cash on Delivery" or "Card"`,
}

// Validate returns the checkout body to send, with the phone as an integer.
func (f Checkout) Validate() (api.CheckoutRequest, error) {
	f.DeliveryAddress = clean(f.DeliveryAddress)
	f.Phone = clean(f.Phone)
	f.PaymentMethod = clean(f.PaymentMethod)
	f.Notes = clean(f.Notes)

	verr := check(f, checkoutMessages)
	var phone int64
	if verr.Field("phone") == "" {
		n, err := strconv.ParseInt(f.Phone, 10, 64)
		if err != nil {
			verr = merge(verr, map[string]string{"phone": "Phone number is too long"})
		}
		phone = n
	}
	if verr != nil {
		return api.CheckoutRequest{}, verr
	}

	return api.CheckoutRequest{
		DeliveryAddress: f.DeliveryAddress,
		Phone:           phone,
		PaymentMethod:   f.PaymentMethod,
		Notes:           f.Notes,
	}, nil
}
