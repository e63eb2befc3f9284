// Package forms validates user input before it reaches the network.
//
// Each form normalizes its free text (Unicode NFC, trimmed), runs the
// validator/v10 struct rules plus a few rules that need more context, and
// returns either the request body for the backend or a *ValidationError
// mapping field names to the messages shown next to the inputs.
package forms

import (
	"errors"
	"reflect"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/bistro/internal/api"
)

// ValidationError maps form field names to user-facing messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Field returns the message for name, "" if the field is valid. It is safe
// to call on a nil error.
func (e *ValidationError) Field(name string) string {
	if e == nil {
		return ""
	}
	return e.Fields[name]
}

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
	specialChars  = "@$!%*?&"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their form name rather than the Go field name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "mail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "digits", func(fl validator.FieldLevel) bool {
		return digitsPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "strongpw", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	mustRegister(v, "payment", func(fl validator.FieldLevel) bool {
		m := fl.Field().String()
		return m == api.PaymentCashOnDelivery || m == api.PaymentCard
	})
	mustRegister(v, "category", func(fl validator.FieldLevel) bool {
		return slices.Contains(api.Categories, fl.Field().String())
	})
	mustRegister(v, "slot", func(fl validator.FieldLevel) bool {
		return ValidSlot(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// StrongPassword reports whether pw has a lowercase letter, an uppercase
// letter, a digit and one of @$!%*?&.
func StrongPassword(pw string) bool {
	var lower, upper, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}
	return lower && upper && digit && special
}

// clean NFC-normalizes and trims free text.
func clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// messages maps "field.tag" to the message for that failure.
type messages map[string]string

// check runs the struct rules on form and translates failures.
func check(form any, msgs messages) *ValidationError {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		panic(err)
	}

	out := &ValidationError{Fields: make(map[string]string)}
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out.Fields[field]; seen {
			continue
		}
		msg, ok := msgs[field+"."+fe.Tag()]
		if !ok {
			msg = field + " is invalid"
		}
		out.Fields[field] = msg
	}
	return out
}

// merge adds extra failures to verr, allocating it if needed. Existing
// messages win.
func merge(verr *ValidationError, extra map[string]string) *ValidationError {
	if len(extra) == 0 {
		return verr
	}
	if verr == nil {
		verr = &ValidationError{Fields: make(map[string]string)}
	}
	for k, v := range extra {
		if _, ok := verr.Fields[k]; !ok {
			verr.Fields[k] = v
		}
	}
	return verr
}

// result converts a possibly nil *ValidationError to error.
func result(verr *ValidationError) error {
	if verr == nil {
		return nil
	}
	return verr
}
