package forms

import (
	"regexp"
	"strings"

	"github.com/roach88/bistro/internal/api"
)

const (
	msgPasswordLength = "Password must be at least 6 characters"
	msgPasswordRules  = "Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character"
	msgConfirm        = "Please confirm your password"
	msgMismatch       = "Passwords do not match"
)

// Login is the login form.
type Login struct {
	Email    string `form:"email" validate:"required,mail"`
	Password string `form:"password" validate:"required"`
}

var loginMessages = messages{
	"email.required":    "Email is required",
	"email.mail":        "Please enter a valid email address",
	"password.required": "Password is required",
}

// Validate returns the credentials to send.
func (f Login) Validate() (api.Credentials, error) {
	f.Email = clean(f.Email)
	if verr := check(f, loginMessages); verr != nil {
		return api.Credentials{}, verr
	}
	return api.Credentials{Email: f.Email, Password: f.Password}, nil
}

// Register is the account creation form.
type Register struct {
	Name            string `form:"name" validate:"required"`
	Email           string `form:"email" validate:"required,mail"`
	Password        string `form:"password" validate:"required,min=6,strongpw"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=Password"`
	Phone           string `form:"phone" validate:"omitempty,digits"`
}

var registerMessages = messages{
	"name.required":            "Name is required",
	"email.required":           "Email is required",
	"email.mail":               "Please enter a valid email address",
	"password.required":        "Password is required",
	"password.min":             msgPasswordLength,
	"password.strongpw":        msgPasswordRules,
	"confirmPassword.required": msgConfirm,
	"confirmPassword.eqfield":  msgMismatch,
	"phone.digits":             "Phone number must contain only digits",
}

// Validate returns the registration body to send.
func (f Register) Validate() (api.Registration, error) {
	f.Name = clean(f.Name)
	f.Email = clean(f.Email)
	f.Phone = clean(f.Phone)
	if verr := check(f, registerMessages); verr != nil {
		return api.Registration{}, verr
	}
	return api.Registration{Name: f.Name, Email: f.Email, Password: f.Password, Phone: f.Phone}, nil
}

// Profile is the profile edit form. The password fields are optional; filling
// any of them asks for a password change.
type Profile struct {
	Name            string `form:"name" validate:"required"`
	Phone           string `form:"phone" validate:"required"`
	CurrentPassword string `form:"currentPassword"`
	NewPassword     string `form:"newPassword"`
	ConfirmPassword string `form:"confirmPassword"`
}

var profileMessages = messages{
	"name.required":  "Name is required",
	"phone.required": "Phone is required",
}

var profilePhonePattern = regexp.MustCompile(`^[0-9]{8,15}$`)

var phoneSeparators = strings.NewReplacer("-", "", " ", "")

// Validate returns the profile update to send. The phone is sent with
// separators stripped.
func (f Profile) Validate() (api.ProfileUpdate, error) {
	f.Name = clean(f.Name)
	f.Phone = clean(f.Phone)
	verr := check(f, profileMessages)

	extra := make(map[string]string)
	phone := phoneSeparators.Replace(f.Phone)
	if f.Phone != "" && !profilePhonePattern.MatchString(phone) {
		extra["phone"] = "Phone must be 8-15 digits"
	}

	changing := f.CurrentPassword != "" || f.NewPassword != "" || f.ConfirmPassword != ""
	if changing {
		if f.CurrentPassword == "" {
			extra["currentPassword"] = "Current password is required to change password"
		}
		switch {
		case f.NewPassword == "":
			extra["newPassword"] = "New password is required"
		case validate.Var(f.NewPassword, "min=6") != nil:
			extra["newPassword"] = msgPasswordLength
		case validate.Var(f.NewPassword, "strongpw") != nil:
			extra["newPassword"] = msgPasswordRules
		}
		switch {
		case f.ConfirmPassword == "":
			extra["confirmPassword"] = msgConfirm
		case f.ConfirmPassword != f.NewPassword:
			extra["confirmPassword"] = msgMismatch
		}
	}

	if verr = merge(verr, extra); verr != nil {
		return api.ProfileUpdate{}, verr
	}

	update := api.ProfileUpdate{Name: f.Name, Phone: phone}
	if changing {
		update.Password = f.NewPassword
		update.CurrentPassword = f.CurrentPassword
	}
	return update, nil
}
