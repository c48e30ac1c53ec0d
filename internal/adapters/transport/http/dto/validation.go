package dto

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var phoneRe = regexp.MustCompile(`^\+79\d{8}$`)

// ValidPhone accepts "+79" followed by exactly eight digits.
func ValidPhone(s string) bool {
	return phoneRe.MatchString(s)
}

// ValidPassword wants 8 to 64 characters with at least one digit and one
// lowercase latin letter.
func ValidPassword(s string) bool {
	if n := utf8.RuneCountInString(s); n < 8 || n > 64 {
		return false
	}
	var hasDigit, hasLower bool
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		}
	}
	return hasDigit && hasLower
}

type identified interface {
	identifiers() (email, phone *string)
}

func emailOrPhone(sl validator.StructLevel) {
	req, ok := sl.Current().Interface().(identified)
	if !ok {
		return
	}
	email, phone := req.identifiers()
	if blank(email) && blank(phone) {
		sl.ReportError(email, "email", "Email", "email_or_phone", "")
	}
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// Register installs the custom tags and the email-or-phone rule on v.
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return ValidPassword(fl.Field().String())
	}); err != nil {
		return err
	}
	v.RegisterStructValidation(emailOrPhone, RegisterRequest{}, LoginRequest{})
	return nil
}

var messages = map[string]string{
	"required":       "field required",
	"email":          "value is not a valid email address",
	"phone":          "phone number must match the +79XXXXXXXX format",
	"password":       "password must be 8-64 characters long and contain a digit and a lowercase letter",
	"email_or_phone": "either phone number or email must be provided",
	"min":            "value is too small",
	"max":            "value is too large",
}

// Describe turns a binding error into a single human readable message.
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "malformed request: " + err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed on %q", fe.Tag())
		}
		parts = append(parts, strings.ToLower(fe.Field())+": "+msg)
	}
	return strings.Join(parts, "; ")
}
