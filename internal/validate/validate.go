package validate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	FullName    string
	PhoneNumber string
}

func Email(email string) bool {
	return emailRe.MatchString(email)
}

// Password requires at least 8 characters with a lowercase letter, an
// uppercase letter, a digit and a symbol. Underscore does not count as a
// symbol.
func Password(password string) bool {
	if utf8.RuneCountInString(password) < 8 {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r) && r != '_':
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

// RegisterInputErrors checks every rule independently and reports all
// violations together, keyed by field name. An empty map means valid input.
// Malformed input is a normal outcome here, never an error return.
func RegisterInputErrors(in RegisterInput) map[string]string {
	errs := make(map[string]string)

	if strings.TrimSpace(in.Username) == "" {
		errs["username"] = "username is required"
	}

	if strings.TrimSpace(in.Email) == "" {
		errs["email"] = "email is required"
	} else if !Email(in.Email) {
		errs["email"] = "email is not valid"
	}

	if strings.TrimSpace(in.Password) == "" {
		errs["password"] = "password is required"
	} else if !Password(in.Password) {
		errs["password"] = "password is too weak: minimum 8 characters with uppercase, lowercase, digit and symbol"
	}

	if strings.TrimSpace(in.FullName) == "" {
		errs["full_name"] = "full name is required"
	}

	return errs
}
