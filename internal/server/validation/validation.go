// Package validation checks and normalizes client input before it reaches
// the services. A command returned without error is fully normalized:
// trimmed, stripped of angle brackets, email lower-cased, phone reduced to
// digits.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/saralseva/internal/common"
	"github.com/dmitrijs2005/saralseva/internal/server/models"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

const (
	MsgNameRequired     = "Name is required"
	MsgNameTooShort     = "Name must be at least 2 characters long"
	MsgEmailInvalid     = "Valid email is required"
	MsgPhoneInvalid     = "Valid 10-digit phone number is required"
	MsgPasswordWeak     = "Password must be at least 8 characters with uppercase, lowercase, and number"
	MsgPasswordTooLong  = "Password must be at most 72 bytes"
	MsgPasswordRequired = "Password is required"
)

var (
	emailRe     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe     = regexp.MustCompile(`^[0-9]{10}$`)
	phoneStrip  = regexp.MustCompile(`[\s()-]`)
	angleStrip  = strings.NewReplacer("<", "", ">", "")
	minNameLen  = 2
	minPassword = 8
)

// Errors lists human-readable validation failures. It matches
// common.ErrorValidation with errors.Is.
type Errors []string

func (e Errors) Error() string {
	return "validation failed: " + strings.Join(e, "; ")
}

func (e Errors) Is(target error) bool {
	return target == common.ErrorValidation
}

type RegisterRequest struct {
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

type RegisterCommand struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginCommand struct {
	Email    string
	Password string
}

// Register validates a registration. Either Name or FirstName/LastName may
// carry the display name; FirstName wins when both are present.
func Register(req RegisterRequest) (RegisterCommand, error) {
	var errs Errors

	name := Sanitize(req.Name)
	if first := Sanitize(req.FirstName); first != "" {
		name = models.JoinName(first, Sanitize(req.LastName))
	}
	switch {
	case name == "":
		errs = append(errs, MsgNameRequired)
	case utf8.RuneCountInString(name) < minNameLen:
		errs = append(errs, MsgNameTooShort)
	}

	email, ok := normalizeEmail(req.Email)
	if !ok {
		errs = append(errs, MsgEmailInvalid)
	}

	phone, ok := NormalizePhone(req.Phone)
	if !ok {
		errs = append(errs, MsgPhoneInvalid)
	}

	switch {
	case !strongPassword(req.Password):
		errs = append(errs, MsgPasswordWeak)
	case len(req.Password) > MaxPasswordBytes:
		errs = append(errs, MsgPasswordTooLong)
	}

	if len(errs) > 0 {
		return RegisterCommand{}, errs
	}
	return RegisterCommand{Name: name, Email: email, Phone: phone, Password: req.Password}, nil
}

// Login validates a login. The password is only checked for presence so
// that policy changes never lock out existing accounts.
func Login(req LoginRequest) (LoginCommand, error) {
	var errs Errors

	email, ok := normalizeEmail(req.Email)
	if !ok {
		errs = append(errs, MsgEmailInvalid)
	}
	if req.Password == "" {
		errs = append(errs, MsgPasswordRequired)
	}

	if len(errs) > 0 {
		return LoginCommand{}, errs
	}
	return LoginCommand{Email: email, Password: req.Password}, nil
}

// Sanitize trims s and removes angle brackets.
func Sanitize(s string) string {
	return strings.TrimSpace(angleStrip.Replace(strings.TrimSpace(s)))
}

// NormalizePhone strips spaces, parentheses and dashes and reports whether
// exactly ten digits remain.
func NormalizePhone(phone string) (string, bool) {
	p := phoneStrip.ReplaceAllString(phone, "")
	return p, phoneRe.MatchString(p)
}

func normalizeEmail(email string) (string, bool) {
	e := strings.ToLower(Sanitize(email))
	return e, emailRe.MatchString(e)
}

func strongPassword(p string) bool {
	if utf8.RuneCountInString(p) < minPassword {
		return false
	}
	var lower, upper, digit bool
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return lower && upper && digit
}
