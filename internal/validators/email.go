// Package validators holds checks shared by the registration and profile
// handlers.
package validators

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrEmailDomain  = errors.New("email domain does not accept mail")
)

var validate = validator.New()

// CanonicalEmail is the stored form of an address: trimmed and lowercased.
func CanonicalEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// CheckEmail canonicalizes raw and validates its syntax. With checkDomain
// the domain must publish MX or address records.
func CheckEmail(ctx context.Context, raw string, checkDomain bool) (string, error) {
	email := CanonicalEmail(raw)
	if err := validate.Var(email, "required,email"); err != nil {
		return "", ErrInvalidEmail
	}
	if !checkDomain {
		return email, nil
	}

	domain := email[strings.LastIndex(email, "@")+1:]
	if mx, err := net.DefaultResolver.LookupMX(ctx, domain); err == nil && len(mx) > 0 {
		return email, nil
	}
	if ips, err := net.DefaultResolver.LookupIPAddr(ctx, domain); err == nil && len(ips) > 0 {
		return email, nil
	}
	return "", ErrEmailDomain
}
