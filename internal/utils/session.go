// Package utils provides helpers for the admin session cookie and
// password verification.
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminCookieName is the session cookie the admin middleware checks.
const AdminCookieName = "admin_auth"

// AdminSession is a signed session token plus its expiry, set as an
// HttpOnly cookie after a successful shared-password login.
type AdminSession struct {
	Token string
	Exp   time.Time
}

// NewAdminSession builds and signs an HS256 JWT marking the bearer as an
// authenticated admin. There is no per-user identity: admin access is a
// single shared password, so the token carries only a role and expiry.
func NewAdminSession(secret string, ttl time.Duration) (AdminSession, error) {
	exp := time.Now().UTC().Add(ttl)
	claims := jwt.MapClaims{
		"role": "admin",
		"exp":  exp.Unix(),
		"iat":  time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AdminSession{}, err
	}
	return AdminSession{Token: signed, Exp: exp}, nil
}

var errInvalidSession = errors.New("invalid admin session")

// VerifyAdminSession parses and validates a session token. It returns an
// error for a bad signature, a non-admin role or an expired token.
func VerifyAdminSession(secret, raw string) error {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidSession
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return errInvalidSession
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return errInvalidSession
	}
	if role, _ := claims["role"].(string); role != "admin" {
		return errInvalidSession
	}
	return nil
}
