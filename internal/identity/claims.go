package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access-token fields the client relies on.
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt int64
}

// ParseClaims decodes an access token without verifying its signature. The
// signing secret belongs to the backend; the client only reads expiry and
// identity to schedule refreshes.
func ParseClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("parse access token: %w", err)
	}

	var c Claims
	if sub, err := mc.GetSubject(); err == nil {
		c.Subject = sub
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Unix()
	}
	if email, ok := mc["email"].(string); ok {
		c.Email = email
	}
	return c, nil
}

// fillFromClaims completes a session whose token response lacked expiry or user fields.
func fillFromClaims(s *Session) {
	if s == nil || s.AccessToken == "" || (s.ExpiresAt != 0 && s.User.ID != "") {
		return
	}
	c, err := ParseClaims(s.AccessToken)
	if err != nil {
		return
	}
	if s.ExpiresAt == 0 {
		s.ExpiresAt = c.ExpiresAt
	}
	if s.User.ID == "" {
		s.User.ID = c.Subject
	}
	if s.User.Email == "" {
		s.User.Email = c.Email
	}
}
