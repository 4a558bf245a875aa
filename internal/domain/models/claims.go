package models

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the JWT issued to dashboard users.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	// UserID is set by issuers that do not use the sub claim.
	UserID string `json:"userId,omitempty"`
}

// GetUserID returns the authenticated user, preferring the sub claim.
func (c *SessionClaims) GetUserID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}
