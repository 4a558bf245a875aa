package auth

import "botcraft/internal/domain/models"

// SessionVerifier validates dashboard session tokens.
// The middleware only sees this interface, so the signing scheme can change
// without touching the HTTP layer.
type SessionVerifier interface {
	// VerifyToken validates a JWT string and returns the parsed claims.
	// Invalid, expired or badly signed tokens return domain.ErrUnauthorized.
	VerifyToken(tokenString string) (*models.SessionClaims, error)

	// Close releases resources held by the verifier.
	Close() error
}
