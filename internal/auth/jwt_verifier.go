package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"botcraft/internal/domain"
	"botcraft/internal/domain/models"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSVerifier verifies asymmetrically signed tokens against a JWKS endpoint.
type JWKSVerifier struct {
	jwks   keyfunc.Keyfunc
	logger *slog.Logger
}

// NewJWKSVerifier fetches public keys from jwksURL. Keys are cached and
// refreshed by keyfunc.
func NewJWKSVerifier(ctx context.Context, jwksURL string, logger *slog.Logger) (*JWKSVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "mode", "jwks", "jwks_url", jwksURL)
	return &JWKSVerifier{jwks: jwks, logger: logger}, nil
}

func (v *JWKSVerifier) VerifyToken(tokenString string) (*models.SessionClaims, error) {
	return parseSession(tokenString, v.jwks.Keyfunc, []string{"RS256", "ES256"}, v.logger)
}

// Close is a no-op; keyfunc manages its own refresh goroutine lifetime
// through the context passed at construction.
func (v *JWKSVerifier) Close() error {
	v.logger.Info("JWT verifier closed")
	return nil
}

// HMACVerifier verifies HS256 tokens signed with a shared secret, the way the
// dashboard's own sign-in service issues them.
type HMACVerifier struct {
	secret []byte
	logger *slog.Logger
}

// NewHMACVerifier returns a verifier for tokens signed with secret.
func NewHMACVerifier(secret string, logger *slog.Logger) (*HMACVerifier, error) {
	if secret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	logger.Info("JWT verifier initialized", "mode", "hmac")
	return &HMACVerifier{secret: []byte(secret), logger: logger}, nil
}

func (v *HMACVerifier) VerifyToken(tokenString string) (*models.SessionClaims, error) {
	keyFn := func(*jwt.Token) (interface{}, error) { return v.secret, nil }
	return parseSession(tokenString, keyFn, []string{"HS256"}, v.logger)
}

func (v *HMACVerifier) Close() error { return nil }

// NewSessionVerifier prefers JWKS when a URL is configured and falls back to
// the shared secret.
func NewSessionVerifier(ctx context.Context, jwksURL, secret string, logger *slog.Logger) (SessionVerifier, error) {
	if jwksURL != "" {
		return NewJWKSVerifier(ctx, jwksURL, logger)
	}
	if secret != "" {
		return NewHMACVerifier(secret, logger)
	}
	return nil, errors.New("either JWKS_URL or JWT_SECRET must be set")
}

func parseSession(tokenString string, keyFn jwt.Keyfunc, algs []string, logger *slog.Logger) (*models.SessionClaims, error) {
	// WithValidMethods rejects algorithm confusion before the key is used
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, keyFn,
		jwt.WithValidMethods(algs),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		logger.Debug("token parse failed", "error", err.Error())
		return nil, domain.ErrUnauthorized
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok {
		logger.Error("failed to extract claims from token")
		return nil, domain.ErrUnauthorized
	}
	if claims.GetUserID() == "" {
		logger.Debug("token missing subject claim")
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}
