package middleware

import (
	"log/slog"
	"net/http"

	"botcraft/internal/auth"
	"botcraft/internal/httputil"
)

// SessionCookie is the cookie the dashboard stores its session token in.
const SessionCookie = "token"

// SessionAuth validates the dashboard session and stores the owner's ID in the
// request context. The token is read from "Authorization: Bearer" first and
// from the session cookie otherwise.
func SessionAuth(verifier auth.SessionVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "Not authorized, no token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				logger.Debug("session rejected", "path", r.URL.Path, "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, "Not authorized, token failed")
				return
			}

			next.ServeHTTP(w, httputil.WithUserID(r, claims.GetUserID()))
		})
	}
}

func sessionToken(r *http.Request) string {
	if token := httputil.BearerToken(r); token != "" {
		return token
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}
