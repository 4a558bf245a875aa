package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"botcraft/internal/auth"
	"botcraft/internal/middleware"

	"github.com/rs/cors"
)

// publicPrefix marks routes called from third-party pages by the widget.
const publicPrefix = "/api/public/"

// Routes bundles the handlers and settings the router needs.
type Routes struct {
	Bots     *BotHandler
	Queries  *QueryHandler
	Widget   *WidgetHandler
	Accounts *AccountHandler
	Health   *HealthHandler

	Verifier auth.SessionVerifier
	// DashboardOrigins may send credentialed requests to owner routes.
	DashboardOrigins []string
	Logger           *slog.Logger
}

// NewRouter builds the full HTTP handler.
// Order: Recovery → RequestLogger → CORS → (session auth) → routes
func NewRouter(rt Routes) http.Handler {
	mux := http.NewServeMux()
	session := middleware.SessionAuth(rt.Verifier, rt.Logger)
	owner := func(fn http.HandlerFunc) http.Handler { return session(fn) }

	mux.HandleFunc("GET /health", rt.Health.Health)

	// Bot routes (session)
	mux.Handle("POST /api/bots", owner(rt.Bots.CreateBot))
	mux.Handle("GET /api/bots", owner(rt.Bots.ListBots))
	mux.Handle("GET /api/bots/{id}", owner(rt.Bots.GetBot))
	mux.Handle("DELETE /api/bots/{id}", owner(rt.Bots.DeleteBot))
	mux.Handle("PATCH /api/bots/{id}/customization", owner(rt.Bots.UpdateCustomization))
	mux.Handle("PATCH /api/bots/{id}/status", owner(rt.Bots.UpdateStatus))
	mux.Handle("POST /api/bots/{id}/demo", owner(rt.Bots.AskDemo))

	// Account routes (session)
	mux.Handle("GET /api/users/me/dashboard", owner(rt.Accounts.Dashboard))
	mux.Handle("POST /api/billing/verify", owner(rt.Accounts.VerifyPayment))

	// Public routes (API key or none)
	mux.HandleFunc("POST /api/public/query", rt.Queries.Ask)
	mux.HandleFunc("GET /api/public/widget-config", rt.Widget.Config)
	mux.HandleFunc("GET /api/public/widget.js", rt.Widget.Script)

	publicCORS := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(mux)

	// CORS must run before session auth so pre-flight requests succeed
	dashboardCORS := cors.New(cors.Options{
		AllowedOrigins:   rt.DashboardOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	}).Handler(mux)

	split := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, publicPrefix) {
			publicCORS.ServeHTTP(w, r)
			return
		}
		dashboardCORS.ServeHTTP(w, r)
	})

	return middleware.Chain(split,
		middleware.Recovery(rt.Logger),
		middleware.RequestLogger(rt.Logger),
	)
}

// SplitOrigins parses a comma separated CORS_ORIGINS value.
func SplitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
