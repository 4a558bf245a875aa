package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"botcraft/internal/domain/services"
	"botcraft/internal/httputil"
	"botcraft/internal/widget"
)

// WidgetHandler serves the embeddable widget and its public configuration
type WidgetHandler struct {
	bots    services.BotService
	baseURL string
	logger  *slog.Logger
}

// NewWidgetHandler creates a widget handler. baseURL is the public origin
// baked into the script.
func NewWidgetHandler(bots services.BotService, baseURL string, logger *slog.Logger) *WidgetHandler {
	return &WidgetHandler{bots: bots, baseURL: baseURL, logger: logger}
}

// Config returns the look of the bot behind apiKey
// GET /api/public/widget-config?apiKey=
func (h *WidgetHandler) Config(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.bots.GetWidgetConfig(r.Context(), r.URL.Query().Get("apiKey"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, cfg)
}

// Script serves the widget JavaScript
// GET /api/public/widget.js?apiKey=
func (h *WidgetHandler) Script(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := widget.Render(&buf, widget.Params{
		BaseURL: h.baseURL,
		APIKey:  r.URL.Query().Get("apiKey"),
	})
	if err != nil {
		h.logger.Error("widget render failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, genericFailure)
		return
	}

	w.Header().Set("Content-Type", widget.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
