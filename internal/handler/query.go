package handler

import (
	"log/slog"
	"net/http"

	"botcraft/internal/domain/services"
	"botcraft/internal/httputil"
)

type questionRequest struct {
	Question string `json:"question"`
}

type answerResponse struct {
	Success bool   `json:"success"`
	Answer  string `json:"answer"`
}

// QueryHandler serves the public, API-key authenticated question endpoint
type QueryHandler struct {
	queries services.QueryService
	logger  *slog.Logger
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(queries services.QueryService, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{queries: queries, logger: logger}
}

// Ask answers a question from the bot behind the bearer API key
// POST /api/public/query
func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	answer, err := h.queries.Ask(r.Context(), httputil.BearerToken(r), req.Question)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, answerResponse{Success: true, Answer: answer})
}
