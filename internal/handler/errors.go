package handler

import (
	"errors"
	"net/http"

	"botcraft/internal/domain"
	"botcraft/internal/httputil"
)

// genericFailure is the only message clients see for internal and upstream
// failures.
const genericFailure = "Server error. Please try again later."

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var (
		conflictErr *domain.ConflictError
		tooLarge    *http.MaxBytesError
	)

	switch {
	case errors.As(err, &tooLarge):
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, "Upload is too large.")
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrBotDisabled):
		httputil.RespondErrorWithExtras(w, http.StatusForbidden, "This bot is currently inactive.", map[string]interface{}{
			"answer": "This bot is currently inactive.",
		})
	case errors.Is(err, domain.ErrQuotaExceeded):
		httputil.RespondError(w, http.StatusForbidden, "Request limit exceeded.")
	case errors.Is(err, domain.ErrPlanLimit):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflictErr):
		extras := map[string]interface{}{}
		if conflictErr.ResourceType != "" {
			extras["resourceType"] = conflictErr.ResourceType
		}
		if conflictErr.ResourceID != "" {
			extras["resourceId"] = conflictErr.ResourceID
		}
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Error(), extras)
	default:
		httputil.RespondError(w, http.StatusInternalServerError, genericFailure)
	}
}
