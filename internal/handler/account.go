package handler

import (
	"log/slog"
	"net/http"

	"botcraft/internal/domain/services"
	"botcraft/internal/httputil"
)

// AccountHandler serves the dashboard summary and billing callbacks
type AccountHandler struct {
	accounts services.AccountService
	logger   *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts services.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

// Dashboard returns profile, plan, bots and payments of the caller
// GET /api/users/me/dashboard
func (h *AccountHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.accounts.Dashboard(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    dashboard,
	})
}

// verifyPaymentRequest accepts both plain and gateway-prefixed field names.
type verifyPaymentRequest struct {
	OrderID           string  `json:"orderId"`
	PaymentID         string  `json:"paymentId"`
	Signature         string  `json:"signature"`
	RazorpayPaymentID string  `json:"razorpayPaymentId"`
	RazorpaySignature string  `json:"razorpaySignature"`
	Amount            float64 `json:"amount"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// VerifyPayment checks the gateway signature and upgrades the caller to PRO
// POST /api/billing/verify
func (h *AccountHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.accounts.VerifyPayment(r.Context(), &services.VerifyPaymentRequest{
		UserID:    httputil.GetUserID(r),
		OrderID:   req.OrderID,
		PaymentID: firstNonEmpty(req.PaymentID, req.RazorpayPaymentID),
		Signature: firstNonEmpty(req.Signature, req.RazorpaySignature),
		Amount:    req.Amount,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Payment verified successfully",
		"data": map[string]interface{}{
			"plan":         user.Plan,
			"requestsLeft": user.RequestsLeft,
		},
	})
}
