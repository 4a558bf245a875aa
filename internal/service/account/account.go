// Package account implements the owner dashboard and plan billing.
package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"botcraft/internal/domain"
	"botcraft/internal/domain/models"
	"botcraft/internal/domain/repositories"
	"botcraft/internal/domain/services"
	"botcraft/internal/plans"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// accountService implements the AccountService interface
type accountService struct {
	users    repositories.UserRepository
	bots     repositories.BotRepository
	payments repositories.PaymentRepository
	tx       repositories.TransactionManager
	plans    *plans.Registry
	secret   string
	logger   *slog.Logger
}

// NewAccountService creates a new account service. secret is the payment
// gateway's signing key.
func NewAccountService(
	users repositories.UserRepository,
	bots repositories.BotRepository,
	payments repositories.PaymentRepository,
	tx repositories.TransactionManager,
	planRegistry *plans.Registry,
	secret string,
	logger *slog.Logger,
) services.AccountService {
	return &accountService{
		users:    users,
		bots:     bots,
		payments: payments,
		tx:       tx,
		plans:    planRegistry,
		secret:   secret,
		logger:   logger,
	}
}

// Dashboard aggregates everything the dashboard home shows
func (s *accountService) Dashboard(ctx context.Context, userID string) (*services.Dashboard, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.Get(user.Plan)
	if err != nil {
		return nil, err
	}

	bots, err := s.bots.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListSuccessful(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]services.BotSummary, len(bots))
	for i, b := range bots {
		summaries[i] = services.BotSummary{
			ID:        b.ID,
			Name:      b.Name,
			Status:    b.Status,
			CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	return &services.Dashboard{
		User: user,
		Plan: services.PlanSummary{
			Current:       user.Plan,
			RequestsLeft:  user.RequestsLeft,
			RequestsLimit: plan.RequestsLimit,
		},
		Stats: services.AccountStats{
			TotalBots: int64(len(bots)),
			BotsLimit: int64(plan.BotsLimit),
		},
		Bots:     summaries,
		Payments: payments,
	}, nil
}

// VerifyPayment checks the gateway signature, then records the payment and
// upgrades the user in one transaction
func (s *accountService) VerifyPayment(ctx context.Context, req *services.VerifyPaymentRequest) (*models.User, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.OrderID, validation.Required),
		validation.Field(&req.PaymentID, validation.Required),
		validation.Field(&req.Signature, validation.Required),
		validation.Field(&req.Amount, validation.Min(0.0)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: missing required payment details: %v", domain.ErrValidation, err)
	}

	orderID := strings.TrimSpace(req.OrderID)
	paymentID := strings.TrimSpace(req.PaymentID)
	if !VerifySignature(s.secret, orderID, paymentID, req.Signature) {
		s.logger.Warn("payment signature mismatch",
			"user_id", req.UserID,
			"order_id", orderID,
		)
		return nil, &domain.ValidationError{Message: "payment verification failed"}
	}

	pro, err := s.plans.Get(models.PlanPro)
	if err != nil {
		return nil, err
	}
	amount := req.Amount
	if amount == 0 {
		amount = pro.PriceINR
	}

	err = s.tx.ExecTx(ctx, func(ctx context.Context) error {
		payment := &models.Payment{
			UserID:    req.UserID,
			PaymentID: paymentID,
			OrderID:   orderID,
			Amount:    amount,
			Plan:      pro.ID,
			Status:    models.PaymentSuccess,
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return err
		}
		return s.users.UpdatePlan(ctx, req.UserID, pro.ID, pro.RequestsLimit)
	})
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("plan upgraded",
		"user_id", user.ID,
		"plan", user.Plan,
		"payment_id", paymentID,
	)
	return user, nil
}
