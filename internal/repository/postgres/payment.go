package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"botcraft/internal/domain"
	"botcraft/internal/domain/models"
	"botcraft/internal/domain/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPaymentRepository implements the PaymentRepository interface
type PostgresPaymentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(config *RepositoryConfig) repositories.PaymentRepository {
	return &PostgresPaymentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create records a payment
func (r *PostgresPaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, payment_id, order_id, amount, plan, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, r.tables.Payments)

	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		p.UserID,
		p.PaymentID,
		p.OrderID,
		p.Amount,
		p.Plan,
		p.Status,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "payment already processed",
				ResourceType: "payment",
				ResourceID:   p.PaymentID,
			}
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// ListSuccessful lists captured payments, newest first
func (r *PostgresPaymentRepository) ListSuccessful(ctx context.Context, userID string) ([]models.Payment, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, payment_id, order_id, amount, plan, status, created_at
		FROM %s
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC
	`, r.tables.Payments)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, userID, models.PaymentSuccess)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.PaymentID,
			&p.OrderID,
			&p.Amount,
			&p.Plan,
			&p.Status,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}
