package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"botcraft/internal/domain"
	"botcraft/internal/domain/models"
	"botcraft/internal/domain/repositories"
	"botcraft/internal/domain/services"
	"botcraft/internal/plans"
)

const testSecret = "whsec_test"

type fakeUsers struct {
	users map[string]*models.User
}

func (f *fakeUsers) Create(ctx context.Context, u *models.User) error { f.users[u.ID] = u; return nil }

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) LockByID(ctx context.Context, id string) (*models.User, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeUsers) UpdatePlan(ctx context.Context, id string, plan models.PlanTier, requests int64) error {
	u, ok := f.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Plan, u.RequestsLeft = plan, requests
	return nil
}

// fakeBots only lists; other methods are unused here.
type fakeBots struct {
	repositories.BotRepository
	bots []models.Bot
}

func (f *fakeBots) ListByOwner(ctx context.Context, ownerID string) ([]models.Bot, error) {
	return f.bots, nil
}

type fakePayments struct {
	payments []models.Payment
}

func (f *fakePayments) Create(ctx context.Context, p *models.Payment) error {
	for _, existing := range f.payments {
		if existing.PaymentID == p.PaymentID {
			return &domain.ConflictError{Message: "payment already processed", ResourceType: "payment"}
		}
	}
	p.ID = "pay-row-" + p.PaymentID
	p.CreatedAt = time.Now()
	f.payments = append(f.payments, *p)
	return nil
}

func (f *fakePayments) ListSuccessful(ctx context.Context, userID string) ([]models.Payment, error) {
	out := []models.Payment{}
	for _, p := range f.payments {
		if p.UserID == userID && p.Status == models.PaymentSuccess {
			out = append(out, p)
		}
	}
	return out, nil
}

type inlineTx struct{}

func (inlineTx) ExecTx(ctx context.Context, fn repositories.TxFn) error { return fn(ctx) }

func newTestService(t *testing.T) (*accountService, *fakeUsers, *fakePayments) {
	t.Helper()
	registry, err := plans.NewRegistry()
	if err != nil {
		t.Fatalf("plans: %v", err)
	}
	users := &fakeUsers{users: map[string]*models.User{
		"u1": {ID: "u1", Name: "Asha", Email: "asha@example.com", Plan: models.PlanFree, RequestsLeft: 7},
	}}
	payments := &fakePayments{}
	bots := &fakeBots{bots: []models.Bot{
		{ID: "b1", Name: "Support", Status: models.BotStatusActive, CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	}}
	svc := NewAccountService(users, bots, payments, inlineTx{}, registry, testSecret, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc.(*accountService), users, payments
}

func TestSignature(t *testing.T) {
	sig := Sign(testSecret, "order_1", "pay_1")
	if len(sig) != 64 {
		t.Fatalf("signature length = %d, want 64 hex chars", len(sig))
	}

	tests := []struct {
		name      string
		secret    string
		signature string
		want      bool
	}{
		{"valid", testSecret, sig, true},
		{"uppercase hex", testSecret, strings.ToUpper(sig), true},
		{"wrong secret", "other", sig, false},
		{"tampered", testSecret, sig[:63] + "0", sig[63] == '0'},
		{"not hex", testSecret, "zz", false},
		{"empty secret", "", sig, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(tt.secret, "order_1", "pay_1", tt.signature); got != tt.want {
				t.Errorf("VerifySignature = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDashboard(t *testing.T) {
	svc, _, _ := newTestService(t)

	d, err := svc.Dashboard(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.Plan.Current != models.PlanFree || d.Plan.RequestsLeft != 7 || d.Plan.RequestsLimit != 100 {
		t.Errorf("plan = %+v", d.Plan)
	}
	if d.Stats.TotalBots != 1 || d.Stats.BotsLimit != 2 {
		t.Errorf("stats = %+v", d.Stats)
	}
	if len(d.Bots) != 1 || d.Bots[0].CreatedAt != "2026-01-02T03:04:05Z" {
		t.Errorf("bots = %+v", d.Bots)
	}
	if d.Payments == nil {
		t.Error("payments should be an empty list, not nil")
	}

	if _, err := svc.Dashboard(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown user: expected ErrNotFound, got %v", err)
	}
}

func TestVerifyPayment_UpgradesPlan(t *testing.T) {
	svc, users, payments := newTestService(t)

	user, err := svc.VerifyPayment(context.Background(), &services.VerifyPaymentRequest{
		UserID:    "u1",
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: Sign(testSecret, "order_1", "pay_1"),
	})
	if err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}
	if user.Plan != models.PlanPro || user.RequestsLeft != 15000 {
		t.Errorf("user after upgrade = %+v", user)
	}
	if users.users["u1"].Plan != models.PlanPro {
		t.Error("plan not persisted")
	}
	if len(payments.payments) != 1 || payments.payments[0].Amount != 499 {
		t.Errorf("payments = %+v", payments.payments)
	}
}

func TestVerifyPayment_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		req     *services.VerifyPaymentRequest
		wantErr error
	}{
		{"missing fields", &services.VerifyPaymentRequest{UserID: "u1", OrderID: "order_1"}, domain.ErrValidation},
		{"bad signature", &services.VerifyPaymentRequest{
			UserID: "u1", OrderID: "order_1", PaymentID: "pay_1", Signature: Sign("wrong", "order_1", "pay_1"),
		}, domain.ErrValidation},
		{"signature for another order", &services.VerifyPaymentRequest{
			UserID: "u1", OrderID: "order_2", PaymentID: "pay_1", Signature: Sign(testSecret, "order_1", "pay_1"),
		}, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, users, payments := newTestService(t)
			_, err := svc.VerifyPayment(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if users.users["u1"].Plan != models.PlanFree || len(payments.payments) != 0 {
				t.Error("rejected payment changed state")
			}
		})
	}
}

func TestVerifyPayment_ReplayIsConflict(t *testing.T) {
	svc, users, _ := newTestService(t)
	req := &services.VerifyPaymentRequest{
		UserID:    "u1",
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: Sign(testSecret, "order_1", "pay_1"),
	}
	if _, err := svc.VerifyPayment(context.Background(), req); err != nil {
		t.Fatalf("first VerifyPayment: %v", err)
	}
	users.users["u1"].RequestsLeft = 10

	if _, err := svc.VerifyPayment(context.Background(), req); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict on replay, got %v", err)
	}
	if users.users["u1"].RequestsLeft != 10 {
		t.Error("replayed payment reset the quota again")
	}
}
