// Package usage reserves, charges and releases owner request quota.
//
// A query reserves one unit before any embedding, retrieval or generation
// work starts and settles it afterwards: a produced answer is charged, a
// failed pipeline is released. The quota is never decremented for an answer
// that was not generated.
//
// Reservations are leases. One that is never settled, because the process
// died or the release itself failed, stops counting once it expires.
package usage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"botcraft/internal/domain/repositories"
)

const (
	// DefaultLeaseTTL outlives the longest query pipeline the server allows.
	DefaultLeaseTTL = 5 * time.Minute

	// settleTimeout bounds Release when the request context is already gone.
	settleTimeout = 5 * time.Second
)

// Meter hands out reservations against an owner's quota.
type Meter struct {
	store    repositories.UsageRepository
	leaseTTL time.Duration
	logger   *slog.Logger
}

// NewMeter creates a Meter. A non-positive leaseTTL uses DefaultLeaseTTL.
func NewMeter(store repositories.UsageRepository, leaseTTL time.Duration, logger *slog.Logger) *Meter {
	if leaseTTL <= 0 {
		leaseTTL = DefaultLeaseTTL
	}
	return &Meter{store: store, leaseTTL: leaseTTL, logger: logger}
}

// Reserve takes one unit of the owner's quota. The error wraps
// domain.ErrQuotaExceeded when nothing is left.
func (m *Meter) Reserve(ctx context.Context, ownerID string) (*Reservation, error) {
	leaseID, err := m.store.Reserve(ctx, ownerID, m.leaseTTL)
	if err != nil {
		return nil, fmt.Errorf("reserve quota: %w", err)
	}
	return &Reservation{meter: m, ownerID: ownerID, leaseID: leaseID}, nil
}

// Reservation is one reserved request. Exactly one of ChargeAndRecord or
// Release takes effect; later calls are no-ops.
type Reservation struct {
	meter   *Meter
	ownerID string
	leaseID string

	mu      sync.Mutex
	settled bool
}

// ChargeAndRecord bills the reserved request. A non-empty botID also bumps
// that bot's query counter and last activity time.
func (r *Reservation) ChargeAndRecord(ctx context.Context, botID string) error {
	if !r.settle() {
		return nil
	}
	if err := r.meter.store.Commit(ctx, r.ownerID, r.leaseID, botID); err != nil {
		// the charge did not happen; give the unit back
		r.release(ctx)
		return fmt.Errorf("charge quota: %w", err)
	}
	return nil
}

// Release gives the reserved unit back without charging. It still runs when
// ctx is already cancelled.
func (r *Reservation) Release(ctx context.Context) {
	if !r.settle() {
		return
	}
	r.release(ctx)
}

func (r *Reservation) release(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()
	if err := r.meter.store.Release(ctx, r.ownerID, r.leaseID); err != nil {
		// the lease stays until it expires
		r.meter.logger.Error("release quota reservation failed",
			"owner_id", r.ownerID,
			"lease_id", r.leaseID,
			"lease_ttl", r.meter.leaseTTL,
			"error", err,
		)
	}
}

func (r *Reservation) settle() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settled {
		return false
	}
	r.settled = true
	return true
}
