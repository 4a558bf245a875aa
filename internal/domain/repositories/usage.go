package repositories

import (
	"context"
	"time"
)

// UsageRepository holds the quota counters and the leases reserved against
// them. A lease counts against requests_left until it is committed, released
// or expires, so a request that never settles stops blocking the owner once
// its lease runs out.
type UsageRepository interface {
	// Reserve takes one unit from requests_left minus the live leases and
	// returns the lease ID. Returns domain.ErrQuotaExceeded when nothing is
	// left.
	Reserve(ctx context.Context, userID string, ttl time.Duration) (string, error)

	// Commit turns a lease into a charge. When botID is non-empty the bot's
	// query counter and last activity are bumped in the same transaction.
	Commit(ctx context.Context, userID, leaseID, botID string) error

	// Release drops a lease without charging.
	Release(ctx context.Context, userID, leaseID string) error
}
