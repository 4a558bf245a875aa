package usage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"botcraft/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMeter_ChargeDecrementsOnce(t *testing.T) {
	store := NewMemoryStore()
	store.SetQuota("owner", 5)
	m := NewMeter(store, 0, testLogger())

	res, err := m.Reserve(context.Background(), "owner")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := res.ChargeAndRecord(context.Background(), "bot-1"); err != nil {
		t.Fatalf("ChargeAndRecord: %v", err)
	}
	// second settle is a no-op
	if err := res.ChargeAndRecord(context.Background(), "bot-1"); err != nil {
		t.Fatalf("second ChargeAndRecord: %v", err)
	}
	res.Release(context.Background())

	left, inFlight := store.Snapshot("owner")
	if left != 4 || inFlight != 0 {
		t.Errorf("left/inFlight = %d/%d, want 4/0", left, inFlight)
	}
	if got := store.BotQueries("bot-1"); got != 1 {
		t.Errorf("bot queries = %d, want 1", got)
	}
}

func TestMeter_ReleaseDoesNotCharge(t *testing.T) {
	store := NewMemoryStore()
	store.SetQuota("owner", 1)
	m := NewMeter(store, 0, testLogger())

	res, err := m.Reserve(context.Background(), "owner")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	// the last unit is held
	if _, err := m.Reserve(context.Background(), "owner"); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded while reserved, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res.Release(ctx)

	left, inFlight := store.Snapshot("owner")
	if left != 1 || inFlight != 0 {
		t.Errorf("left/inFlight = %d/%d, want 1/0", left, inFlight)
	}
	if _, err := m.Reserve(context.Background(), "owner"); err != nil {
		t.Errorf("Reserve after release: %v", err)
	}
}

func TestMeter_ExhaustedQuota(t *testing.T) {
	store := NewMemoryStore()
	store.SetQuota("owner", 0)
	m := NewMeter(store, 0, testLogger())

	_, err := m.Reserve(context.Background(), "owner")
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if left, _ := store.Snapshot("owner"); left != 0 {
		t.Errorf("quota went negative: %d", left)
	}
}

func TestMeter_ConcurrentLastUnit(t *testing.T) {
	for run := 0; run < 50; run++ {
		store := NewMemoryStore()
		store.SetQuota("owner", 1)
		m := NewMeter(store, 0, testLogger())

		var wg sync.WaitGroup
		var mu sync.Mutex
		var ok, rejected int
		start := make(chan struct{})
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				res, err := m.Reserve(context.Background(), "owner")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case errors.Is(err, domain.ErrQuotaExceeded):
					rejected++
				case err != nil:
					t.Errorf("unexpected error: %v", err)
				default:
					ok++
					if err := res.ChargeAndRecord(context.Background(), "bot"); err != nil {
						t.Errorf("charge: %v", err)
					}
				}
			}()
		}
		close(start)
		wg.Wait()

		if ok != 1 || rejected != 1 {
			t.Fatalf("run %d: ok=%d rejected=%d, want 1/1", run, ok, rejected)
		}
		left, inFlight := store.Snapshot("owner")
		if left != 0 || inFlight != 0 {
			t.Fatalf("run %d: left/inFlight = %d/%d, want 0/0", run, left, inFlight)
		}
	}
}

type failingCommitStore struct {
	*MemoryStore
}

func (f failingCommitStore) Commit(ctx context.Context, ownerID, leaseID, botID string) error {
	return errors.New("connection reset")
}

func TestMeter_FailedChargeReleases(t *testing.T) {
	mem := NewMemoryStore()
	mem.SetQuota("owner", 3)
	m := NewMeter(failingCommitStore{mem}, 0, testLogger())

	res, err := m.Reserve(context.Background(), "owner")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := res.ChargeAndRecord(context.Background(), "bot"); err == nil {
		t.Fatal("expected charge error")
	}
	left, inFlight := mem.Snapshot("owner")
	if left != 3 || inFlight != 0 {
		t.Errorf("left/inFlight = %d/%d, want 3/0", left, inFlight)
	}
}

func TestMemoryStore_UnknownOwner(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Reserve(context.Background(), "ghost", time.Minute); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

type failingReleaseStore struct {
	*MemoryStore
}

func (f failingReleaseStore) Release(ctx context.Context, ownerID, leaseID string) error {
	return errors.New("connection reset")
}

func TestMeter_UnreleasedLeaseExpires(t *testing.T) {
	mem := NewMemoryStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mem.now = func() time.Time { return now }
	mem.SetQuota("owner", 1)
	m := NewMeter(failingReleaseStore{mem}, time.Minute, testLogger())

	res, err := m.Reserve(context.Background(), "owner")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	res.Release(context.Background())

	// the failed release leaves the lease holding the last unit
	if _, err := m.Reserve(context.Background(), "owner"); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded while lease is live, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := m.Reserve(context.Background(), "owner"); err != nil {
		t.Fatalf("Reserve after lease expiry: %v", err)
	}
	if left, _ := mem.Snapshot("owner"); left != 1 {
		t.Errorf("left = %d, want 1 (expired lease must not charge)", left)
	}
}

func TestMeter_ChargeAfterLeaseExpiry(t *testing.T) {
	mem := NewMemoryStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mem.now = func() time.Time { return now }
	mem.SetQuota("owner", 2)
	m := NewMeter(mem, time.Minute, testLogger())

	res, err := m.Reserve(context.Background(), "owner")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := res.ChargeAndRecord(context.Background(), ""); err != nil {
		t.Fatalf("ChargeAndRecord: %v", err)
	}
	left, inFlight := mem.Snapshot("owner")
	if left != 1 || inFlight != 0 {
		t.Errorf("left/inFlight = %d/%d, want 1/0", left, inFlight)
	}
}

func TestMemoryStore_SetQuotaClearsLeases(t *testing.T) {
	store := NewMemoryStore()
	store.SetQuota("owner", 1)
	if _, err := store.Reserve(context.Background(), "owner", time.Hour); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	store.SetQuota("owner", 1)
	if _, inFlight := store.Snapshot("owner"); inFlight != 0 {
		t.Errorf("inFlight = %d after plan reset, want 0", inFlight)
	}
}
