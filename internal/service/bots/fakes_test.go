package bots

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"botcraft/internal/domain"
	"botcraft/internal/domain/models"
	"botcraft/internal/domain/repositories"
	"botcraft/internal/plans"
	"botcraft/internal/rag/chunker"
	"botcraft/internal/rag/embedder"
	"botcraft/internal/rag/vectorindex"

	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// opLog records the order of side effects across fakes.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *opLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ops...)
}

type fakeBotRepo struct {
	mu        sync.Mutex
	bots      map[string]*models.Bot
	log       *opLog
	createErr error
}

func newFakeBotRepo(log *opLog) *fakeBotRepo {
	return &fakeBotRepo{bots: make(map[string]*models.Bot), log: log}
}

func (r *fakeBotRepo) put(bot *models.Bot) *models.Bot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bot.ID == "" {
		bot.ID = uuid.NewString()
	}
	if bot.APIKey == "" {
		bot.APIKey = NewAPIKey()
	}
	if bot.Status == "" {
		bot.Status = models.BotStatusActive
	}
	if bot.Customization == (models.Customization{}) {
		bot.Customization = models.DefaultCustomization()
	}
	bot.CreatedAt = time.Now()
	copied := *bot
	r.bots[bot.ID] = &copied
	return bot
}

func (r *fakeBotRepo) Create(ctx context.Context, bot *models.Bot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.createErr != nil {
		return r.createErr
	}
	r.put(bot)
	return nil
}

func (r *fakeBotRepo) GetByID(ctx context.Context, id, ownerID string) (*models.Bot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bots[id]
	if !ok || b.OwnerID != ownerID {
		return nil, fmt.Errorf("bot %s: %w", id, domain.ErrNotFound)
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBotRepo) GetByAPIKey(ctx context.Context, apiKey string) (*models.Bot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bots {
		if b.APIKey == apiKey {
			copied := *b
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("api key: %w", domain.ErrNotFound)
}

func (r *fakeBotRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Bot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Bot{}
	for _, b := range r.bots {
		if b.OwnerID == ownerID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeBotRepo) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	list, _ := r.ListByOwner(ctx, ownerID)
	return int64(len(list)), nil
}

func (r *fakeBotRepo) FindIDByName(ctx context.Context, ownerID, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bots {
		if b.OwnerID == ownerID && b.Name == name {
			return b.ID, nil
		}
	}
	return "", fmt.Errorf("bot '%s': %w", name, domain.ErrNotFound)
}

func (r *fakeBotRepo) UpdateCustomization(ctx context.Context, id, ownerID string, c models.Customization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bots[id]
	if !ok || b.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	b.Customization = c
	return nil
}

func (r *fakeBotRepo) UpdateStatus(ctx context.Context, id, ownerID string, status models.BotStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bots[id]
	if !ok || b.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	b.Status = status
	return nil
}

func (r *fakeBotRepo) Delete(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bots[id]
	if !ok || b.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(r.bots, id)
	if r.log != nil {
		r.log.add("db.delete")
	}
	return nil
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.NewString()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) LockByID(ctx context.Context, id string) (*models.User, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) UpdatePlan(ctx context.Context, id string, plan models.PlanTier, requests int64) error {
	u, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Plan = plan
	u.RequestsLeft = requests
	return nil
}

// fakeTx runs fn inline and fails like a database would on a dead context.
type fakeTx struct{}

func (fakeTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	return fn(ctx)
}

// serialTx runs one transaction at a time, like writers queued on a row lock.
type serialTx struct {
	mu sync.Mutex
}

func (tx *serialTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return fakeTx{}.ExecTx(ctx, fn)
}

type stubLoader struct {
	mu       sync.Mutex
	text     string
	err      error
	pdfCalls int
	urlCalls int
}

func (l *stubLoader) LoadPDF(ctx context.Context, data []byte) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pdfCalls++
	return l.text, l.err
}

func (l *stubLoader) LoadURL(ctx context.Context, pageURL string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.urlCalls++
	return l.text, l.err
}

// countingStore wraps a real memory index and counts calls.
type countingStore struct {
	*vectorindex.Index
	log *opLog

	mu          sync.Mutex
	upserts     int
	deletes     int
	queries     int
	tenants     []vectorindex.TenantKey
	upsertErr   error
	deleteErr   error
	afterUpsert func()
}

func newCountingStore(log *opLog) *countingStore {
	return &countingStore{Index: vectorindex.NewMemory(64, testLogger()), log: log}
}

func (s *countingStore) Upsert(ctx context.Context, tenant vectorindex.TenantKey, records []vectorindex.Record) error {
	s.mu.Lock()
	s.upserts++
	s.tenants = append(s.tenants, tenant)
	s.mu.Unlock()
	if s.upsertErr != nil {
		// half the batch lands before the failure
		_ = s.Index.Upsert(ctx, tenant, records[:len(records)/2+1])
		return s.upsertErr
	}
	if err := s.Index.Upsert(ctx, tenant, records); err != nil {
		return err
	}
	if s.afterUpsert != nil {
		s.afterUpsert()
	}
	return nil
}

func (s *countingStore) DeleteAll(ctx context.Context, tenant vectorindex.TenantKey) error {
	s.mu.Lock()
	s.deletes++
	s.mu.Unlock()
	if s.log != nil {
		s.log.add("index.deleteAll")
	}
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.Index.DeleteAll(ctx, tenant)
}

func (s *countingStore) Query(ctx context.Context, tenant vectorindex.TenantKey, vector []float32, k int) ([]vectorindex.Match, error) {
	s.mu.Lock()
	s.queries++
	s.mu.Unlock()
	return s.Index.Query(ctx, tenant, vector, k)
}

func (s *countingStore) stored(t *testing.T, tenant vectorindex.TenantKey) int {
	t.Helper()
	query, err := embedder.NewHash(64).EmbedQuery(context.Background(), "support desk")
	if err != nil {
		t.Fatalf("query vector: %v", err)
	}
	matches, err := s.Index.Query(context.Background(), tenant, query, 1000)
	if err != nil {
		t.Fatalf("count query: %v", err)
	}
	return len(matches)
}

type botFixture struct {
	log      *opLog
	bots     *fakeBotRepo
	users    *fakeUserRepo
	store    *countingStore
	loader   *stubLoader
	embedder *embedder.Hash
	service  *botService
	ownerID  string
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	registry, err := plans.NewRegistry()
	if err != nil {
		t.Fatalf("plans: %v", err)
	}
	splitter, err := chunker.New(500, 100)
	if err != nil {
		t.Fatalf("chunker: %v", err)
	}

	log := &opLog{}
	f := &botFixture{
		log:      log,
		bots:     newFakeBotRepo(log),
		users:    &fakeUserRepo{users: map[string]*models.User{}},
		store:    newCountingStore(log),
		loader:   &stubLoader{text: strings.Repeat("Our support desk is open 9 to 5 on weekdays. ", 30)},
		embedder: embedder.NewHash(64),
	}
	owner := &models.User{Name: "Owner", Email: "owner@example.com", Plan: models.PlanFree, RequestsLeft: 100}
	_ = f.users.Create(context.Background(), owner)
	f.ownerID = owner.ID

	svc := NewBotService(f.bots, f.users, fakeTx{}, registry, f.loader, splitter, f.embedder, f.store, testLogger())
	f.service = svc.(*botService)
	return f
}

// query-side fixture

type countingRetriever struct {
	inner Retriever
	mu    sync.Mutex
	calls int
}

func (r *countingRetriever) Retrieve(ctx context.Context, tenant vectorindex.TenantKey, question string, k int) ([]vectorindex.Match, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.inner.Retrieve(ctx, tenant, question, k)
}

type stubAnswerer struct {
	mu     sync.Mutex
	calls  int
	answer string
	err    error
}

func (a *stubAnswerer) Answer(ctx context.Context, question string, chunks []vectorindex.Match) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return a.answer, nil
}

func (a *stubAnswerer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}
