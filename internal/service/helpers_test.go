package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/snupai/shortlink/internal/cache"
	"github.com/snupai/shortlink/internal/filter"
	"github.com/snupai/shortlink/internal/model"
	"github.com/snupai/shortlink/internal/ratelimit"
	"github.com/snupai/shortlink/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	clock *fakeClock
	db    *gorm.DB

	linkRepo    *repository.LinkRepository
	clickRepo   *repository.ClickRepository
	accountRepo *repository.AccountRepository
	keyRepo     *repository.APIKeyRepository
	recordRepo  *repository.RateLimitRepository

	links    *LinkService
	clicks   *ClickService
	quota    *QuotaService
	redirect *RedirectService
	accounts *AccountService
	keys     *APIKeyService
	admin    *AdminService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupEnvWithCache(t, nil)
}

// setupEnvWithCache wires every service over a fresh sqlite store. linkCache
// may be nil.
func setupEnvWithCache(t *testing.T, linkCache *cache.RedisCache) *testEnv {
	t.Helper()
	db, err := repository.Open(repository.Options{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "service.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close(db) })

	log := zerolog.Nop()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	e := &testEnv{
		clock:       clock,
		db:          db,
		linkRepo:    repository.NewLinkRepository(db),
		clickRepo:   repository.NewClickRepository(db),
		accountRepo: repository.NewAccountRepository(db),
		keyRepo:     repository.NewAPIKeyRepository(db),
		recordRepo:  repository.NewRateLimitRepository(db),
	}

	burst := ratelimit.NewStoreLimiter(e.recordRepo, ratelimit.Config{
		Limit:  10,
		Window: 5 * time.Second,
		Now:    clock.Now,
	})

	e.links = NewLinkService(e.linkRepo, e.clickRepo, linkCache, filter.NewBloomFilter(10000, 0.001), log)
	e.clicks = NewClickService(e.linkRepo, e.clickRepo, log)
	e.quota = NewQuotaService(e.linkRepo, 25, 5*time.Hour, log)
	e.redirect = NewRedirectService(e.links, e.accountRepo, e.clicks, log)
	e.accounts = NewAccountService(e.accountRepo, []string{"Admin@Example.com"}, log)
	e.keys = NewAPIKeyService(e.keyRepo, e.accountRepo, e.recordRepo, burst, e.quota, e.links,
		GatewayConfig{BaseURL: "https://sho.rt/", BurstLimit: 10, BurstWindow: 5 * time.Second}, log)
	e.admin = NewAdminService(e.accountRepo, e.linkRepo, e.links, e.keys, e.clicks, log)

	c := Clock(clock.Now)
	e.links.SetClock(c)
	e.clicks.SetClock(c)
	e.quota.SetClock(c)
	e.redirect.SetClock(c)
	e.accounts.SetClock(c)
	e.keys.SetClock(c)
	e.admin.SetClock(c)
	return e
}

func (e *testEnv) account(t *testing.T, subject, email string) *model.Account {
	t.Helper()
	acc, err := e.accounts.Ensure(context.Background(), subject, email)
	require.NoError(t, err)
	return acc
}

func (e *testEnv) link(t *testing.T, ownerID int64, in CreateLinkInput) *model.Link {
	t.Helper()
	link, err := e.links.Create(context.Background(), ownerID, in)
	require.NoError(t, err)
	return link
}

func ptrTime(t time.Time) *time.Time { return &t }
func ptrFloat(f float64) *float64    { return &f }
func ptrInt(i int) *int              { return &i }
