package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/snupai/shortlink/internal/cache"
	"github.com/snupai/shortlink/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCachedEnv(t *testing.T) (*testEnv, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return setupEnvWithCache(t, cache.NewWithClient(client, time.Minute)), mr
}

func TestCappedLinksBypassCache(t *testing.T) {
	e, mr := setupCachedEnv(t)
	ctx := context.Background()
	owner := e.account(t, "u1", "")
	e.link(t, owner.ID, CreateLinkInput{URL: "https://a.example", Slug: "capped", MaxClicks: ptrFloat(1)})

	res, err := e.redirect.Resolve(ctx, "capped", "", "agent")
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.False(t, mr.Exists(cache.LinkPrefix+"capped"))

	res, err = e.redirect.Resolve(ctx, "capped", "", "agent")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMaxClicks, res.Outcome)

	got, err := e.linkRepo.GetBySlug(ctx, "capped")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ClickCount)
}

func TestUncappedLinksServedFromCache(t *testing.T) {
	e, mr := setupCachedEnv(t)
	ctx := context.Background()
	owner := e.account(t, "u1", "")
	link := e.link(t, owner.ID, CreateLinkInput{URL: "https://a.example", Slug: "free"})

	res, err := e.redirect.Resolve(ctx, "free", "", "agent")
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, res.Outcome)
	require.True(t, mr.Exists(cache.LinkPrefix+"free"))

	// a store-side change stays invisible while the snapshot lives
	require.NoError(t, e.db.Model(&model.Link{}).Where("id = ?", link.ID).
		Update("url", "https://changed.example").Error)
	got, err := e.links.GetBySlug(ctx, "free")
	require.NoError(t, err)
	assert.Equal(t, "https://a.example", got.URL)

	require.NoError(t, e.links.Delete(ctx, owner.ID, link.ID))
	assert.False(t, mr.Exists(cache.LinkPrefix+"free"))

	res, err = e.redirect.Resolve(ctx, "free", "", "agent")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
}
