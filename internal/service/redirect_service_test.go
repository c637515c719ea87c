package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOutcomes(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	owner := e.account(t, "u1", "")

	res, err := e.redirect.Resolve(ctx, "nothing", "", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)

	link := e.link(t, owner.ID, CreateLinkInput{URL: "https://a.example", Slug: "ok"})
	res, err = e.redirect.Resolve(ctx, "ok", "https://www.twitter.com/", "Mozilla/5.0")
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.False(t, res.Crawler)
	assert.Equal(t, link.URL, res.Link.URL)

	res, err = e.redirect.Resolve(ctx, "ok", "", "Twitterbot/1.0")
	require.NoError(t, err)
	assert.True(t, res.Crawler)

	got, err := e.linkRepo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ClickCount)
}

func TestResolveExpiryBoundary(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	owner := e.account(t, "u1", "")
	created := e.clock.Now()
	e.link(t, owner.ID, CreateLinkInput{URL: "https://a.example", Slug: "exp", ExpiresAt: ptrTime(created.Add(time.Hour))})

	// 1ms before expiry
	e.clock.Advance(time.Hour - time.Millisecond)
	res, err := e.redirect.Resolve(ctx, "exp", "", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, res.Outcome)

	// exactly at expiry the link is still live
	e.clock.Advance(time.Millisecond)
	res, err = e.redirect.Resolve(ctx, "exp", "", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, res.Outcome)

	// 1ms after
	e.clock.Advance(time.Millisecond)
	res, err = e.redirect.Resolve(ctx, "exp", "", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeExpired, res.Outcome)
}

func TestResolveClickLimitCheckedBeforeIncrement(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	owner := e.account(t, "u1", "")
	link := e.link(t, owner.ID, CreateLinkInput{URL: "https://shop.example/sale", Slug: "promo", MaxClicks: ptrFloat(2)})

	for i := 0; i < 2; i++ {
		res, err := e.redirect.Resolve(ctx, "promo", "", "")
		require.NoError(t, err)
		assert.Equal(t, OutcomeOK, res.Outcome, "click %d", i+1)
	}

	res, err := e.redirect.Resolve(ctx, "promo", "", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMaxClicks, res.Outcome)

	got, err := e.linkRepo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ClickCount, "rejected visits are not counted")
}

func TestResolveSuspensionWins(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	admin := e.account(t, "admin", "admin@example.com")
	owner := e.account(t, "u1", "")
	e.link(t, owner.ID, CreateLinkInput{
		URL:       "https://a.example",
		Slug:      "sus",
		ExpiresAt: ptrTime(e.clock.Now().Add(time.Hour)),
		MaxClicks: ptrFloat(10),
	})

	require.NoError(t, e.admin.Ban(ctx, admin, owner.ID))
	res, err := e.redirect.Resolve(ctx, "sus", "", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuspended, res.Outcome)

	// suspension also wins over expiry
	e.clock.Advance(2 * time.Hour)
	res, err = e.redirect.Resolve(ctx, "sus", "", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuspended, res.Outcome)

	require.NoError(t, e.admin.Unban(ctx, admin, owner.ID))
	res, err = e.redirect.Resolve(ctx, "sus", "", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeExpired, res.Outcome)
}
