package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminGuards(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	admin := e.account(t, "admin", "admin@example.com")
	otherAdmin := e.account(t, "admin2", "ADMIN@example.com ")
	user := e.account(t, "u1", "")

	assert.True(t, admin.IsAdmin())
	assert.True(t, otherAdmin.IsAdmin())
	assert.False(t, user.IsAdmin())

	assert.ErrorIs(t, e.admin.Ban(ctx, admin, admin.ID), ErrForbidden)
	assert.ErrorIs(t, e.admin.Ban(ctx, admin, otherAdmin.ID), ErrForbidden)
	assert.ErrorIs(t, e.admin.DeleteAccount(ctx, admin, admin.ID), ErrForbidden)
	assert.ErrorIs(t, e.admin.DeleteAccount(ctx, admin, otherAdmin.ID), ErrForbidden)
	assert.ErrorIs(t, e.admin.Ban(ctx, admin, 987654), ErrNotFound)

	require.NoError(t, e.admin.Ban(ctx, admin, user.ID))
	got, err := e.accountRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.Banned)
	require.NotNil(t, got.BannedAt)
	assert.True(t, e.clock.Now().Equal(*got.BannedAt))
}

func TestAdminDeleteAccountCascades(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	admin := e.account(t, "admin", "admin@example.com")
	user := e.account(t, "u1", "")
	bystander := e.account(t, "u2", "")

	created, err := e.keys.CreateKey(ctx, user.ID, "k")
	require.NoError(t, err)
	res, err := e.keys.CreateViaAPI(ctx, created.Secret, CreateLinkInput{URL: "https://a.example"})
	require.NoError(t, err)
	require.NoError(t, e.clicks.Record(ctx, res.ID, "", ""))
	kept := e.link(t, bystander.ID, CreateLinkInput{URL: "https://b.example", Slug: "kept"})

	require.NoError(t, e.admin.DeleteAccount(ctx, admin, user.ID))

	acc, err := e.accountRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, acc)

	link, err := e.linkRepo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Nil(t, link)

	events, err := e.clickRepo.CountByLink(ctx, res.ID)
	require.NoError(t, err)
	assert.Zero(t, events)

	keys, err := e.keyRepo.ListByOwner(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, keys)

	records, err := e.recordRepo.CountSince(ctx, strconv.FormatInt(created.ID, 10), e.clock.Now().AddDate(-1, 0, 0))
	require.NoError(t, err)
	assert.Zero(t, records)

	link, err = e.linkRepo.GetByID(ctx, kept.ID)
	require.NoError(t, err)
	assert.NotNil(t, link)
}

func TestAdminListings(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	admin := e.account(t, "admin", "admin@example.com")
	user := e.account(t, "u1", "u1@example.com")
	e.link(t, user.ID, CreateLinkInput{URL: "https://a.example", Slug: "one"})
	e.link(t, user.ID, CreateLinkInput{URL: "https://a.example", Slug: "two"})

	accounts, err := e.admin.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	counts := map[int64]int64{}
	for _, a := range accounts {
		counts[a.ID] = a.LinkCount
	}
	assert.Equal(t, int64(0), counts[admin.ID])
	assert.Equal(t, int64(2), counts[user.ID])

	links, err := e.admin.ListAllLinks(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, links, 1, "limit is clamped to at least one")
	assert.Equal(t, "u1@example.com", links[0].OwnerEmail)

	links, err = e.admin.ListAllLinks(ctx, 10_000)
	require.NoError(t, err)
	assert.Len(t, links, 2)

	require.NoError(t, e.admin.DeleteLink(ctx, links[0].ID))
	assert.ErrorIs(t, e.admin.DeleteLink(ctx, links[0].ID), ErrNotFound)
}
