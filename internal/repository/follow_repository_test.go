package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/models"
	"github.com/zfogg/plaza/internal/testutil"
)

func TestFollowCreateRejectsSelfAndDuplicates(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "ada")
	b := testutil.CreateUser(t, db, "bob")
	repo := NewFollowRepository(db)

	err := repo.Create(ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	require.NoError(t, repo.Create(ctx, a.ID, b.ID))
	err = repo.Create(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	following, err := repo.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, following)

	reverse, err := repo.IsFollowing(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, reverse)
}

func TestFollowDeleteReportsWhetherEdgeExisted(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "ada")
	b := testutil.CreateUser(t, db, "bob")
	testutil.Follow(t, db, a, b)
	repo := NewFollowRepository(db)

	removed, err := repo.Delete(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestListAndCountShareFilter(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	star := testutil.CreateUser(t, db, "star")
	for i := 0; i < 12; i++ {
		fan := testutil.CreateUser(t, db, fmt.Sprintf("fan_%02d", i))
		testutil.Follow(t, db, fan, star)
	}
	other := testutil.CreateUser(t, db, "Skeptic")
	testutil.Follow(t, db, other, star)
	repo := NewFollowRepository(db)

	page, err := repo.List(ctx, star.ID, Followers, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, page, 10)

	total, err := repo.Count(ctx, star.ID, Followers, "")
	require.NoError(t, err)
	assert.EqualValues(t, 13, total)

	filtered, err := repo.List(ctx, star.ID, Followers, "FAN_1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, filtered, 2) // fan_10, fan_11
	filteredTotal, err := repo.Count(ctx, star.ID, Followers, "FAN_1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, filteredTotal)

	// "_" must be literal, not a wildcard
	none, err := repo.Count(ctx, star.ID, Followers, "s_eptic")
	require.NoError(t, err)
	assert.EqualValues(t, 0, none)

	following, err := repo.List(ctx, other.ID, Following, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, star.ID, following[0].ID)
}

func TestFriendsOfFriendsExcludesSelfAndFollowed(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	me := testutil.CreateUser(t, db, "me")
	friend := testutil.CreateUser(t, db, "friend")
	fof := testutil.CreateUser(t, db, "fof")
	stranger := testutil.CreateUser(t, db, "stranger")

	testutil.Follow(t, db, me, friend)
	testutil.Follow(t, db, friend, fof)
	testutil.Follow(t, db, friend, me)
	testutil.Follow(t, db, stranger, fof)

	repo := NewFollowRepository(db)
	users, err := repo.FriendsOfFriends(ctx, me.ID, []string{friend.ID}, 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, fof.ID, users[0].ID)

	random, err := repo.RandomUsers(ctx, []string{me.ID, friend.ID, fof.ID}, 10)
	require.NoError(t, err)
	require.Len(t, random, 1)
	assert.Equal(t, stranger.ID, random[0].ID)
}

func TestUserRepositoryLookups(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	u := &models.User{Username: "Grace", Email: "Grace@Example.com", PasswordHash: "h"}
	require.NoError(t, repo.Create(ctx, u))

	found, err := repo.GetByEmail(ctx, "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	conflict, err := repo.FindConflict(ctx, "other@example.com", "grace")
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, u.ID, conflict.ID)

	none, err := repo.FindConflict(ctx, "other@example.com", "other")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	token := "refresh-token"
	require.NoError(t, repo.SetToken(ctx, u.ID, &token))
	byToken, err := repo.GetByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byToken.ID)

	blocked, err := repo.SetBlocked(ctx, "GRACE@example.com", true)
	require.NoError(t, err)
	assert.Equal(t, u.ID, blocked.ID)
	reloaded, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsBlocked)

	hits, err := repo.Search(ctx, "RAC", 10, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}
