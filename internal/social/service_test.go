package social

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/events"
	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/models"
	"github.com/zfogg/plaza/internal/storage"
	"github.com/zfogg/plaza/internal/testutil"
	"gorm.io/gorm"
)

func init() {
	logger.InitializeNop()
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evt events.Event) {
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) Close() error { return nil }

// MockImageStore records uploads and deletes
type MockImageStore struct {
	uploads   int
	deleted   []string
	deleteErr error
}

func (m *MockImageStore) Upload(ctx context.Context, body io.Reader, size int64, userID, filename string) (*storage.UploadResult, error) {
	m.uploads++
	key := fmt.Sprintf("images/%s/%d-%s", userID, m.uploads, filename)
	return &storage.UploadResult{Key: key, URL: "https://cdn.test/" + key}, nil
}

func (m *MockImageStore) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return m.deleteErr
}

func newService(t *testing.T) (*Service, *gorm.DB, *recordingPublisher, *MockImageStore) {
	db := testutil.NewDB(t)
	pub := &recordingPublisher{}
	images := &MockImageStore{}
	return NewService(db, images, pub), db, pub, images
}

func TestFollowAppearsInBothListings(t *testing.T) {
	svc, db, pub, _ := newService(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "ada")
	b := testutil.CreateUser(t, db, "bob")

	target, err := svc.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, target.ID)

	following, err := svc.Following(ctx, a.ID, 0, "")
	require.NoError(t, err)
	require.Len(t, following.Connections, 1)
	assert.Equal(t, b.ID, following.Connections[0].ID)
	assert.EqualValues(t, 1, following.TotalCount)

	followers, err := svc.Followers(ctx, b.ID, 0, "")
	require.NoError(t, err)
	require.Len(t, followers.Connections, 1)
	assert.Equal(t, a.ID, followers.Connections[0].ID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.UserFollowed, pub.events[0].Type)

	msg, err := svc.Unfollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Un follow successful", msg)

	followers, err = svc.Followers(ctx, b.ID, 0, "")
	require.NoError(t, err)
	assert.Empty(t, followers.Connections)
	assert.Zero(t, followers.TotalCount)
}

func TestFollowErrors(t *testing.T) {
	svc, db, _, _ := newService(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "ada")
	b := testutil.CreateUser(t, db, "bob")

	_, err := svc.Follow(ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = svc.Follow(ctx, a.ID, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.Follow(ctx, "missing", b.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.Follow(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	var count int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUnfollowIsIdempotent(t *testing.T) {
	svc, db, pub, _ := newService(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "ada")
	b := testutil.CreateUser(t, db, "bob")

	_, err := svc.Unfollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.Unfollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Empty(t, pub.events)

	_, err = svc.Unfollow(ctx, a.ID, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSuggestionsFillToTen(t *testing.T) {
	svc, db, _, _ := newService(t)
	ctx := context.Background()
	me := testutil.CreateUser(t, db, "me")
	friend := testutil.CreateUser(t, db, "friend")
	testutil.Follow(t, db, me, friend)

	fof := testutil.CreateUser(t, db, "fof")
	testutil.Follow(t, db, friend, fof)
	for i := 0; i < 15; i++ {
		testutil.CreateUser(t, db, fmt.Sprintf("user%02d", i))
	}

	got, err := svc.Suggestions(ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, got, SuggestionCount)

	seen := map[string]bool{}
	for _, u := range got {
		assert.NotEqual(t, me.ID, u.ID)
		assert.NotEqual(t, friend.ID, u.ID)
		assert.False(t, seen[u.ID], "duplicate suggestion %s", u.Username)
		seen[u.ID] = true
	}
	assert.Equal(t, fof.ID, got[0].ID)
}

func TestSuggestionsForUnknownUserIsEmpty(t *testing.T) {
	svc, db, _, _ := newService(t)
	testutil.CreateUser(t, db, "someone")

	got, err := svc.Suggestions(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFollowersPaginationAndFilter(t *testing.T) {
	svc, db, _, _ := newService(t)
	ctx := context.Background()
	star := testutil.CreateUser(t, db, "star")
	for i := 0; i < 14; i++ {
		testutil.Follow(t, db, testutil.CreateUser(t, db, fmt.Sprintf("fan%02d", i)), star)
	}

	first, err := svc.Followers(ctx, star.ID, 0, "")
	require.NoError(t, err)
	assert.Len(t, first.Connections, PageSize)
	assert.EqualValues(t, 14, first.TotalCount)

	second, err := svc.Followers(ctx, star.ID, 10, "")
	require.NoError(t, err)
	assert.Len(t, second.Connections, 4)

	filtered, err := svc.Followers(ctx, star.ID, -5, "FAN1")
	require.NoError(t, err)
	assert.Len(t, filtered.Connections, 4)
	assert.EqualValues(t, 4, filtered.TotalCount)

	_, err = svc.Followers(ctx, "missing", 0, "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProfile(t *testing.T) {
	svc, db, _, _ := newService(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "ada")
	b := testutil.CreateUser(t, db, "bob")
	testutil.Follow(t, db, a, b)
	testutil.CreatePost(t, db, b, "hello", testutil.Now())

	view, err := svc.Profile(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, view.FollowersCount)
	assert.Zero(t, view.FollowingCount)
	assert.True(t, view.IsFollowing)
	require.Len(t, view.Posts, 1)
	assert.Equal(t, "bob", view.Posts[0].Author.Username)

	_, err = svc.Profile(ctx, a.ID, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, "Profile not found", apperrors.From(err).Message)
}

func TestUploadProfilePictureReplacesPrevious(t *testing.T) {
	svc, db, _, images := newService(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "ada")

	first, err := svc.UploadProfilePicture(ctx, a.ID, "me.png", strings.NewReader("1"), 1)
	require.NoError(t, err)
	assert.Empty(t, images.deleted)

	images.deleteErr = errors.New("s3 down")
	second, err := svc.UploadProfilePicture(ctx, a.ID, "me2.png", strings.NewReader("2"), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ProfilePictureKey}, images.deleted)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", a.ID).Error)
	assert.Equal(t, second.ProfilePicture, reloaded.ProfilePicture)
}

func TestUploadProfilePictureWithoutStorage(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db, nil, nil)
	a := testutil.CreateUser(t, db, "ada")

	_, err := svc.UploadProfilePicture(context.Background(), a.ID, "me.png", strings.NewReader("1"), 1)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamFailure)
}
