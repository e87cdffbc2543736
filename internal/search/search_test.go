package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/models"
	"github.com/zfogg/plaza/internal/testutil"
	"gorm.io/gorm"
)

type SearchServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *Service
	ctx     context.Context
	base    time.Time
}

func (s *SearchServiceTestSuite) SetupSuite() {
	logger.InitializeNop()
}

func (s *SearchServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewDB(s.T())
	s.service = NewService(s.db, nil)
	s.base = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
}

func (s *SearchServiceTestSuite) post(author *models.User, title string, minutes int, tags ...string) *models.Post {
	p := testutil.CreatePost(s.T(), s.db, author, title, s.base.Add(time.Duration(minutes)*time.Minute))
	s.Require().NoError(s.db.Model(p).Update("title", title).Error)
	for i, t := range tags {
		s.Require().NoError(s.db.Create(&models.PostHashtag{PostID: p.ID, Position: i, Tag: t}).Error)
	}
	return p
}

func titles(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}

func (s *SearchServiceTestSuite) TestUsersByUsernameOrEmail() {
	testutil.CreateUser(s.T(), s.db, "Gardener")
	testutil.CreateUser(s.T(), s.db, "baker")
	testutil.CreateUser(s.T(), s.db, "gardenia")

	res, err := s.service.Search(s.ctx, "viewer", "GARDEN", "users", 0)
	s.Require().NoError(err)
	s.Require().Len(res.Users, 2)
	s.Equal("Gardener", res.Users[0].Username)
	s.Equal("gardenia", res.Users[1].Username)
	s.Equal("database", res.Backend)

	res, err = s.service.Search(s.ctx, "viewer", "baker@example", "users", 0)
	s.Require().NoError(err)
	s.Require().Len(res.Users, 1)
}

func (s *SearchServiceTestSuite) TestLikeWildcardsAreLiteral() {
	testutil.CreateUser(s.T(), s.db, "a_b")
	testutil.CreateUser(s.T(), s.db, "axb")

	res, err := s.service.Search(s.ctx, "", "a_b", "users", 0)
	s.Require().NoError(err)
	s.Require().Len(res.Users, 1)
	s.Equal("a_b", res.Users[0].Username)

	res, err = s.service.Search(s.ctx, "", "%", "users", 0)
	s.Require().NoError(err)
	s.Empty(res.Users)
}

func (s *SearchServiceTestSuite) TestBlogsMatchTitleOrTag() {
	author := testutil.CreateUser(s.T(), s.db, "author")
	s.post(author, "Sunset over the bay", 1)
	s.post(author, "Lunch", 2, "sunsetlover")
	s.post(author, "Unrelated", 3, "food")

	res, err := s.service.Search(s.ctx, "", "sunset", "blogs", 0)
	s.Require().NoError(err)
	s.Equal([]string{"Lunch", "Sunset over the bay"}, titles(res.Posts))
	s.Equal("author", res.Posts[0].Author.Username)
}

func (s *SearchServiceTestSuite) TestImagesMatchTagsOnly() {
	author := testutil.CreateUser(s.T(), s.db, "author")
	fan := testutil.CreateUser(s.T(), s.db, "fan")
	s.post(author, "Mountain", 1)
	tagged := s.post(author, "Hike", 2, "Mountains")
	s.Require().NoError(s.db.Create(&models.Comment{PostID: tagged.ID, AuthorID: fan.ID, Content: "wow"}).Error)

	res, err := s.service.Search(s.ctx, "", "mountain", "images", 0)
	s.Require().NoError(err)
	s.Require().Equal([]string{"Hike"}, titles(res.Posts))
	s.Require().Len(res.Posts[0].Comments, 1)
	s.Equal("fan", res.Posts[0].Comments[0].Author.Username)
}

func (s *SearchServiceTestSuite) TestPagination() {
	author := testutil.CreateUser(s.T(), s.db, "author")
	for i := 0; i < 12; i++ {
		s.post(author, "post", i, "daily")
	}

	res, err := s.service.Search(s.ctx, "", "daily", "images", 0)
	s.Require().NoError(err)
	s.Len(res.Posts, PageSize)

	res, err = s.service.Search(s.ctx, "", "daily", "images", 10)
	s.Require().NoError(err)
	s.Len(res.Posts, 2)

	res, err = s.service.Search(s.ctx, "", "daily", "images", -4)
	s.Require().NoError(err)
	s.Len(res.Posts, PageSize)
}

func (s *SearchServiceTestSuite) TestUnsupportedKind() {
	_, err := s.service.Search(s.ctx, "", "x", "videos", 0)
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrInvalidArgument)
	s.Equal("Unsupported item: videos", apperrors.From(err).Message)
}

func (s *SearchServiceTestSuite) TestFallsBackWhenPrimaryFails() {
	testutil.CreateUser(s.T(), s.db, "fallback")
	svc := NewService(s.db, failingSearcher{})

	res, err := svc.Search(s.ctx, "", "fall", "users", 0)
	s.Require().NoError(err)
	s.Equal("database", res.Backend)
	s.Len(res.Users, 1)
}

func (s *SearchServiceTestSuite) TestItemsNeverNil() {
	res, err := s.service.Search(s.ctx, "", "nobody", "users", 0)
	s.Require().NoError(err)
	s.Equal([]models.User{}, res.Items())

	res, err = s.service.Search(s.ctx, "", "nothing", "blogs", 0)
	s.Require().NoError(err)
	s.Equal([]models.Post{}, res.Items())
}

func (s *SearchServiceTestSuite) TestReindexWalksEverything() {
	author := testutil.CreateUser(s.T(), s.db, "author")
	testutil.CreateUser(s.T(), s.db, "other")
	s.post(author, "one", 1, "a")
	s.post(author, "two", 2)

	idx := &countingIndexer{}
	stats, err := Reindex(s.ctx, s.db, idx)
	s.Require().NoError(err)
	s.Equal(2, stats.Users)
	s.Equal(2, stats.Posts)
	s.Equal(0, stats.Failed)
	s.Contains(idx.tags, "a")
}

func TestSearchServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SearchServiceTestSuite))
}

type failingSearcher struct{}

func (failingSearcher) Name() string { return "broken" }
func (failingSearcher) Users(context.Context, string, int, int) ([]models.User, error) {
	return nil, errors.New("connection refused")
}
func (failingSearcher) Blogs(context.Context, string, int, int) ([]models.Post, error) {
	return nil, errors.New("connection refused")
}
func (failingSearcher) Images(context.Context, string, int, int) ([]models.Post, error) {
	return nil, errors.New("connection refused")
}

type countingIndexer struct {
	users, posts int
	tags         []string
}

func (c *countingIndexer) IndexUser(ctx context.Context, u *models.User) error {
	c.users++
	return nil
}

func (c *countingIndexer) IndexPost(ctx context.Context, p *models.Post) error {
	c.posts++
	c.tags = append(c.tags, p.Tags()...)
	return nil
}

func (c *countingIndexer) DeletePost(ctx context.Context, id string) error { return nil }

// fakeElastic answers just enough of the REST API for the client
type fakeElastic struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
	hits     []string
}

func (f *fakeElastic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/_search"):
		hits := make([]map[string]string, 0, len(f.hits))
		for _, id := range f.hits {
			hits = append(hits, map[string]string{"_id": id})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"hits": map[string]interface{}{"hits": hits},
		})
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	default:
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}
}

func TestElasticIndexerWritesDocuments(t *testing.T) {
	logger.InitializeNop()
	fake := &fakeElastic{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client, err := NewClient(srv.URL, http.DefaultTransport)
	require.NoError(t, err)
	idx := NewElasticIndexer(client)
	ctx := context.Background()

	require.NoError(t, idx.IndexUser(ctx, &models.User{ID: "u1", Username: "Alice", Email: "A@X.io"}))
	require.NoError(t, idx.IndexPost(ctx, &models.Post{ID: "p1", Title: "Hello", Hashtags: []models.PostHashtag{{Tag: "Sun"}}}))
	require.NoError(t, idx.DeletePost(ctx, "gone"))

	require.Len(t, fake.requests, 3)
	assert.Equal(t, "PUT /plaza-users/_doc/u1", fake.requests[0])
	assert.Contains(t, fake.bodies[0], `"username":"alice"`)
	assert.Contains(t, fake.bodies[1], `"hash_tags":["sun"]`)
	assert.Equal(t, "DELETE /plaza-posts/_doc/gone", fake.requests[2])
}

func TestElasticSearcherKeepsHitOrder(t *testing.T) {
	logger.InitializeNop()
	db := testutil.NewDB(t)
	first := testutil.CreateUser(t, db, "first")
	second := testutil.CreateUser(t, db, "second")

	fake := &fakeElastic{hits: []string{second.ID, "deleted", first.ID}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client, err := NewClient(srv.URL, http.DefaultTransport)
	require.NoError(t, err)
	svc := NewService(db, NewElasticSearcher(client, db))

	res, err := svc.Search(context.Background(), "", "Some*Thing", "users", 0)
	require.NoError(t, err)
	assert.Equal(t, "elasticsearch", res.Backend)
	require.Len(t, res.Users, 2)
	assert.Equal(t, "second", res.Users[0].Username)
	assert.Equal(t, "first", res.Users[1].Username)

	last := fake.bodies[len(fake.bodies)-1]
	assert.Contains(t, last, `*some\\*thing*`)
}

func TestElasticSearcherFallsBackOnTransportError(t *testing.T) {
	logger.InitializeNop()
	db := testutil.NewDB(t)
	testutil.CreateUser(t, db, "survivor")

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewClient(url, http.DefaultTransport)
	require.NoError(t, err)
	svc := NewService(db, NewElasticSearcher(client, db))

	res, err := svc.Search(context.Background(), "", "surv", "users", 0)
	require.NoError(t, err)
	assert.Equal(t, "database", res.Backend)
	assert.Len(t, res.Users, 1)
}
