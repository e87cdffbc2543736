package feed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/models"
	"github.com/zfogg/plaza/internal/testutil"
	"gorm.io/gorm"
)

type FeedServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *Service
	ctx     context.Context
	base    time.Time
}

func (s *FeedServiceTestSuite) SetupSuite() {
	logger.InitializeNop()
}

func (s *FeedServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewDB(s.T())
	s.service = NewService(s.db)
	s.base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *FeedServiceTestSuite) post(author *models.User, content string, minutes int) *models.Post {
	return testutil.CreatePost(s.T(), s.db, author, content, s.base.Add(time.Duration(minutes)*time.Minute))
}

func (s *FeedServiceTestSuite) like(p *models.Post, u *models.User) {
	s.Require().NoError(s.db.Create(&models.PostLike{PostID: p.ID, UserID: u.ID}).Error)
}

func (s *FeedServiceTestSuite) comment(p *models.Post, u *models.User) {
	s.Require().NoError(s.db.Create(&models.Comment{PostID: p.ID, AuthorID: u.ID, Content: "nice"}).Error)
}

func contents(items []FeedItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Post.Content)
	}
	return out
}

func (s *FeedServiceTestSuite) TestRecentIsNewestFirstAndPaged() {
	alice := testutil.CreateUser(s.T(), s.db, "alice")
	for i, c := range []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6"} {
		s.post(alice, c, i)
	}

	page, err := s.service.Fetch(s.ctx, "Recent", 0, alice.ID)
	s.Require().NoError(err)
	s.Equal([]string{"p6", "p5", "p4", "p3", "p2"}, contents(page))

	page, err = s.service.Fetch(s.ctx, "Recent", 5, alice.ID)
	s.Require().NoError(err)
	s.Equal([]string{"p1", "p0"}, contents(page))

	page, err = s.service.Fetch(s.ctx, "Recent", 50, alice.ID)
	s.Require().NoError(err)
	s.Empty(page)
}

func (s *FeedServiceTestSuite) TestRecentNegativeOffsetClamps() {
	alice := testutil.CreateUser(s.T(), s.db, "alice")
	s.post(alice, "only", 0)

	page, err := s.service.Fetch(s.ctx, "Recent", -3, alice.ID)
	s.Require().NoError(err)
	s.Equal([]string{"only"}, contents(page))
}

func (s *FeedServiceTestSuite) TestFriendsOnlyFollowees() {
	me := testutil.CreateUser(s.T(), s.db, "me")
	friend := testutil.CreateUser(s.T(), s.db, "friend")
	stranger := testutil.CreateUser(s.T(), s.db, "stranger")
	testutil.Follow(s.T(), s.db, me, friend)

	s.post(friend, "from friend", 1)
	s.post(stranger, "from stranger", 2)
	s.post(me, "from me", 3)

	page, err := s.service.Fetch(s.ctx, "Friends", 0, me.ID)
	s.Require().NoError(err)
	s.Equal([]string{"from friend"}, contents(page))
	s.Equal("friend", page[0].Post.Author.Username)
}

func (s *FeedServiceTestSuite) TestFriendsUnknownUser() {
	_, err := s.service.Fetch(s.ctx, "Friends", 0, "missing")
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrNotFound)
	s.Equal("User not found", apperrors.From(err).Message)
}

func (s *FeedServiceTestSuite) TestPopularRanking() {
	author := testutil.CreateUser(s.T(), s.db, "author")
	fans := []*models.User{
		testutil.CreateUser(s.T(), s.db, "fan1"),
		testutil.CreateUser(s.T(), s.db, "fan2"),
		testutil.CreateUser(s.T(), s.db, "fan3"),
		testutil.CreateUser(s.T(), s.db, "fan4"),
	}

	liked := s.post(author, "four likes", 0)
	for _, f := range fans {
		s.like(liked, f)
	}
	discussed := s.post(author, "two comments", 1)
	s.comment(discussed, fans[0])
	s.comment(discussed, fans[1])
	s.post(author, "quiet old", 2)
	s.post(author, "quiet new", 3)

	page, err := s.service.Fetch(s.ctx, "Popular", 0, author.ID)
	s.Require().NoError(err)
	s.Equal([]string{"two comments", "four likes", "quiet new", "quiet old"}, contents(page))

	s.Equal(2, page[0].TotalComments)
	s.Equal(0, page[0].TotalLikes)
	s.Equal(6, page[0].EngagementScore)
	s.Equal(4, page[1].TotalLikes)
	s.Equal(4, page[1].EngagementScore)
	s.Equal(0, page[3].EngagementScore)
}

func (s *FeedServiceTestSuite) TestPopularPagesOverFullOrdering() {
	author := testutil.CreateUser(s.T(), s.db, "author")
	fan := testutil.CreateUser(s.T(), s.db, "fan")

	for i := 0; i < 6; i++ {
		s.post(author, "plain", i)
	}
	oldest := s.post(author, "liked oldest", -10)
	s.like(oldest, fan)

	page, err := s.service.Fetch(s.ctx, "Popular", 0, author.ID)
	s.Require().NoError(err)
	s.Require().Len(page, PageSize)
	s.Equal("liked oldest", page[0].Post.Content)

	rest, err := s.service.Fetch(s.ctx, "Popular", PageSize, author.ID)
	s.Require().NoError(err)
	s.Len(rest, 2)
}

func (s *FeedServiceTestSuite) TestCommentsCarryAuthors() {
	author := testutil.CreateUser(s.T(), s.db, "author")
	fan := testutil.CreateUser(s.T(), s.db, "fan")
	p := s.post(author, "hello", 0)
	s.comment(p, fan)

	page, err := s.service.Fetch(s.ctx, "Recent", 0, author.ID)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Require().Len(page[0].Post.Comments, 1)
	s.Equal("fan", page[0].Post.Comments[0].Author.Username)
}

func (s *FeedServiceTestSuite) TestPopularJSONShowsOnlyPublicAuthorFields() {
	author := testutil.CreateUser(s.T(), s.db, "author")
	fan := testutil.CreateUser(s.T(), s.db, "fan")
	p := s.post(author, "hello", 0)
	s.comment(p, fan)

	page, err := s.service.Fetch(s.ctx, "Popular", 0, author.ID)
	s.Require().NoError(err)
	raw, err := json.Marshal(page)
	s.Require().NoError(err)

	var out []struct {
		Post struct {
			Author   map[string]interface{} `json:"author"`
			Comments []struct {
				Author map[string]interface{} `json:"author"`
			} `json:"comments"`
		} `json:"post"`
	}
	s.Require().NoError(json.Unmarshal(raw, &out))
	s.Require().Len(out, 1)
	s.Require().Len(out[0].Post.Comments, 1)

	commenter := out[0].Post.Comments[0].Author
	s.Equal("fan", commenter["username"])
	s.Equal(fan.ID, commenter["id"])
	s.NotContains(commenter, "email")
	s.NotContains(commenter, "is_blocked")
	s.NotContains(out[0].Post.Author, "email")
}

func (s *FeedServiceTestSuite) TestUnsupportedHeading() {
	_, err := s.service.Fetch(s.ctx, "Trending", 0, "")
	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrInvalidArgument)
	s.Equal("Unsupported heading: Trending", apperrors.From(err).Message)
}

func TestFeedServiceTestSuite(t *testing.T) {
	suite.Run(t, new(FeedServiceTestSuite))
}

func TestEngagementScore(t *testing.T) {
	assert.Equal(t, 0, EngagementScore(0, 0))
	assert.Equal(t, 5, EngagementScore(5, 0))
	assert.Equal(t, 9, EngagementScore(0, 3))
	assert.Equal(t, 13, EngagementScore(4, 3))
}

func TestRankByEngagementTieBreaks(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []FeedItem{
		{Post: models.Post{ID: "a", CreatedAt: at}, EngagementScore: 3},
		{Post: models.Post{ID: "b", CreatedAt: at.Add(time.Hour)}, EngagementScore: 3},
		{Post: models.Post{ID: "c", CreatedAt: at}, EngagementScore: 3},
		{Post: models.Post{ID: "d", CreatedAt: at}, EngagementScore: 7},
	}
	RankByEngagement(items)

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.Post.ID)
	}
	assert.Equal(t, []string{"d", "b", "c", "a"}, ids)
}

func TestParseHeadingIgnoresCase(t *testing.T) {
	h, err := ParseHeading("popular")
	assert.NoError(t, err)
	assert.Equal(t, Popular, h)
}
