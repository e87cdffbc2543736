package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/zfogg/plaza/internal/auth"
	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/models"
	"github.com/zfogg/plaza/internal/posts"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every seeded account
const DefaultPassword = "password123"

// seedDomain marks seeded accounts so Clean can find them
const seedDomain = "@example.com"

var hashtagNames = []string{
	"golang", "travel", "food", "music", "photography", "coffee",
	"running", "books", "design", "sunset", "weekend", "throwback",
}

// Counts sizes one seeding run
type Counts struct {
	Users        int
	PostsPerUser int
	// FollowsPerUser is an upper bound; self-follows and repeats are skipped
	FollowsPerUser int
	Likes          int
	Comments       int
	Stories        int
}

// DevCounts gives a feed deep enough to page through every heading
func DevCounts() Counts {
	return Counts{Users: 200, PostsPerUser: 5, FollowsPerUser: 15, Likes: 4000, Comments: 2000, Stories: 150}
}

// Seeder handles database seeding operations
type Seeder struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewSeeder creates a seeder. A zero seed picks a random one.
func NewSeeder(db *gorm.DB, seed uint64) *Seeder {
	f := gofakeit.New(seed)
	return &Seeder{db: db, faker: f, now: func() time.Time { return time.Now().UTC() }}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev(ctx context.Context) error {
	return s.Seed(ctx, DevCounts())
}

// Seed creates users, the follow graph, posts with hashtags, likes,
// comments and stories
func (s *Seeder) Seed(ctx context.Context, c Counts) error {
	hash, err := auth.NewArgon2Hasher().Hash(DefaultPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	logger.Log.Info("Creating users...")
	users, err := s.seedUsers(ctx, c.Users, hash)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	if len(users) < 2 {
		return nil
	}

	logger.Log.Info("Creating follows...")
	if err := s.seedFollows(ctx, users, c.FollowsPerUser); err != nil {
		return fmt.Errorf("failed to seed follows: %w", err)
	}

	logger.Log.Info("Creating posts...")
	created, err := s.seedPosts(ctx, users, c.PostsPerUser)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	logger.Log.Info("Creating likes and comments...")
	if err := s.seedLikes(ctx, users, created, c.Likes); err != nil {
		return fmt.Errorf("failed to seed likes: %w", err)
	}
	if err := s.seedComments(ctx, users, created, c.Comments); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	logger.Log.Info("Creating stories...")
	if err := s.seedStories(ctx, users, c.Stories); err != nil {
		return fmt.Errorf("failed to seed stories: %w", err)
	}

	logger.Log.Info("Seed complete",
		zap.Int("users", len(users)),
		zap.Int("posts", len(created)),
	)
	return nil
}

// SeedTest creates a small fixed cast with known credentials
func (s *Seeder) SeedTest(ctx context.Context) error {
	hash, err := auth.NewArgon2Hasher().Hash(DefaultPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	names := []string{"alice", "bob", "charlie", "diana", "eve"}
	users := make([]models.User, 0, len(names))
	for _, name := range names {
		u := models.User{Username: name, Email: name + seedDomain, PasswordHash: hash, Bio: s.faker.HipsterSentence()}
		if err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&u).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
		var stored models.User
		if err := s.db.WithContext(ctx).Where("email = ?", u.Email).First(&stored).Error; err != nil {
			return err
		}
		users = append(users, stored)
	}

	// alice follows everyone, bob follows alice
	edges := [][2]int{{0, 1}, {0, 2}, {0, 3}, {0, 4}, {1, 0}}
	for _, e := range edges {
		if err := s.follow(ctx, users[e[0]].ID, users[e[1]].ID); err != nil {
			return err
		}
	}

	now := s.now()
	for i, u := range users {
		p := models.Post{
			AuthorID:     u.ID,
			Content:      fmt.Sprintf("Hello from %s", u.Username),
			HashTagInput: "#" + hashtagNames[i%len(hashtagNames)],
			CreatedAt:    now.Add(-time.Duration(i) * time.Hour),
		}
		if err := s.createPost(ctx, &p); err != nil {
			return err
		}
	}

	logger.Log.Info("Test users ready", zap.Strings("usernames", names), zap.String("password", DefaultPassword))
	return nil
}

// Clean removes every seeded account. Their posts, follows, likes,
// comments, stories and views go with them.
func (s *Seeder) Clean(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seeded := tx.Model(&models.User{}).Select("id").Where("email LIKE ?", "%"+seedDomain)
		seededPosts := tx.Model(&models.Post{}).Select("id").Where("author_id IN (?)", seeded)
		seededStories := tx.Model(&models.Story{}).Select("id").Where("user_id IN (?)", seeded)

		steps := []struct {
			name string
			run  func() error
		}{
			{"story_views", func() error {
				return tx.Where("story_id IN (?) OR viewer_id IN (?)", seededStories, seeded).Delete(&models.StoryView{}).Error
			}},
			{"stories", func() error { return tx.Where("user_id IN (?)", seeded).Delete(&models.Story{}).Error }},
			{"comments", func() error {
				return tx.Where("post_id IN (?) OR author_id IN (?)", seededPosts, seeded).Delete(&models.Comment{}).Error
			}},
			{"post_likes", func() error {
				return tx.Where("post_id IN (?) OR user_id IN (?)", seededPosts, seeded).Delete(&models.PostLike{}).Error
			}},
			{"post_hashtags", func() error { return tx.Where("post_id IN (?)", seededPosts).Delete(&models.PostHashtag{}).Error }},
			{"posts", func() error { return tx.Where("author_id IN (?)", seeded).Delete(&models.Post{}).Error }},
			{"follows", func() error {
				return tx.Where("follower_id IN (?) OR followee_id IN (?)", seeded, seeded).Delete(&models.Follow{}).Error
			}},
			{"otps", func() error { return tx.Where("email LIKE ?", "%"+seedDomain).Delete(&models.OTP{}).Error }},
			{"users", func() error { return tx.Where("email LIKE ?", "%"+seedDomain).Delete(&models.User{}).Error }},
		}
		for _, step := range steps {
			if err := step.run(); err != nil {
				return fmt.Errorf("failed to clean %s: %w", step.name, err)
			}
		}
		return nil
	})
}

func (s *Seeder) seedUsers(ctx context.Context, count int, hash string) ([]models.User, error) {
	users := make([]models.User, 0, count)
	taken := make(map[string]bool, count)
	for len(users) < count {
		name := strings.ToLower(s.faker.Username())
		if taken[name] {
			name = fmt.Sprintf("%s%d", name, s.faker.Number(10, 9999))
		}
		if taken[name] {
			continue
		}
		taken[name] = true

		u := models.User{
			Username:       name,
			Email:          name + seedDomain,
			PasswordHash:   hash,
			Bio:            s.faker.HipsterSentence(),
			ProfilePicture: fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", name),
			CreatedAt:      s.pastMonth(),
		}
		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&u)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to create user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// already seeded by an earlier run
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Seeder) follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error
}

func (s *Seeder) seedFollows(ctx context.Context, users []models.User, perUser int) error {
	for _, u := range users {
		n := s.faker.Number(0, perUser)
		for i := 0; i < n; i++ {
			target := users[s.faker.Number(0, len(users)-1)]
			if err := s.follow(ctx, u.ID, target.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) createPost(ctx context.Context, p *models.Post) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}
		tags := posts.ExtractHashtags(p.HashTagInput)
		if len(tags) == 0 {
			return nil
		}
		rows := posts.TagRows(p.ID, tags)
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

func (s *Seeder) seedPosts(ctx context.Context, users []models.User, perUser int) ([]models.Post, error) {
	created := make([]models.Post, 0, len(users)*perUser)
	for _, u := range users {
		n := s.faker.Number(1, perUser)
		for i := 0; i < n; i++ {
			p := models.Post{
				AuthorID:     u.ID,
				Content:      s.faker.HipsterSentence(),
				HashTagInput: s.randomTags(),
				CreatedAt:    s.pastMonth(),
			}
			// roughly a third are blogs, a third carry an image
			switch s.faker.Number(0, 2) {
			case 0:
				p.Title = s.faker.BookTitle()
				p.Body = s.faker.HipsterSentence() + " " + s.faker.HipsterSentence()
			case 1:
				p.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", s.faker.UUID())
			}
			if err := s.createPost(ctx, &p); err != nil {
				return nil, err
			}
			created = append(created, p)
		}
	}
	return created, nil
}

func (s *Seeder) randomTags() string {
	n := s.faker.Number(1, 3)
	tags := make([]string, 0, n)
	for i := 0; i < n; i++ {
		tags = append(tags, "#"+hashtagNames[s.faker.Number(0, len(hashtagNames)-1)])
	}
	return strings.Join(tags, " ")
}

func (s *Seeder) seedLikes(ctx context.Context, users []models.User, created []models.Post, count int) error {
	if len(created) == 0 {
		return nil
	}
	for i := 0; i < count; i++ {
		like := models.PostLike{
			PostID: created[s.faker.Number(0, len(created)-1)].ID,
			UserID: users[s.faker.Number(0, len(users)-1)].ID,
		}
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedComments(ctx context.Context, users []models.User, created []models.Post, count int) error {
	if len(created) == 0 {
		return nil
	}
	for i := 0; i < count; i++ {
		post := created[s.faker.Number(0, len(created)-1)]
		c := models.Comment{
			PostID:    post.ID,
			AuthorID:  users[s.faker.Number(0, len(users)-1)].ID,
			Content:   s.faker.HipsterSentence(),
			CreatedAt: s.faker.DateRange(post.CreatedAt, s.now()),
		}
		if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&c).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedStories spreads stories over the last three days so both the fresh
// rail and the archive have content
func (s *Seeder) seedStories(ctx context.Context, users []models.User, count int) error {
	now := s.now()
	for i := 0; i < count; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		story := models.Story{
			UserID:    author.ID,
			ImageURL:  fmt.Sprintf("https://picsum.photos/seed/%s/1080/1920", s.faker.UUID()),
			CreatedAt: s.faker.DateRange(now.Add(-72*time.Hour), now),
		}
		if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&story).Error; err != nil {
			return err
		}

		views := s.faker.Number(0, 5)
		for v := 0; v < views; v++ {
			viewer := users[s.faker.Number(0, len(users)-1)]
			if viewer.ID == author.ID {
				continue
			}
			view := models.StoryView{StoryID: story.ID, ViewerID: viewer.ID, ViewedAt: s.faker.DateRange(story.CreatedAt, now)}
			if err := s.db.WithContext(ctx).
				Clauses(clause.OnConflict{DoNothing: true}).
				Omit(clause.Associations).
				Create(&view).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) pastMonth() time.Time {
	now := s.now()
	return s.faker.DateRange(now.AddDate(0, 0, -30), now)
}
