package seed

import (
	"context"
	"fmt"
	"io"

	"github.com/zfogg/plaza/internal/models"
)

// TagCount is how many posts carry one hashtag
type TagCount struct {
	Tag   string
	Posts int64
}

// Summary describes what a database holds after seeding
type Summary struct {
	Users, Follows, Posts, Likes, Comments, Stories, StoryViews int64

	TopTags []TagCount
	// Orphans counts posts whose author row is missing
	Orphans int64
}

// Verify counts every table and checks that posts point at real users
func (s *Seeder) Verify(ctx context.Context) (*Summary, error) {
	db := s.db.WithContext(ctx)
	sum := &Summary{}

	counts := []struct {
		model interface{}
		dst   *int64
	}{
		{&models.User{}, &sum.Users},
		{&models.Follow{}, &sum.Follows},
		{&models.Post{}, &sum.Posts},
		{&models.PostLike{}, &sum.Likes},
		{&models.Comment{}, &sum.Comments},
		{&models.Story{}, &sum.Stories},
		{&models.StoryView{}, &sum.StoryViews},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}

	err := db.Model(&models.PostHashtag{}).
		Select("tag, COUNT(DISTINCT post_id) AS posts").
		Group("tag").
		Order("posts DESC, tag").
		Limit(5).
		Scan(&sum.TopTags).Error
	if err != nil {
		return nil, fmt.Errorf("top tags: %w", err)
	}

	err = db.Model(&models.Post{}).
		Where("author_id NOT IN (?)", db.Model(&models.User{}).Select("id")).
		Count(&sum.Orphans).Error
	if err != nil {
		return nil, fmt.Errorf("orphans: %w", err)
	}
	return sum, nil
}

// Print writes a readable report of sum
func (sum *Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "Record counts:")
	fmt.Fprintf(w, "  Users:        %d\n", sum.Users)
	fmt.Fprintf(w, "  Follows:      %d\n", sum.Follows)
	fmt.Fprintf(w, "  Posts:        %d\n", sum.Posts)
	fmt.Fprintf(w, "  Likes:        %d\n", sum.Likes)
	fmt.Fprintf(w, "  Comments:     %d\n", sum.Comments)
	fmt.Fprintf(w, "  Stories:      %d\n", sum.Stories)
	fmt.Fprintf(w, "  Story views:  %d\n", sum.StoryViews)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Top hashtags:")
	for _, t := range sum.TopTags {
		fmt.Fprintf(w, "  #%s (%d posts)\n", t.Tag, t.Posts)
	}
	if sum.Orphans > 0 {
		fmt.Fprintf(w, "\n%d posts have no author\n", sum.Orphans)
	}
}
