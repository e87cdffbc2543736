package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Post is a user's published entry. Hashtags are derived from HashTagInput
// when the post is created or updated.
type Post struct {
	ID           string        `gorm:"primaryKey;size:36" json:"id"`
	AuthorID     string        `gorm:"size:36;not null;index" json:"author_id"`
	Author       User          `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	Content      string        `json:"content"`
	Title        string        `json:"title"`
	Body         string        `json:"body"`
	HashTagInput string        `json:"hash_tag"`
	ImageURL     string        `json:"image_url"`
	ImageKey     string        `json:"-"`
	Hashtags     []PostHashtag `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Likes        []PostLike    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Comments     []Comment     `gorm:"constraint:OnDelete:CASCADE" json:"comments"`
	CreatedAt    time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

// Tags returns the post's hashtags in stored order
func (p *Post) Tags() []string {
	tags := make([]string, 0, len(p.Hashtags))
	for _, h := range p.Hashtags {
		tags = append(tags, h.Tag)
	}
	return tags
}

// LikedBy returns the ids of users who liked the post
func (p *Post) LikedBy() []string {
	ids := make([]string, 0, len(p.Likes))
	for _, l := range p.Likes {
		ids = append(ids, l.UserID)
	}
	return ids
}

// MarshalJSON flattens hashtags and likes into plain string lists and
// renders the author as its public summary
func (p Post) MarshalJSON() ([]byte, error) {
	type alias Post
	return json.Marshal(struct {
		alias
		Author   UserSummary `json:"author"`
		HashTags []string    `json:"hash_tags"`
		Likes    []string    `json:"likes"`
	}{alias(p), p.Author.Summary(), p.Tags(), p.LikedBy()})
}

// PostHashtag is one #tag of a post. Position keeps the order the tags
// were written in, repeats included.
type PostHashtag struct {
	PostID   string `gorm:"primaryKey;size:36" json:"post_id"`
	Position int    `gorm:"primaryKey;autoIncrement:false" json:"position"`
	Tag      string `gorm:"not null;index" json:"tag"`
}

// HashtagsInOrder is the preload scope for Post.Hashtags
func HashtagsInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

// PostLike records that UserID liked PostID. The composite key allows one
// like per user per post.
type PostLike struct {
	PostID    string    `gorm:"primaryKey;size:36" json:"post_id"`
	UserID    string    `gorm:"primaryKey;size:36;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"size:36;not null;index" json:"post_id"`
	AuthorID  string    `gorm:"size:36;not null" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	Content   string    `gorm:"not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MarshalJSON exposes only the public fields of the comment's author
func (c Comment) MarshalJSON() ([]byte, error) {
	type alias Comment
	return json.Marshal(struct {
		alias
		Author UserSummary `json:"author"`
	}{alias(c), c.Author.Summary()})
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}
