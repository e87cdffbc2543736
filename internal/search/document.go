package search

import (
	"strings"
	"time"

	"github.com/zfogg/plaza/internal/models"
)

// UserDocument is the indexed form of a user. Text fields are lower-cased
// so case-insensitive wildcards work on keyword fields.
type UserDocument struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// PostDocument is the indexed form of a post
type PostDocument struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	HashTags  []string  `json:"hash_tags"`
	HasImage  bool      `json:"has_image"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUserDocument(u *models.User) UserDocument {
	return UserDocument{
		ID:        u.ID,
		Username:  strings.ToLower(u.Username),
		Email:     strings.ToLower(u.Email),
		CreatedAt: u.CreatedAt,
	}
}

func NewPostDocument(p *models.Post) PostDocument {
	tags := make([]string, 0, len(p.Hashtags))
	for _, t := range p.Tags() {
		tags = append(tags, strings.ToLower(t))
	}
	return PostDocument{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Title:     strings.ToLower(p.Title),
		HashTags:  tags,
		HasImage:  p.ImageURL != "",
		CreatedAt: p.CreatedAt,
	}
}
