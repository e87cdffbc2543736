package models

import (
	"time"

	"gorm.io/gorm"
)

// StoryTTL is how long a story stays fresh after creation
const StoryTTL = 24 * time.Hour

// Story is an image a user shares with their followers. Freshness is
// decided at read time; stories are never purged.
type Story struct {
	ID        string      `gorm:"primaryKey;size:36" json:"id"`
	UserID    string      `gorm:"size:36;not null;index:idx_stories_user_created" json:"user_id"`
	User      User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ImageURL  string      `gorm:"not null" json:"image_url"`
	ImageKey  string      `json:"-"`
	Views     []StoryView `gorm:"constraint:OnDelete:CASCADE" json:"views"`
	CreatedAt time.Time   `gorm:"index:idx_stories_user_created" json:"created_at"`
}

func (s *Story) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateUUID()
	}
	return nil
}

// IsFresh reports whether the story is within StoryTTL of now
func (s *Story) IsFresh(now time.Time) bool {
	return s.CreatedAt.After(now.Add(-StoryTTL))
}

// StoryView records one viewer of a story; (story_id, viewer_id) is unique.
type StoryView struct {
	ID       string    `gorm:"primaryKey;size:36" json:"id"`
	StoryID  string    `gorm:"size:36;not null;uniqueIndex:idx_story_views_unique" json:"story_id"`
	ViewerID string    `gorm:"size:36;not null;uniqueIndex:idx_story_views_unique" json:"viewer_id"`
	Viewer   User      `gorm:"foreignKey:ViewerID;constraint:OnDelete:CASCADE" json:"viewer"`
	ViewedAt time.Time `json:"viewed_at"`
}

func (v *StoryView) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = generateUUID()
	}
	return nil
}
