package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account. Username and email are unique and compared
// case-insensitively by the repository.
type User struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	Username          string    `gorm:"uniqueIndex;not null" json:"username"`
	Email             string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash      string    `json:"-"`
	Token             *string   `gorm:"index" json:"-"`
	IsBlocked         bool      `gorm:"default:false" json:"is_blocked"`
	ProfilePicture    string    `json:"profile_picture"`
	ProfilePictureKey string    `json:"-"`
	Bio               string    `json:"bio"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

// UserSummary is the public projection used when listing people and
// attaching authors to comments.
type UserSummary struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profile_picture"`
}

// Summary returns the public projection of u
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture}
}

// Follow is one directed edge of the follow graph: FollowerID follows FolloweeID.
type Follow struct {
	FollowerID string    `gorm:"primaryKey;size:36" json:"follower_id"`
	FolloweeID string    `gorm:"primaryKey;size:36;index;check:chk_follows_no_self,follower_id <> followee_id" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`

	Follower User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Followee User `gorm:"foreignKey:FolloweeID;constraint:OnDelete:CASCADE" json:"-"`
}

// OTP is a pending signup code. Rows past ExpiresAt count as absent.
type OTP struct {
	Email     string    `gorm:"primaryKey" json:"email"`
	Code      string    `gorm:"not null" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (OTP) TableName() string {
	return "otps"
}

func generateUUID() string {
	return uuid.New().String()
}

// All lists every model for AutoMigrate
func All() []interface{} {
	return []interface{}{
		&User{},
		&Follow{},
		&OTP{},
		&Post{},
		&PostHashtag{},
		&PostLike{},
		&Comment{},
		&Story{},
		&StoryView{},
	}
}
