package models

import "time"

// User is an account. Registered users carry a password hash; chat-only users
// created from a device id do not.
type User struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	Username        string    `gorm:"uniqueIndex;not null" json:"username"`
	Email           *string   `gorm:"uniqueIndex" json:"email"`
	PasswordHash    *string   `json:"-"`
	DeviceID        *string   `gorm:"uniqueIndex" json:"device_id,omitempty"`
	AvatarURL       *string   `json:"avatar_url"`
	InstagramHandle *string   `json:"instagram_handle"`
	HabeshaStatus   *string   `json:"habesha_status"`
	CreatedAt       time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// PublicProfile is the view of a user exposed to other users.
type PublicProfile struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	AvatarURL       *string   `json:"avatar_url"`
	InstagramHandle *string   `json:"instagram_handle"`
	HabeshaStatus   *string   `json:"habesha_status"`
	CreatedAt       time.Time `json:"created_at"`
	PostCount       int64     `json:"post_count"`
}
