package models

import "time"

// Post is a feed entry. At least one of Content and ImageURL is set.
type Post struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"not null;index" json:"user_id"`
	Content    *string   `json:"content"`
	ImageURL   *string   `json:"image_url"`
	LikesCount int64     `gorm:"not null;default:0" json:"likes_count"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Post) TableName() string {
	return "posts"
}

// PostLike records one user's like of one post.
type PostLike struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    string    `gorm:"not null;uniqueIndex:idx_post_user" json:"post_id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_post_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (PostLike) TableName() string {
	return "post_likes"
}

// FeedPost is a post joined with its author and the viewer's like state.
type FeedPost struct {
	ID         string    `json:"id"`
	Content    *string   `json:"content"`
	ImageURL   *string   `json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
	LikesCount int64     `json:"likes_count"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	AvatarURL  *string   `json:"avatar_url"`
	IsLiked    bool      `json:"is_liked"`
}
