package models

import "time"

// DefaultMessageType is used when a sender does not specify one.
const DefaultMessageType = "text"

// Channel is a named group chat room.
type Channel struct {
	ID             string    `gorm:"primaryKey" json:"id" yaml:"id"`
	Name           string    `gorm:"not null" json:"name" yaml:"name"`
	Description    *string   `json:"description" yaml:"description"`
	Icon           string    `gorm:"not null" json:"icon" yaml:"icon"`
	Emoji          *string   `json:"emoji" yaml:"emoji"`
	IsAnnouncement bool      `gorm:"not null;default:false" json:"is_announcement" yaml:"is_announcement"`
	MemberCount    int64     `gorm:"not null;default:0" json:"member_count" yaml:"-"`
	CreatedAt      time.Time `json:"created_at" yaml:"-"`
}

func (Channel) TableName() string {
	return "channels"
}

// ChannelMember records a persisted membership.
type ChannelMember struct {
	ChannelID string    `gorm:"primaryKey" json:"channel_id"`
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	JoinedAt  time.Time `json:"joined_at"`
}

func (ChannelMember) TableName() string {
	return "channel_members"
}

// Message is an immutable chat message. Username is a snapshot taken at send time.
type Message struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	ChannelID   string    `gorm:"not null;index" json:"channel_id"`
	UserID      string    `gorm:"not null" json:"user_id"`
	Username    string    `gorm:"not null" json:"username"`
	Content     string    `gorm:"not null" json:"content"`
	MessageType string    `gorm:"not null;default:'text'" json:"message_type"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}
