package models

import "time"

// Event is a directory entry. IDs are chosen by the caller.
type Event struct {
	ID          string    `gorm:"primaryKey" json:"id" yaml:"id"`
	Title       string    `gorm:"not null" json:"title" yaml:"title"`
	Description *string   `json:"description" yaml:"description"`
	StartTime   time.Time `gorm:"not null" json:"start_time" yaml:"-"`
	EndTime     time.Time `gorm:"not null" json:"end_time" yaml:"-"`
	Location    string    `gorm:"not null" json:"location" yaml:"location"`
	Category    string    `gorm:"not null" json:"category" yaml:"category"`
	Color       string    `gorm:"not null" json:"color" yaml:"color"`
	ImageURL    *string   `json:"image_url" yaml:"image_url"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

func (Event) TableName() string {
	return "events"
}

// EventFilter narrows an event listing. Empty fields are ignored.
type EventFilter struct {
	Category  string
	Location  string
	StartDate *time.Time
	EndDate   *time.Time
}

// EventPatch carries a partial update. Nil fields keep their stored value;
// Description and ImageURL distinguish "absent" from "set to null".
type EventPatch struct {
	Title       *string
	Description Optional[string]
	StartTime   *time.Time
	EndTime     *time.Time
	Location    *string
	Category    *string
	Color       *string
	ImageURL    Optional[string]
}

// Optional is a field that may be absent, explicitly null, or set.
type Optional[T any] struct {
	Set   bool
	Value *T
}
