package models

import "time"

// Announcement is a public notice published by an authority
type Announcement struct {
	ID         int64     `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	Content    string    `json:"content" db:"content"`
	Audience   *string   `json:"audience" db:"audience"`
	AuthorID   *int64    `json:"author_id" db:"author_id"`
	AuthorName *string   `json:"author_name" db:"author_name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Announcement model
func (Announcement) TableName() string {
	return "announcements"
}
