package models

import "time"

// users table
type User struct {
	ID        int64     `json:"id"`
	TgID      string    `json:"tg_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	PhotoURL  string    `json:"photo_url"`
	DataJSON  string    `json:"-"` // account payload
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// comments table
type Comment struct {
	ID        int64     `json:"id"`
	SeriesKey string    `json:"series_key"` // "<sid>-<slug>"
	ChapterID string    `json:"chapter_id"`
	TgID      string    `json:"tg_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Author is the display name shown next to a comment.
func (c Comment) Author() string {
	if c.Username != "" {
		return c.Username
	}
	return "user" + c.TgID
}
