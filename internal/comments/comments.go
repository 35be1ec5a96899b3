// Package comments is the append-only per-chapter comment store.
package comments

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"unicode/utf8"

	"mangalair/pkg/models"
)

const (
	// MaxTextLen is the maximum comment length in characters.
	MaxTextLen = 1000
	// ListLimit caps how many comments a single listing returns.
	ListLimit = 200
)

var (
	ErrEmptyText   = errors.New("empty comment")
	ErrTextTooLong = errors.New("comment too long")
)

// ValidateText trims text and enforces the length bounds.
func ValidateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	if utf8.RuneCountInString(text) > MaxTextLen {
		return "", ErrTextTooLong
	}
	return text, nil
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add appends a comment and fills in its server-assigned id and timestamp.
func (s *Store) Add(ctx context.Context, c *models.Comment) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO comments(series_key, chapter_id, tg_id, username, text)
		 VALUES(?,?,?,?,?)`,
		c.SeriesKey, c.ChapterID, c.TgID, c.Username, c.Text)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return s.db.QueryRowContext(ctx,
		`SELECT created_at FROM comments WHERE id = ?`, id).Scan(&c.CreatedAt)
}

// ListByChapter returns the chapter's comments ordered oldest first, capped
// at ListLimit rows.
func (s *Store) ListByChapter(ctx context.Context, seriesKey, chapterID string) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, series_key, chapter_id, tg_id, COALESCE(username,''), text, created_at
		 FROM comments
		 WHERE series_key = ? AND chapter_id = ?
		 ORDER BY created_at ASC
		 LIMIT ?`, seriesKey, chapterID, ListLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.SeriesKey, &c.ChapterID, &c.TgID, &c.Username, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
