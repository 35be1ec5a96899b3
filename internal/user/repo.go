// Package user is the storage adapter for persisted user records.
package user

import (
	"context"
	"database/sql"
	"errors"

	"mangalair/pkg/models"
)

// Store is the persistence contract the rest of the core depends on.
type Store interface {
	// FindByTgID returns the user for a Telegram id, or nil when unseen.
	FindByTgID(ctx context.Context, tgID string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Save(ctx context.Context, u *models.User) error
	// ListAll is used by the full-population like scan.
	ListAll(ctx context.Context) ([]models.User, error)
}

// SQLStore implements Store over sqlite.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) FindByTgID(ctx context.Context, tgID string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tg_id, COALESCE(username,''), COALESCE(first_name,''), COALESCE(last_name,''),
		        COALESCE(photo_url,''), data_json, created_at, updated_at
		 FROM users WHERE tg_id = ?`, tgID).
		Scan(&u.ID, &u.TgID, &u.Username, &u.FirstName, &u.LastName,
			&u.PhotoURL, &u.DataJSON, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLStore) Create(ctx context.Context, u *models.User) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users(tg_id, username, first_name, last_name, photo_url, data_json)
		 VALUES(?,?,?,?,?,?)`,
		u.TgID, u.Username, u.FirstName, u.LastName, u.PhotoURL, u.DataJSON)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func (s *SQLStore) Save(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET username=?, first_name=?, last_name=?, photo_url=?,
		        data_json=?, updated_at=CURRENT_TIMESTAMP
		 WHERE tg_id=?`,
		u.Username, u.FirstName, u.LastName, u.PhotoURL, u.DataJSON, u.TgID)
	return err
}

func (s *SQLStore) ListAll(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tg_id, COALESCE(username,''), COALESCE(first_name,''), COALESCE(last_name,''),
		        COALESCE(photo_url,''), data_json, created_at, updated_at
		 FROM users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.TgID, &u.Username, &u.FirstName, &u.LastName,
			&u.PhotoURL, &u.DataJSON, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}
