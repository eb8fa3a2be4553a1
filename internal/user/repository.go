package user

import (
	"context"
	"database/sql"
	"errors"

	"chatsync/internal/db"
)

var ErrNotFound = errors.New("user not found")

type Repository struct {
	db *db.Database
}

func NewRepository(database *db.Database) *Repository {
	return &Repository{db: database}
}

func (r *Repository) Create(ctx context.Context, username string) (*User, error) {
	var id int64
	query := r.db.Rebind("INSERT INTO users (username) VALUES (?) RETURNING id")
	if err := r.db.Conn.QueryRowContext(ctx, query, username).Scan(&id); err != nil {
		return nil, err
	}
	return &User{ID: id, Username: username}, nil
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	u := &User{}
	query := r.db.Rebind("SELECT id, username FROM users WHERE username = ?")
	err := r.db.Conn.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	u := &User{}
	query := r.db.Rebind("SELECT id, username FROM users WHERE id = ?")
	err := r.db.Conn.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
