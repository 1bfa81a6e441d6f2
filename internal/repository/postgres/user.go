package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository"
)

const userColumns = `username, name, email, password_hash, created_at`

type userRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5)`
	logger.DatabaseCall("users.create", query, "username", u.Username)
	res, err := r.db.ExecContext(ctx, query, u.Username, u.Name, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		logger.DatabaseResult("users.create", 0, err)
		return mapError(err, fmt.Sprintf("user %q", u.Username))
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("users.create", n, nil)
	return nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("user %q", username))
	}
	return u, nil
}

func (r *userRepository) FindWhere(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if len(filter.Usernames) > 0 {
		query += ` WHERE username = ANY($1)`
		args = append(args, pq.Array(filter.Usernames))
	}
	query += ` ORDER BY username`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func scanUser(s scanner) (*domain.User, error) {
	u := &domain.User{}
	if err := s.Scan(&u.Username, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}
