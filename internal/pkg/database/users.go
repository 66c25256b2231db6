package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/anicoll/sensorhub/internal/pkg/model"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, password_hash, created_at`

func (db *Database) CreateUser(ctx context.Context, username, email, passwordHash string) (model.User, error) {
	const insertSQL = `
	INSERT INTO users (username, email, password_hash)
	VALUES ($1, $2, $3)
	RETURNING ` + userColumns

	user, err := scanUser(db.pool.QueryRow(ctx, insertSQL, username, email, passwordHash))
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, model.ErrUsernameTaken
		}
		return model.User{}, fmt.Errorf("database: create user: %w", err)
	}
	return user, nil
}

func (db *Database) GetUser(ctx context.Context, id int64) (model.User, error) {
	return db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (db *Database) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	return db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (db *Database) getUser(ctx context.Context, query string, arg any) (model.User, error) {
	user, err := scanUser(db.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("database: get user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return model.User{}, err
	}
	return u, nil
}
