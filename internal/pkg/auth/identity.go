package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/anicoll/sensorhub/internal/pkg/model"
	"github.com/anicoll/sensorhub/pkg/hasher"
)

type userStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
}

// Identity registers users and checks their credentials.
type Identity struct {
	users  userStore
	logger *zap.Logger
}

func NewIdentity(users userStore) *Identity {
	return &Identity{users: users, logger: zap.L()}
}

func (i *Identity) CreateUser(ctx context.Context, username, email, password string) (model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	switch {
	case username == "":
		return model.User{}, model.NewValidationError("username", "this field is required")
	case email == "":
		return model.User{}, model.NewValidationError("email", "this field is required")
	case password == "":
		return model.User{}, model.NewValidationError("password", "this field is required")
	}

	hash, err := hasher.HashPassword([]byte(password))
	if err != nil {
		if errors.Is(err, hasher.ErrPasswordTooLong) {
			return model.User{}, model.NewValidationError("password", "too long")
		}
		return model.User{}, fmt.Errorf("auth: hash password: %w", err)
	}
	user, err := i.users.CreateUser(ctx, username, email, hash)
	if err != nil {
		return model.User{}, err
	}
	i.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Authenticate returns the user when the password matches. Unknown users and
// wrong passwords both yield model.ErrInvalidCredentials.
func (i *Identity) Authenticate(ctx context.Context, username, password string) (model.User, error) {
	user, err := i.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			hasher.CompareDummy(password)
			return model.User{}, model.ErrInvalidCredentials
		}
		return model.User{}, err
	}
	if !hasher.PasswordCorrect(password, user.PasswordHash) {
		return model.User{}, model.ErrInvalidCredentials
	}
	return user, nil
}
