package cmd

import (
	"context"

	"github.com/anicoll/sensorhub/internal/pkg/model"
	"github.com/anicoll/sensorhub/internal/pkg/server"
)

// Store is what cmd expects from a storage backend: everything the API and
// the importer use, plus a way to release it.
type Store interface {
	server.Store
	CreateUser(ctx context.Context, username, email, passwordHash string) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	Close() error
}
