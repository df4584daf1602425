// Package repository declares the storage interfaces the rest of the
// application depends on. Concrete backends live in sub-packages
// (repository/sqlite, repository/memory) and are chosen in server wiring.
package repository

import (
	"context"

	"github.com/sakif/study-buddy/internal/model"
)

// KVStore is a flat key-value store of opaque byte values.
//
// It stands in for browser local storage: each logical collection is kept as
// one serialized snapshot under its own key. Get reports ok=false for keys
// that were never written.
type KVStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// UpsertGitHub creates or refreshes the account linked to user.GitHubID.
	UpsertGitHub(ctx context.Context, user *model.User) error
}
