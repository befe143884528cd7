// Package repository declares the persistence capabilities the data manager
// relies on. The sqldb subpackage implements them over SQLite or PostgreSQL.
//
// Lookups return an apperror.ErrNotFound error when nothing matches, and
// writes that violate a unique constraint return apperror.ErrConflict. Any
// other error is a storage fault.
package repository

import (
	"context"

	"github.com/sakif/storefront/internal/model"
)

type UserRepository interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id int64) error
}

type ItemRepository interface {
	ListItems(ctx context.Context) ([]model.Item, error)
	GetItemByID(ctx context.Context, id int64) (*model.Item, error)
	GetItemByName(ctx context.Context, name string) (*model.Item, error)
	FindItem(ctx context.Context, name, description string) (*model.Item, error)
	CreateItem(ctx context.Context, item *model.Item) error
	UpdateItem(ctx context.Context, item *model.Item) error
	DeleteItem(ctx context.Context, id int64) error
	// IncrementLikes adds one like atomically.
	IncrementLikes(ctx context.Context, id int64) error
}

// Store is every repository bound to one handle: the connection pool, or a
// single transaction.
type Store interface {
	UserRepository
	ItemRepository
}

// TxStore is a Store that can also run a function inside a transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type TxStore interface {
	Store
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
