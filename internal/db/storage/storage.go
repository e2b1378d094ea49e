// Package storage declares the contract every storage backend of the
// service fulfills, so the identity and listing services stay indifferent
// to whether records live in a JSON snapshot file, in memory, or in
// PostgreSQL.
package storage

import (
	"context"
	"database/sql"

	"github.com/vzemtsov/listomat/internal/models"
	"github.com/vzemtsov/listomat/internal/user"
)

// Storage is the full capability set required from a backend: find-or-create
// for users, get-all/find/append/replace/remove for products, plus
// transaction and health plumbing. The *sql.Tx parameter is only meaningful
// for SQL-backed implementations; snapshot stores accept and ignore nil.
type Storage interface {
	// FindOrCreateUser looks a user up by exact email match and, when no
	// record exists, persists the supplied prototype instead. The returned
	// flag reports whether a new record was created.
	FindOrCreateUser(
		ctx context.Context,
		proto *user.User,
		transaction *sql.Tx,
	) (*user.User, bool, error)

	GetProducts(ctx context.Context) ([]models.Product, error)

	FindProductByID(
		ctx context.Context,
		id string,
		transaction *sql.Tx,
	) (models.Product, bool, error)

	InsertProduct(
		ctx context.Context,
		product models.Product,
		transaction *sql.Tx,
	) error

	// ReplaceProduct overwrites the stored record carrying the same ID.
	// The returned flag is false when no such record exists.
	ReplaceProduct(
		ctx context.Context,
		product models.Product,
		transaction *sql.Tx,
	) (bool, error)

	// RemoveProduct deletes the record with the given ID and returns it,
	// so callers can release resources the record referenced.
	RemoveProduct(
		ctx context.Context,
		id string,
		transaction *sql.Tx,
	) (models.Product, bool, error)

	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfProducts(ctx context.Context) (int64, error)

	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error

	Ping(ctx context.Context) error

	Close() error
}
