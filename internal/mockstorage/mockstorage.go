// Package mockstorage provides a testify-based mock implementation
// of the storage interface. It is used for unit testing HTTP handlers
// and services by simulating storage behavior, including failures no
// real backend produces on demand.
package mockstorage

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/vzemtsov/listomat/internal/models"
	"github.com/vzemtsov/listomat/internal/user"
)

// StorageMock is a testify mock that implements the full storage contract.
type StorageMock struct {
	mock.Mock
}

func (m *StorageMock) FindOrCreateUser(
	ctx context.Context,
	proto *user.User,
	transaction *sql.Tx,
) (*user.User, bool, error) {
	args := m.Called(ctx, proto, transaction)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

func (m *StorageMock) GetProducts(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	products, _ := args.Get(0).([]models.Product)
	return products, args.Error(1)
}

func (m *StorageMock) FindProductByID(
	ctx context.Context,
	id string,
	transaction *sql.Tx,
) (models.Product, bool, error) {
	args := m.Called(ctx, id, transaction)
	product, _ := args.Get(0).(models.Product)
	return product, args.Bool(1), args.Error(2)
}

func (m *StorageMock) InsertProduct(
	ctx context.Context,
	product models.Product,
	transaction *sql.Tx,
) error {
	args := m.Called(ctx, product, transaction)
	return args.Error(0)
}

func (m *StorageMock) ReplaceProduct(
	ctx context.Context,
	product models.Product,
	transaction *sql.Tx,
) (bool, error) {
	args := m.Called(ctx, product, transaction)
	return args.Bool(0), args.Error(1)
}

func (m *StorageMock) RemoveProduct(
	ctx context.Context,
	id string,
	transaction *sql.Tx,
) (models.Product, bool, error) {
	args := m.Called(ctx, id, transaction)
	product, _ := args.Get(0).(models.Product)
	return product, args.Bool(1), args.Error(2)
}

func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) GetNumberOfProducts(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// BeginTransaction mocks the beginning of a transaction.
func (m *StorageMock) BeginTransaction() (*sql.Tx, error) {
	args := m.Called()
	tx, _ := args.Get(0).(*sql.Tx)
	return tx, args.Error(1)
}

// CommitTransaction mocks committing a transaction.
func (m *StorageMock) CommitTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// RollbackTransaction mocks rolling back a transaction.
func (m *StorageMock) RollbackTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// Ping mocks the storage health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
