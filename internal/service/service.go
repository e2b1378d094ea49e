// Package service implements the listing operations: listing, creating,
// partially updating and deleting products. Every operation is a single
// read-modify-write cycle against the storage backend; atomicity comes
// from the backend's own guarding (a store mutex or a SQL transaction).
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vzemtsov/listomat/internal/logger"
	"github.com/vzemtsov/listomat/internal/models"
	"github.com/vzemtsov/listomat/internal/uploader"
)

type productsKeeper interface {
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

	ReplaceProduct(
		ctx context.Context,
		product models.Product,
		transaction *sql.Tx,
	) (bool, error)

	RemoveProduct(
		ctx context.Context,
		id string,
		transaction *sql.Tx,
	) (models.Product, bool, error)

	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfProducts(ctx context.Context) (int64, error)
}

type transactioner interface {
	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	productsKeeper
	transactioner
	pinger
}

type imagesKeeper interface {
	Store(ctx context.Context, files []uploader.UploadedFile) ([]string, error)
	Remove(ctx context.Context, refs []string) error
}

// ErrProductNotFound is returned when no product carries the requested ID.
var ErrProductNotFound = errors.New("product not found")

type Service struct {
	db     storage
	images imagesKeeper
}

func New(db storage, images imagesKeeper) *Service {
	return &Service{
		db:     db,
		images: images,
	}
}

// List returns every product in store iteration order. Any authenticated
// caller sees all listings; there is no pagination or ownership filter.
func (s *Service) List(ctx context.Context) ([]models.Product, error) {
	return s.db.GetProducts(ctx)
}

// Create builds image references for the uploaded files, assigns a fresh
// ID and appends the product to the store. The owner snapshot takes its ID
// from the authenticated caller and its name/phone from the caller-supplied
// form, not from the account record.
func (s *Service) Create(
	ctx context.Context,
	userID string,
	form models.ProductForm,
	files []uploader.UploadedFile,
) (models.Product, error) {
	images, err := s.images.Store(ctx, files)
	if err != nil {
		return models.Product{}, fmt.Errorf("in internal/service/service.go/Create(): error while `s.images.Store()` calling: %w", err)
	}

	product := models.Product{
		ID:          models.NewID(),
		Name:        form.Name,
		Price:       form.Price,
		Description: form.Description,
		Location:    form.Location,
		Images:      images,
		User: models.ProductOwner{
			ID:    userID,
			Name:  form.OwnerName,
			Phone: form.OwnerPhone,
		},
	}

	tx, err := s.db.BeginTransaction()
	if err != nil {
		return models.Product{}, err
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	if err := s.db.InsertProduct(ctx, product, tx); err != nil {
		return models.Product{}, err
	}

	if err := s.db.CommitTransaction(tx); err != nil {
		return models.Product{}, err
	}

	return product, nil
}

// Update merges the supplied fields into the stored product: a non-empty
// field replaces the stored value, an empty one keeps it. Newly uploaded
// files replace the whole image sequence; with no files the images stay
// untouched. The owner snapshot's name/phone follow the same merge rule
// and its ID never changes. Any authenticated caller may update any
// product; the stored owner is deliberately not consulted.
func (s *Service) Update(
	ctx context.Context,
	id string,
	form models.ProductForm,
	files []uploader.UploadedFile,
) (models.Product, error) {
	tx, err := s.db.BeginTransaction()
	if err != nil {
		return models.Product{}, err
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	existing, found, err := s.db.FindProductByID(ctx, id, tx)
	if err != nil {
		return models.Product{}, err
	}
	if !found {
		return models.Product{}, ErrProductNotFound
	}

	images := existing.Images
	if len(files) > 0 {
		images, err = s.images.Store(ctx, files)
		if err != nil {
			return models.Product{}, err
		}
	}

	updated := models.Product{
		ID:          existing.ID,
		Name:        pick(form.Name, existing.Name),
		Price:       pick(form.Price, existing.Price),
		Description: pick(form.Description, existing.Description),
		Location:    pick(form.Location, existing.Location),
		Images:      images,
		User: models.ProductOwner{
			ID:    existing.User.ID,
			Name:  pick(form.OwnerName, existing.User.Name),
			Phone: pick(form.OwnerPhone, existing.User.Phone),
		},
	}

	replaced, err := s.db.ReplaceProduct(ctx, updated, tx)
	if err != nil {
		return models.Product{}, err
	}
	if !replaced {
		return models.Product{}, ErrProductNotFound
	}

	if err := s.db.CommitTransaction(tx); err != nil {
		return models.Product{}, err
	}

	return updated, nil
}

// Delete removes the product and then releases its image references.
// Cleanup is best-effort: a reference whose backing file is already gone
// never fails the deletion.
func (s *Service) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTransaction()
	if err != nil {
		return err
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	removed, found, err := s.db.RemoveProduct(ctx, id, tx)
	if err != nil {
		return err
	}
	if !found {
		return ErrProductNotFound
	}

	if err := s.db.CommitTransaction(tx); err != nil {
		return err
	}

	if err := s.images.Remove(ctx, removed.Images); err != nil {
		logger.Log.Debugln("Error calling the `s.images.Remove()`: ", zap.Error(err))
	}

	return nil
}

// GetInternalStats returns the total numbers of users and products.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	products, err := s.db.GetNumberOfProducts(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		Users:    users,
		Products: products,
	}, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func pick(newValue, oldValue string) string {
	if newValue != "" {
		return newValue
	}
	return oldValue
}
