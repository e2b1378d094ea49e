// Package postgresdb provides a PostgreSQL-based implementation of the
// storage interface for persisting users and product listings.
// It runs schema migrations on startup and supports transactional operations.
package postgresdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vzemtsov/listomat/internal/models"
	"github.com/vzemtsov/listomat/internal/user"
)

// PostgresDB is a PostgreSQL-backed implementation of the listings storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
) (*PostgresDB, error) {
	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.Up()` calling: %w",
				err,
			)
	}

	return result, nil
}

func (db *PostgresDB) queryerFor(transaction *sql.Tx) queryer {
	if transaction != nil {
		return transaction
	}
	return db.database
}

// FindOrCreateUser returns the user registered under the prototype's email,
// inserting the prototype as a new record when the email is unseen.
func (db *PostgresDB) FindOrCreateUser(
	ctx context.Context,
	proto *user.User,
	transaction *sql.Tx,
) (*user.User, bool, error) {
	runner := db.queryerFor(transaction)

	row := runner.QueryRowContext(
		ctx,
		`
			INSERT INTO users (id, email, password, name, phone)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (email) DO NOTHING
				RETURNING id
		`,
		proto.ID,
		proto.Email,
		proto.Password,
		proto.Name,
		proto.Phone,
	)

	var insertedID string
	err := row.Scan(&insertedID)
	if err == nil {
		usr := *proto
		return &usr, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, err
	}

	usr := &user.User{}
	err = runner.QueryRowContext(
		ctx,
		`SELECT id, email, password, name, phone FROM users WHERE email = $1`,
		proto.Email,
	).Scan(&usr.ID, &usr.Email, &usr.Password, &usr.Name, &usr.Phone)
	if err != nil {
		return nil, false, err
	}

	return usr, false, nil
}

func scanProduct(scanner interface{ Scan(dest ...any) error }) (models.Product, error) {
	var product models.Product
	var images []byte

	err := scanner.Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Description,
		&product.Location,
		&images,
		&product.User.ID,
		&product.User.Name,
		&product.User.Phone,
	)
	if err != nil {
		return models.Product{}, err
	}

	if err := json.Unmarshal(images, &product.Images); err != nil {
		return models.Product{}, err
	}

	return product, nil
}

// GetProducts returns every product in insertion order.
func (db *PostgresDB) GetProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT id, name, price, description, location, images,
					owner_id, owner_name, owner_phone
				FROM products
				ORDER BY position
		`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (db *PostgresDB) FindProductByID(
	ctx context.Context,
	id string,
	transaction *sql.Tx,
) (models.Product, bool, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`
			SELECT id, name, price, description, location, images,
					owner_id, owner_name, owner_phone
				FROM products
				WHERE id = $1
		`,
		id,
	)

	product, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return models.Product{}, false, nil
	}
	if err != nil {
		return models.Product{}, false, err
	}

	return product, true, nil
}

func (db *PostgresDB) InsertProduct(
	ctx context.Context,
	product models.Product,
	transaction *sql.Tx,
) error {
	images, err := json.Marshal(product.Images)
	if err != nil {
		return err
	}

	_, err = db.queryerFor(transaction).ExecContext(
		ctx,
		`
			INSERT INTO products
					(id, name, price, description, location, images,
					owner_id, owner_name, owner_phone)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
		product.ID,
		product.Name,
		product.Price,
		product.Description,
		product.Location,
		images,
		product.User.ID,
		product.User.Name,
		product.User.Phone,
	)

	return err
}

func (db *PostgresDB) ReplaceProduct(
	ctx context.Context,
	product models.Product,
	transaction *sql.Tx,
) (bool, error) {
	images, err := json.Marshal(product.Images)
	if err != nil {
		return false, err
	}

	result, err := db.queryerFor(transaction).ExecContext(
		ctx,
		`
			UPDATE products
				SET name = $2,
					price = $3,
					description = $4,
					location = $5,
					images = $6,
					owner_name = $7,
					owner_phone = $8
				WHERE id = $1
		`,
		product.ID,
		product.Name,
		product.Price,
		product.Description,
		product.Location,
		images,
		product.User.Name,
		product.User.Phone,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (db *PostgresDB) RemoveProduct(
	ctx context.Context,
	id string,
	transaction *sql.Tx,
) (models.Product, bool, error) {
	product, found, err := db.FindProductByID(ctx, id, transaction)
	if err != nil || !found {
		return models.Product{}, false, err
	}

	_, err = db.queryerFor(transaction).ExecContext(
		ctx,
		`DELETE FROM products WHERE id = $1`,
		id,
	)
	if err != nil {
		return models.Product{}, false, err
	}

	return product, true, nil
}

func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	var count int64
	err := db.database.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (db *PostgresDB) GetNumberOfProducts(ctx context.Context) (int64, error) {
	var count int64
	err := db.database.QueryRowContext(ctx, `SELECT count(*) FROM products`).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// BeginTransaction starts a database transaction.
func (db *PostgresDB) BeginTransaction() (*sql.Tx, error) {
	return db.database.Begin()
}

// RollbackTransaction rolls the transaction back; a transaction that was
// already committed is left alone.
func (db *PostgresDB) RollbackTransaction(transaction *sql.Tx) error {
	if transaction == nil {
		return nil
	}
	err := transaction.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}

	return err
}

func (db *PostgresDB) CommitTransaction(transaction *sql.Tx) error {
	if transaction == nil {
		return nil
	}
	return transaction.Commit()
}

// Ping verifies the database connection is alive.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctx)
}

func (db *PostgresDB) Close() error {
	return db.database.Close()
}
