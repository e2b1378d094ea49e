// Package jsondb implements the snapshot-file storage backend. The whole
// dataset lives in a single JSON object with `users` and `products` keys,
// kept in memory and rewritten wholesale to the backing file after every
// mutation. A per-store mutex turns each read-modify-write cycle into a
// critical section, so interleaved requests cannot lose updates.
package jsondb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/thoas/go-funk"

	"github.com/vzemtsov/listomat/internal/models"
	"github.com/vzemtsov/listomat/internal/user"
)

// Snapshot is the serialized shape of the whole database.
type Snapshot struct {
	Users    []user.User      `json:"users"`
	Products []models.Product `json:"products"`
}

// JSONDB is the file-backed snapshot store. A zero fileName disables
// persistence, which is how the volatile variant reuses this code.
type JSONDB struct {
	fileName string
	mu       sync.Mutex
	Cache    Snapshot
}

func initDBFile(fileName string) error {
	dbFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(dbFile, `{
  "users": [],
  "products": []
}`)
	if err != nil {
		return err
	}
	return dbFile.Close()
}

func writeToJSONFile(fileName string, snapshot interface{}) error {
	jsonData, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %s", err)
	}

	file, err2 := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err2 != nil {
		return fmt.Errorf("error opening file: %s", err2)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %s", err)
	}

	return nil
}

func parseJSONFile(fileName string, snapshot *Snapshot) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(snapshot)
	if err != nil {
		return err
	}

	return nil
}

// New opens the snapshot file, initializing an empty snapshot first when
// the file does not exist yet.
func New(fileName string) (*JSONDB, error) {
	db := JSONDB{
		fileName: fileName,
		Cache:    Snapshot{},
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		err := initDBFile(fileName)
		if err != nil {
			return nil, err
		}
		err = parseJSONFile(db.fileName, &db.Cache)
		if err != nil {
			return nil, err
		}
	}

	return &db, nil
}

// persist rewrites the whole snapshot file. Callers must hold db.mu.
func (db *JSONDB) persist() error {
	if db.fileName == "" {
		return nil
	}
	return writeToJSONFile(db.fileName, db.Cache)
}

// FindOrCreateUser returns the first user whose email matches the
// prototype's, creating and persisting the prototype when none exists.
func (db *JSONDB) FindOrCreateUser(
	ctx context.Context,
	proto *user.User,
	transaction *sql.Tx,
) (*user.User, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	found := funk.Find(db.Cache.Users, func(u user.User) bool {
		return u.Email == proto.Email
	})
	if found != nil {
		usr := found.(user.User)
		return &usr, false, nil
	}

	db.Cache.Users = append(db.Cache.Users, *proto)
	if err := db.persist(); err != nil {
		return nil, false, err
	}

	usr := *proto

	return &usr, true, nil
}

// GetProducts returns all products in insertion order.
func (db *JSONDB) GetProducts(ctx context.Context) ([]models.Product, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]models.Product, len(db.Cache.Products))
	copy(result, db.Cache.Products)

	return result, nil
}

func (db *JSONDB) findProductIndex(id string) int {
	for i, product := range db.Cache.Products {
		if product.ID == id {
			return i
		}
	}
	return -1
}

func (db *JSONDB) FindProductByID(
	ctx context.Context,
	id string,
	transaction *sql.Tx,
) (models.Product, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	index := db.findProductIndex(id)
	if index == -1 {
		return models.Product{}, false, nil
	}

	return db.Cache.Products[index], true, nil
}

func (db *JSONDB) InsertProduct(
	ctx context.Context,
	product models.Product,
	transaction *sql.Tx,
) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.Cache.Products = append(db.Cache.Products, product)

	return db.persist()
}

func (db *JSONDB) ReplaceProduct(
	ctx context.Context,
	product models.Product,
	transaction *sql.Tx,
) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	index := db.findProductIndex(product.ID)
	if index == -1 {
		return false, nil
	}

	db.Cache.Products[index] = product

	return true, db.persist()
}

func (db *JSONDB) RemoveProduct(
	ctx context.Context,
	id string,
	transaction *sql.Tx,
) (models.Product, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	index := db.findProductIndex(id)
	if index == -1 {
		return models.Product{}, false, nil
	}

	removed := db.Cache.Products[index]
	db.Cache.Products = append(db.Cache.Products[:index], db.Cache.Products[index+1:]...)

	return removed, true, db.persist()
}

func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return int64(len(db.Cache.Users)), nil
}

func (db *JSONDB) GetNumberOfProducts(ctx context.Context) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return int64(len(db.Cache.Products)), nil
}

func (db *JSONDB) BeginTransaction() (*sql.Tx, error) {
	return nil, nil
}

func (db *JSONDB) RollbackTransaction(transaction *sql.Tx) error {
	return nil
}

func (db *JSONDB) CommitTransaction(transaction *sql.Tx) error {
	return nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

func (db *JSONDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.persist()
}
