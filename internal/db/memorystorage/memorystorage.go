// Package memorystorage provides the volatile storage variant: the same
// snapshot semantics as the file-backed store, without a backing file.
// All records are lost on process restart.
package memorystorage

import (
	"context"

	"github.com/vzemtsov/listomat/internal/db/jsondb"
)

type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.Snapshot{},
		},
	}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
