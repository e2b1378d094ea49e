package uploader

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/thoas/go-funk"
)

// PlaceholderUploader fabricates references to an external
// placeholder-image service instead of storing anything. It is used by the
// volatile variants, where no uploads directory is configured. A request
// with no files still yields one reference, so created products are never
// imageless.
type PlaceholderUploader struct {
	baseURL string
	seed    atomic.Int64
}

func NewPlaceholderUploader(baseURL string) *PlaceholderUploader {
	return &PlaceholderUploader{
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Store returns one deterministic placeholder reference per uploaded file
// (or a single reference when no files came in). The file contents are
// discarded.
func (u *PlaceholderUploader) Store(ctx context.Context, files []UploadedFile) ([]string, error) {
	count := len(files)
	if count == 0 {
		count = 1
	}

	return funk.Map(make([]string, count), func(string) string {
		return fmt.Sprintf("%s/seed/listing-%d/640/480", u.baseURL, u.seed.Add(1))
	}).([]string), nil
}

// Remove is a no-op: placeholder references have no backing resources.
func (u *PlaceholderUploader) Remove(ctx context.Context, refs []string) error {
	return nil
}
