package uploader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DiskUploader writes uploaded files into a directory and addresses them
// as `<base URL>/uploads/<stored name>` so the router's static file server
// can hand them out.
type DiskUploader struct {
	uploadsDir    string
	publicBaseURL string
}

// NewDiskUploader creates the uploads directory if needed and returns a
// ready adapter.
func NewDiskUploader(uploadsDir, publicBaseURL string) (*DiskUploader, error) {
	if err := os.MkdirAll(uploadsDir, 0755); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/uploader/diskuploader.go/NewDiskUploader(): error while `os.MkdirAll()` calling: %w",
				err,
			)
	}

	return &DiskUploader{
		uploadsDir:    uploadsDir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Store writes each file under a collision-free name and returns one
// reference per stored file, in input order.
func (u *DiskUploader) Store(ctx context.Context, files []UploadedFile) ([]string, error) {
	refs := make([]string, 0, len(files))
	for _, file := range files {
		storedName := uuid.New().String() + "-" + sanitizeFileName(file.Name)
		if err := os.WriteFile(filepath.Join(u.uploadsDir, storedName), file.Data, 0644); err != nil {
			return nil, err
		}
		refs = append(refs, u.publicBaseURL+"/uploads/"+storedName)
	}

	return refs, nil
}

// Remove deletes the backing file of every reference that points into the
// uploads directory. Missing files are tolerated silently.
func (u *DiskUploader) Remove(ctx context.Context, refs []string) error {
	for _, ref := range refs {
		storedName := storedNameFromRef(ref)
		if storedName == "" {
			continue
		}
		_ = os.Remove(filepath.Join(u.uploadsDir, storedName))
	}

	return nil
}

func storedNameFromRef(ref string) string {
	_, storedName, found := strings.Cut(ref, "/uploads/")
	if !found {
		return ""
	}
	// Refuse anything that could escape the uploads directory.
	if storedName != filepath.Base(storedName) {
		return ""
	}
	return storedName
}

func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "file"
	}
	return name
}
