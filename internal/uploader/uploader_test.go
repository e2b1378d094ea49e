package uploader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskUploaderStoreAndRemove(t *testing.T) {
	uploadsDir := t.TempDir()
	theUploader, err := NewDiskUploader(uploadsDir, "http://localhost:8080/")
	require.NoError(t, err)

	refs, err := theUploader.Store(context.Background(), []UploadedFile{
		{Name: "bike.jpg", Data: []byte("first")},
		{Name: "seat.png", Data: []byte("second")},
	})
	require.NoError(t, err)
	require.Len(t, refs, 2)

	for _, ref := range refs {
		assert.True(t, strings.HasPrefix(ref, "http://localhost:8080/uploads/"))
	}
	assert.True(t, strings.HasSuffix(refs[0], "-bike.jpg"), "The original name should survive in the reference")

	entries, err := os.ReadDir(uploadsDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	data, err := os.ReadFile(filepath.Join(uploadsDir, storedNameFromRef(refs[0])))
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)

	err = theUploader.Remove(context.Background(), refs)
	require.NoError(t, err)

	entries, err = os.ReadDir(uploadsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskUploaderRemoveToleratesMissingFiles(t *testing.T) {
	theUploader, err := NewDiskUploader(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	err = theUploader.Remove(context.Background(), []string{
		"http://localhost:8080/uploads/never-existed.jpg",
		"http://some-other-origin/image.jpg",
	})
	assert.NoError(t, err, "Removal is best-effort and never escalates missing files")
}

func TestDiskUploaderSanitizesHostileNames(t *testing.T) {
	uploadsDir := t.TempDir()
	theUploader, err := NewDiskUploader(uploadsDir, "http://localhost:8080")
	require.NoError(t, err)

	refs, err := theUploader.Store(context.Background(), []UploadedFile{
		{Name: "../../etc/passwd", Data: []byte("x")},
	})
	require.NoError(t, err)
	require.Len(t, refs, 1)

	entries, err := os.ReadDir(uploadsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "The file must land inside the uploads directory")
	assert.True(t, strings.HasSuffix(entries[0].Name(), "-passwd"))
}

func TestPlaceholderUploader(t *testing.T) {
	theUploader := NewPlaceholderUploader("https://picsum.photos/")

	refs, err := theUploader.Store(context.Background(), []UploadedFile{
		{Name: "a.jpg"},
		{Name: "b.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://picsum.photos/seed/listing-1/640/480",
		"https://picsum.photos/seed/listing-2/640/480",
	}, refs)

	refs, err = theUploader.Store(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, refs, 1, "A create without files still gets one placeholder image")

	err = theUploader.Remove(context.Background(), refs)
	assert.NoError(t, err)
}
