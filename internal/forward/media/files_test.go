package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
	"github.com/lueurxax/telegram-forwarder/internal/core/ports/mocks"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name  string
		media domain.Media
		want  string
	}{
		{"photo", &domain.Photo{}, "42.jpg"},
		{"named document", &domain.Document{FileName: "report.pdf"}, "report.pdf"},
		{"unnamed video", &domain.Document{Video: &domain.VideoAttr{}}, "42.mp4"},
		{"unnamed voice", &domain.Document{Audio: &domain.AudioAttr{Voice: true}}, "42.ogg"},
		{"unnamed file", &domain.Document{}, "42"},
		{"path separators", &domain.Document{FileName: "../etc/passwd"}, "_etc_passwd"},
		{"decomposed unicode", &domain.Document{FileName: "cafe\u0301.txt"}, "caf\u00e9.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(42, tt.media))
		})
	}
}

func TestSplitName(t *testing.T) {
	base, ext := splitName("photo.jpg.jpg")
	assert.Equal(t, "photo", base)
	assert.Equal(t, ".jpg", ext)

	base, ext = splitName("archive")
	assert.Equal(t, "archive", base)
	assert.Equal(t, "", ext)
}

func TestFetchAvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	files, err := NewFiles(dir, true)
	require.NoError(t, err)

	tr := mocks.NewTransport()
	doc := &domain.Document{FileName: "report.pdf"}

	first, err := files.Fetch(context.Background(), tr, 1, doc)
	require.NoError(t, err)

	second, err := files.Fetch(context.Background(), tr, 2, doc)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "report.pdf"), first.Path)
	assert.Equal(t, filepath.Join(dir, "report(1).pdf"), second.Path)
	assert.Equal(t, "report(1).pdf", second.Name)
	assert.Equal(t, int64(len("media")), first.Size)

	_, err = os.Stat(filepath.Join(dir, "tmp_1"))
	assert.True(t, os.IsNotExist(err), "temporary download is renamed away")

	ReleaseAll([]*File{first, second})

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReleaseKeepsFilesWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	files, err := NewFiles(dir, false)
	require.NoError(t, err)

	f, err := files.Fetch(context.Background(), mocks.NewTransport(), 7, &domain.Photo{})
	require.NoError(t, err)

	f.Release()

	_, err = os.Stat(f.Path)
	assert.NoError(t, err)
}

func TestFetchDownloadFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	files, err := NewFiles(dir, true)
	require.NoError(t, err)

	tr := mocks.NewTransport()
	tr.DownloadFn = func(_ context.Context, _ domain.Media, path string) (int64, error) {
		require.NoError(t, os.WriteFile(path, []byte("partial"), 0o600))

		return 0, errors.New("connection reset")
	}

	_, err = files.Fetch(context.Background(), tr, 3, &domain.Photo{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDownloadFailed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
