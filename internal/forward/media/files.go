package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
	"github.com/lueurxax/telegram-forwarder/internal/core/ports"
)

const maxNameAttempts = 1000

// Files downloads source media into a working directory under collision-free names.
type Files struct {
	dir         string
	deleteAfter bool
}

// File is a downloaded media file. Release must be called on every path.
type File struct {
	Path string
	// Name is the file name presented to the destination.
	Name string
	Size int64

	deleteAfter bool
}

// NewFiles creates the working directory if needed.
func NewFiles(dir string, deleteAfter bool) (*Files, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating download dir: %w", err)
	}

	return &Files{dir: dir, deleteAfter: deleteAfter}, nil
}

// Fetch downloads the payload of message msgID and stages it under its display name.
func (f *Files) Fetch(ctx context.Context, dl ports.Downloader, msgID int, m domain.Media) (*File, error) {
	tmp := filepath.Join(f.dir, "tmp_"+strconv.Itoa(msgID))

	size, err := dl.Download(ctx, m, tmp)
	if err != nil {
		removeQuietly(tmp)

		return nil, fmt.Errorf("%w: message %d: %w", apperrors.ErrDownloadFailed, msgID, err)
	}

	name := DisplayName(msgID, m)

	final, err := f.uniquePath(name)
	if err != nil {
		removeQuietly(tmp)

		return nil, err
	}

	if err := os.Rename(tmp, final); err != nil {
		removeQuietly(tmp)

		return nil, fmt.Errorf("staging %s: %w", name, err)
	}

	return &File{Path: final, Name: filepath.Base(final), Size: size, deleteAfter: f.deleteAfter}, nil
}

// Release deletes the file unless files are kept after sending.
func (f *File) Release() {
	if f == nil || !f.deleteAfter {
		return
	}

	removeQuietly(f.Path)
}

// ReleaseAll releases every file.
func ReleaseAll(files []*File) {
	for _, f := range files {
		f.Release()
	}
}

// DisplayName returns the file name to use for a payload: the original document
// name when known, otherwise the message id with a kind-specific extension.
func DisplayName(msgID int, m domain.Media) string {
	fallback := strconv.Itoa(msgID)

	switch v := m.(type) {
	case *domain.Photo:
		base, _ := splitName(fallback)

		return base + ".jpg"
	case *domain.Document:
		if name := sanitize(v.FileName); name != "" {
			return name
		}

		switch Classify(v) {
		case KindVideo:
			return fallback + ".mp4"
		case KindVoice:
			return fallback + ".ogg"
		case KindSticker:
			return fallback + ".webp"
		default:
			return fallback
		}
	default:
		return fallback
	}
}

// uniquePath returns dir/name, or dir/base(n).ext when that is taken.
func (f *Files) uniquePath(name string) (string, error) {
	base, ext := splitName(name)

	for i := 0; i < maxNameAttempts; i++ {
		suffix := ""
		if i > 0 {
			suffix = "(" + strconv.Itoa(i) + ")"
		}

		path := filepath.Join(f.dir, base+suffix+ext)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
	}

	return "", fmt.Errorf("no free file name for %s", name)
}

// splitName splits off the extension and drops repeated copies of it,
// so "photo.jpg.jpg" becomes ("photo", ".jpg").
func splitName(name string) (string, string) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for ext != "" && strings.HasSuffix(strings.ToLower(base), strings.ToLower(ext)) {
		base = base[:len(base)-len(ext)]
	}

	if base == "" {
		base = "file"
	}

	return base, ext
}

// sanitize normalises a remote file name into a safe local one.
func sanitize(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	name = strings.NewReplacer("/", "_", "\\", "_", "\x00", "").Replace(name)
	name = strings.Trim(name, ". ")

	return name
}

func removeQuietly(path string) {
	_ = os.Remove(path) //nolint:errcheck // cleanup is best-effort
}
