package telegram

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
	"github.com/lueurxax/telegram-forwarder/internal/platform/progress"
)

// Download implements ports.Downloader for photos and documents.
func (c *Client) Download(ctx context.Context, media domain.Media, path string) (int64, error) {
	loc, total, err := fileLocation(media)
	if err != nil {
		return 0, err
	}

	n, err := c.files.Download(ctx, loc, path, total)
	if err != nil {
		return n, wrapRPC("downloading", err)
	}

	return n, nil
}

func fileLocation(media domain.Media) (tg.InputFileLocationClass, int64, error) {
	switch m := media.(type) {
	case *domain.Photo:
		return &tg.InputPhotoFileLocation{
			ID:            m.File.ID,
			AccessHash:    m.File.AccessHash,
			FileReference: m.File.FileReference,
			ThumbSize:     m.File.ThumbSize,
		}, m.File.Size, nil
	case *domain.Document:
		return &tg.InputDocumentFileLocation{
			ID:            m.File.ID,
			AccessHash:    m.File.AccessHash,
			FileReference: m.File.FileReference,
		}, m.File.Size, nil
	default:
		return nil, 0, fmt.Errorf("%w: %T has no file", apperrors.ErrNoMedia, media)
	}
}

// gotdFiles transfers files with the gotd downloader and uploader, reporting
// bytes to the progress indicator.
type gotdFiles struct {
	api      *tg.Client
	progress progress.Indicator
}

func (f *gotdFiles) Download(ctx context.Context, loc tg.InputFileLocationClass, path string, total int64) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", path, err)
	}
	defer out.Close()

	tr := f.progress.Track("↓ "+filepath.Base(path), total)
	defer tr.Done()

	w := &countingWriter{w: out, tracker: tr}

	if _, err := downloader.NewDownloader().Download(f.api, loc).Stream(ctx, w); err != nil {
		return w.n, err
	}

	return w.n, nil
}

func (f *gotdFiles) Upload(ctx context.Context, path string) (tg.InputFileClass, error) {
	tr := f.progress.Track("↑ "+filepath.Base(path), 0)
	defer tr.Done()

	return uploader.NewUploader(f.api).WithProgress(uploadProgress{tracker: tr}).FromPath(ctx, path)
}

type countingWriter struct {
	w       io.Writer
	n       int64
	tracker progress.Tracker
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.tracker.SetValue(c.n)

	return n, err
}

type uploadProgress struct {
	tracker progress.Tracker
}

func (u uploadProgress) Chunk(_ context.Context, state uploader.ProgressState) error {
	if state.Total > 0 {
		u.tracker.SetTotal(state.Total)
	}

	u.tracker.SetValue(state.Uploaded)

	return nil
}
