package inventory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
	"github.com/angelmondragon/backoffice-api/pkg/storage/gcs"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// FileSource is satisfied by *multipart.FileHeader.
type FileSource interface {
	Open() (multipart.File, error)
}

// ImageUploader pushes item images to object storage.
type ImageUploader interface {
	UploadAll(ctx context.Context, files []FileSource) ([]string, error)
}

// MediaUploader sniffs, names, and uploads image files in parallel.
type MediaUploader struct {
	store    gcs.Uploader
	prefix   string
	maxBytes int64
	logg     *logger.Logger
}

func NewMediaUploader(store gcs.Uploader, prefix string, maxBytes int64, logg *logger.Logger) (*MediaUploader, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be positive")
	}
	return &MediaUploader{
		store:    store,
		prefix:   strings.Trim(prefix, "/"),
		maxBytes: maxBytes,
		logg:     logg,
	}, nil
}

// UploadAll uploads every file concurrently. The first failure cancels the
// remaining uploads; the returned URLs keep the input order.
func (m *MediaUploader) UploadAll(ctx context.Context, files []FileSource) ([]string, error) {
	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			url, err := m.uploadOne(gctx, file)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

func (m *MediaUploader) uploadOne(ctx context.Context, file FileSource) (string, error) {
	f, err := file.Open()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unable to read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, m.maxBytes+1))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unable to read uploaded file")
	}
	if int64(len(data)) > m.maxBytes {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "uploaded file too large")
	}

	mime := mimetype.Detect(data)
	ext, ok := allowedImageTypes[mime.String()]
	if !ok {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported image type %s", mime.String())
	}

	object := uuid.NewString() + ext
	if m.prefix != "" {
		object = path.Join(m.prefix, object)
	}
	url, err := m.store.Upload(ctx, object, mime.String(), bytes.NewReader(data))
	if err != nil {
		if m.logg != nil {
			m.logg.Error(m.logg.WithField(ctx, "object", object), "image upload failed", err)
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "image upload failed")
	}
	return url, nil
}

// keepImageURLs drops any URL that does not end in .jpg or .png. The
// comparison ignores case and treats .jpeg as jpg.
func keepImageURLs(urls []string) []string {
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		lower := strings.ToLower(u)
		if strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") || strings.HasSuffix(lower, ".png") {
			kept = append(kept, u)
		}
	}
	return kept
}
