package media

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/logger"
)

const (
	// MaxFiles is the number of images accepted per upload request.
	MaxFiles = 5
	// MaxFileSize caps each uploaded file at 5 MiB.
	MaxFileSize = 5 << 20
)

// allowedTypes maps accepted sniffed MIME types to their object key extension.
// The client-supplied Content-Type header is never trusted.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ObjectStore is the object-storage surface the media service depends on.
type ObjectStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ServiceParams groups dependencies for the media service.
type ServiceParams struct {
	Store  ObjectStore
	Logger *logger.Logger
}

// Service validates and stores uploaded images.
type Service interface {
	// UploadImages validates every file, then uploads all of them under the
	// given key prefix. Returns the public URLs in input order.
	UploadImages(ctx context.Context, prefix string, files []*multipart.FileHeader) ([]string, error)
	// DeleteByURL removes the object a previously returned URL points at.
	DeleteByURL(ctx context.Context, rawURL string) error
}

type service struct {
	store ObjectStore
	logg  *logger.Logger
}

// NewService builds the media service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media object store is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media logger is required")
	}
	return &service{store: params.Store, logg: params.Logger}, nil
}

type stagedFile struct {
	content     []byte
	contentType string
	ext         string
}

func (s *service) UploadImages(ctx context.Context, prefix string, files []*multipart.FileHeader) ([]string, error) {
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one image is required")
	}
	if len(files) > MaxFiles {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("at most %d images are allowed per upload", MaxFiles))
	}

	// Validate everything before touching storage so a bad file in the
	// batch rejects the whole request without orphaned objects.
	staged := make([]stagedFile, 0, len(files))
	for _, header := range files {
		file, err := readUpload(header)
		if err != nil {
			return nil, err
		}
		staged = append(staged, *file)
	}

	prefix = strings.Trim(prefix, "/")
	urls := make([]string, 0, len(staged))
	uploaded := make([]string, 0, len(staged))
	for _, file := range staged {
		key := uuid.NewString() + file.ext
		if prefix != "" {
			key = prefix + "/" + key
		}
		publicURL, err := s.store.Put(ctx, key, file.content, file.contentType)
		if err != nil {
			s.cleanup(ctx, uploaded)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload image")
		}
		uploaded = append(uploaded, key)
		urls = append(urls, publicURL)
	}
	return urls, nil
}

func (s *service) DeleteByURL(ctx context.Context, rawURL string) error {
	key, err := keyFromURL(rawURL)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete image")
	}
	return nil
}

// cleanup removes objects uploaded before a batch failed part-way through.
func (s *service) cleanup(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			lctx := s.logg.WithField(ctx, "key", key)
			s.logg.Warn(lctx, "failed to clean up partial upload")
		}
	}
}

func readUpload(header *multipart.FileHeader) (*stagedFile, error) {
	if header.Size > MaxFileSize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s exceeds the %d MB size limit", header.Filename, MaxFileSize>>20))
	}

	file, err := header.Open()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "open uploaded file")
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, MaxFileSize+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded file")
	}
	if len(content) > MaxFileSize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s exceeds the %d MB size limit", header.Filename, MaxFileSize>>20))
	}
	if len(content) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s is empty", header.Filename))
	}

	detected := mimetype.Detect(content)
	ext, ok := allowedTypes[detected.String()]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s is not a supported image type (jpeg, png, webp)", header.Filename))
	}

	return &stagedFile{content: content, contentType: detected.String(), ext: ext}, nil
}

func keyFromURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid image url")
	}
	key := strings.TrimLeft(parsed.Path, "/")
	if key == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid image url")
	}
	return key, nil
}
