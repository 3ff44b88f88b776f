// Package storage uploads listing and post images to a blob bucket and resolves
// their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"rankwell/config"
)

const (
	ListingImages = "listing-images"
	BlogImages    = "blog-images"
)

type Provider interface {
	Upload(ctx context.Context, bucket, objectPath string, data []byte) (string, error)
	PublicURL(bucket, objectPath string) string
}

func NewProvider(ctx context.Context, cfg config.StorageConfig) (Provider, error) {
	switch cfg.Provider {
	case "local":
		return NewLocalStorage(cfg.BasePath, cfg.PublicURL), nil
	case "s3":
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}

// ErrUnsupportedImage is returned for uploads that do not sniff as an allowed image type.
var ErrUnsupportedImage = errors.New("image must be a JPEG, PNG, GIF or WebP file")

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageObjectName sniffs data and returns a random object name carrying the
// extension of the detected image type. The client's filename is never trusted.
func ImageObjectName(data []byte) (string, error) {
	ext, ok := imageExtensions[http.DetectContentType(data)]
	if !ok {
		return "", ErrUnsupportedImage
	}
	return uuid.New().String() + ext, nil
}

func contentType(objectPath string, data []byte) string {
	if strings.ToLower(path.Ext(objectPath)) == ".webp" {
		return "image/webp"
	}
	return http.DetectContentType(data)
}

// LocalStorage writes objects under basePath/<bucket>/ and serves them from publicURL.
type LocalStorage struct {
	basePath  string
	publicURL string
}

func NewLocalStorage(basePath, publicURL string) *LocalStorage {
	if basePath == "" {
		basePath = "./uploads"
	}
	return &LocalStorage{basePath: basePath, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *LocalStorage) BasePath() string { return s.basePath }

func (s *LocalStorage) Upload(ctx context.Context, bucket, objectPath string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := path.Clean("/" + objectPath)[1:]
	if clean == "" {
		return "", fmt.Errorf("invalid object path %q", objectPath)
	}
	full := filepath.Join(s.basePath, bucket, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("creating bucket directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("writing object: %w", err)
	}
	return clean, nil
}

func (s *LocalStorage) PublicURL(bucket, objectPath string) string {
	return s.publicURL + "/" + bucket + "/" + objectPath
}
