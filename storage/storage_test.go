package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rankwell/config"
)

func TestImageObjectName(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
	}{
		{"png", "\x89PNG\r\n\x1a\nrest", ".png"},
		{"jpeg", "\xff\xd8\xff\xe0rest", ".jpg"},
		{"gif", "GIF89arest", ".gif"},
		{"webp", "RIFF\x00\x00\x00\x00WEBPVP8 rest", ".webp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, err := ImageObjectName([]byte(tt.data))
			require.NoError(t, err)
			assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}`+regexp.QuoteMeta(tt.ext)+`$`), name)
		})
	}

	a, _ := ImageObjectName([]byte("GIF89a"))
	b, _ := ImageObjectName([]byte("GIF89a"))
	assert.NotEqual(t, a, b)
}

func TestImageObjectName_RejectsNonImages(t *testing.T) {
	for _, data := range []string{
		"<html><script>alert(1)</script></html>",
		`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`,
		"plain text",
		"",
	} {
		_, err := ImageObjectName([]byte(data))
		assert.ErrorIs(t, err, ErrUnsupportedImage, data)
	}
}

func TestLocalStorageUpload(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir, "/uploads/")

	p, err := s.Upload(context.Background(), ListingImages, "abc.png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "abc.png", p)

	data, err := os.ReadFile(filepath.Join(dir, ListingImages, "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	assert.Equal(t, "/uploads/listing-images/abc.png", s.PublicURL(ListingImages, p))
}

func TestLocalStorageRejectsEscapes(t *testing.T) {
	s := NewLocalStorage(t.TempDir(), "/uploads")
	p, err := s.Upload(context.Background(), BlogImages, "../../etc/passwd", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "etc/passwd", p)

	_, err = s.Upload(context.Background(), BlogImages, "", []byte("x"))
	assert.Error(t, err)
}

func TestLocalStorageHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocalStorage(t.TempDir(), "/uploads").Upload(ctx, BlogImages, "a.png", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestS3PublicURL(t *testing.T) {
	s := &S3Storage{region: "eu-west-1"}
	assert.Equal(t, "https://listing-images.s3.eu-west-1.amazonaws.com/a.png", s.PublicURL(ListingImages, "a.png"))

	s = &S3Storage{endpoint: "http://minio:9000"}
	assert.Equal(t, "http://minio:9000/blog-images/a.png", s.PublicURL(BlogImages, "a.png"))

	s = &S3Storage{publicURL: "https://cdn.rankwell.pk", endpoint: "http://minio:9000"}
	assert.Equal(t, "https://cdn.rankwell.pk/blog-images/a.png", s.PublicURL(BlogImages, "a.png"))
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), config.StorageConfig{Provider: "local", BasePath: t.TempDir(), PublicURL: "/uploads"})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, p)

	_, err = NewProvider(context.Background(), config.StorageConfig{Provider: "ftp"})
	assert.Error(t, err)
}
