package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// ImageStore stores product images in an object storage backend. Objects
// are keyed per product so a product's images live under one prefix.
type ImageStore struct {
	backend ObjectStorage
}

// NewImageStore constructs an ImageStore over the provided backend.
func NewImageStore(backend ObjectStorage) *ImageStore {
	return &ImageStore{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *ImageStore) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// PutImage uploads a product image and returns the stored filename.
func (s *ImageStore) PutImage(ctx context.Context, productID int, filename string, r io.Reader, size int64) (string, error) {
	name := ImageFilename(productID, filename)
	key := imageKey(productID, name)
	if err := s.backend.Put(ctx, key, r, size, contentTypeFor(name)); err != nil {
		return "", err
	}
	return name, nil
}

// GetImage opens a reader for a stored product image.
func (s *ImageStore) GetImage(ctx context.Context, productID int, filename string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, imageKey(productID, filename))
}

// DeleteImage removes a stored product image.
func (s *ImageStore) DeleteImage(ctx context.Context, productID int, filename string) error {
	return s.backend.Delete(ctx, imageKey(productID, filename))
}

// Bucket returns the configured bucket name.
func (s *ImageStore) Bucket() string {
	return s.backend.Bucket()
}

// ImageFilename builds the stored filename for an upload:
// "{productID}_{original}". The original name is reduced to its base so
// path components in uploads cannot escape the product's prefix.
func ImageFilename(productID int, original string) string {
	base := path.Base(strings.ReplaceAll(original, "\\", "/"))
	if base == "." || base == "/" {
		base = "image"
	}
	prefix := fmt.Sprintf("%d_", productID)
	if strings.HasPrefix(base, prefix) {
		return base
	}
	return prefix + base
}

func imageKey(productID int, filename string) string {
	return fmt.Sprintf("%d/%s", productID, filename)
}

func contentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(path.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
