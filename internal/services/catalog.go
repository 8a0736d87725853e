package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/minishop/apiserver/internal/store"
	"github.com/minishop/apiserver/types"
)

// ErrInvalidProduct is returned when product fields fail validation.
var ErrInvalidProduct = errors.New("invalid product")

const readRetries = 2

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	List(ctx context.Context) ([]types.Product, error)
	Get(ctx context.Context, id int) (types.Product, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	Update(ctx context.Context, product types.Product) (types.Product, error)
	Delete(ctx context.Context, id int) error
}

// ImageStorage defines the object storage operations the catalog needs.
type ImageStorage interface {
	PutImage(ctx context.Context, productID int, filename string, r io.Reader, size int64) (string, error)
	DeleteImage(ctx context.Context, productID int, filename string) error
}

// ImageUpload is an in-memory uploaded image file.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// CreateProductInput carries the fields for a new product.
type CreateProductInput struct {
	Name        string
	Description string
	Price       float64
	Stock       int
	Images      []ImageUpload
}

// UpdateProductInput carries a partial product update. Nil pointer fields
// are left unchanged.
type UpdateProductInput struct {
	Name         *string
	Description  *string
	Price        *float64
	Stock        *int
	DeleteImages []string
	Images       []ImageUpload
}

// CatalogService encapsulates product use-cases, including image-set
// management against object storage.
type CatalogService struct {
	repo   ProductRepository
	images ImageStorage
}

func NewCatalogService(repo ProductRepository, images ImageStorage) *CatalogService {
	return &CatalogService{repo: repo, images: images}
}

func (s *CatalogService) List(ctx context.Context) ([]types.Product, error) {
	var products []types.Product
	err := retryRead(func() error {
		var listErr error
		products, listErr = s.repo.List(ctx)
		return listErr
	})
	return products, err
}

func (s *CatalogService) Get(ctx context.Context, id int) (types.Product, error) {
	var product types.Product
	err := retryRead(func() error {
		var getErr error
		product, getErr = s.repo.Get(ctx, id)
		return getErr
	})
	return product, err
}

// Create commits the product row first with an empty image set, uploads
// the image objects, then attaches the final filename list to the row.
// A client therefore never sees an image reference whose object does not
// exist yet.
func (s *CatalogService) Create(ctx context.Context, in CreateProductInput) (types.Product, error) {
	if err := validateProduct(in.Name, in.Price, in.Stock); err != nil {
		return types.Product{}, err
	}

	created, err := s.repo.Create(ctx, types.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
	})
	if err != nil {
		return types.Product{}, err
	}

	if len(in.Images) == 0 {
		return created, nil
	}

	uploaded, err := s.uploadImages(ctx, created.ID, in.Images)
	if err != nil {
		s.deleteImages(ctx, created.ID, uploaded)
		return types.Product{}, err
	}

	created.ImagePaths = mergeImagePaths(nil, nil, uploaded)
	return s.repo.Update(ctx, created)
}

// Update applies a partial update. The final image set is
// (existing - DeleteImages) union newly uploaded filenames, deduplicated;
// deleting a filename that is not present is a no-op. New objects are
// uploaded before the row is rewritten.
func (s *CatalogService) Update(ctx context.Context, id int, in UpdateProductInput) (types.Product, error) {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Product{}, err
	}

	if in.Name != nil {
		product.Name = *in.Name
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Price != nil {
		product.Price = *in.Price
	}
	if in.Stock != nil {
		product.Stock = *in.Stock
	}
	if err := validateProduct(product.Name, product.Price, product.Stock); err != nil {
		return types.Product{}, err
	}

	uploaded, err := s.uploadImages(ctx, id, in.Images)
	if err != nil {
		s.deleteImages(ctx, id, uploaded)
		return types.Product{}, err
	}

	removed := intersect(product.ImagePaths, in.DeleteImages)
	product.ImagePaths = mergeImagePaths(product.ImagePaths, in.DeleteImages, uploaded)

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		s.deleteImages(ctx, id, uploaded)
		return types.Product{}, err
	}

	// Objects for removed filenames go away only after the row no longer
	// references them.
	s.deleteImages(ctx, id, removed)
	return updated, nil
}

// Delete removes the product row and then its image objects best-effort.
func (s *CatalogService) Delete(ctx context.Context, id int) error {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.deleteImages(ctx, id, product.ImagePaths)
	return nil
}

func (s *CatalogService) uploadImages(ctx context.Context, productID int, images []ImageUpload) ([]string, error) {
	uploaded := make([]string, 0, len(images))
	for _, image := range images {
		name, err := s.images.PutImage(ctx, productID, image.Filename, bytes.NewReader(image.Data), int64(len(image.Data)))
		if err != nil {
			return uploaded, fmt.Errorf("upload image %q: %w", image.Filename, err)
		}
		uploaded = append(uploaded, name)
	}
	return uploaded, nil
}

func (s *CatalogService) deleteImages(ctx context.Context, productID int, filenames []string) {
	for _, filename := range filenames {
		_ = s.images.DeleteImage(ctx, productID, filename)
	}
}

func validateProduct(name string, price float64, stock int) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	return nil
}

// mergeImagePaths computes (existing - deletes) union added with
// duplicates removed. The result is sorted so the stored set is stable.
func mergeImagePaths(existing, deletes, added []string) []string {
	drop := make(map[string]struct{}, len(deletes))
	for _, name := range deletes {
		drop[name] = struct{}{}
	}

	seen := make(map[string]struct{})
	merged := make([]string, 0, len(existing)+len(added))
	for _, name := range existing {
		if _, ok := drop[name]; ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		merged = append(merged, name)
	}
	for _, name := range added {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		merged = append(merged, name)
	}

	sort.Strings(merged)
	return merged
}

func intersect(existing, names []string) []string {
	present := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		present[name] = struct{}{}
	}
	matched := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := present[name]; ok {
			matched = append(matched, name)
		}
	}
	return matched
}

// retryRead retries idempotent reads a bounded number of times when the
// storage layer reports a connection-level failure. Writes are never
// retried.
func retryRead(fn func() error) error {
	var err error
	for attempt := 0; attempt <= readRetries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, store.ErrUnavailable) {
			return err
		}
	}
	return err
}
