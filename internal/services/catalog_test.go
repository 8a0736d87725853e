package services

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"testing"

	"github.com/minishop/apiserver/internal/store"
	"github.com/minishop/apiserver/types"
)

type fakeProductRepo struct {
	nextID   int
	products map[int]types.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{
		nextID:   1,
		products: make(map[int]types.Product),
	}
}

func (r *fakeProductRepo) List(ctx context.Context) ([]types.Product, error) {
	products := make([]types.Product, 0, len(r.products))
	for _, product := range r.products {
		products = append(products, product)
	}
	return products, nil
}

func (r *fakeProductRepo) Get(ctx context.Context, id int) (types.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	return product, nil
}

func (r *fakeProductRepo) Create(ctx context.Context, product types.Product) (types.Product, error) {
	product.ID = r.nextID
	r.nextID++
	r.products[product.ID] = product
	return product, nil
}

func (r *fakeProductRepo) Update(ctx context.Context, product types.Product) (types.Product, error) {
	if _, ok := r.products[product.ID]; !ok {
		return types.Product{}, store.ErrNotFound
	}
	r.products[product.ID] = product
	return product, nil
}

func (r *fakeProductRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

type fakeImageStorage struct {
	objects map[string]struct{}
}

func newFakeImageStorage() *fakeImageStorage {
	return &fakeImageStorage{objects: make(map[string]struct{})}
}

func (s *fakeImageStorage) PutImage(ctx context.Context, productID int, filename string, r io.Reader, size int64) (string, error) {
	name := fmt.Sprintf("%d_%s", productID, filename)
	s.objects[fmt.Sprintf("%d/%s", productID, name)] = struct{}{}
	return name, nil
}

func (s *fakeImageStorage) DeleteImage(ctx context.Context, productID int, filename string) error {
	delete(s.objects, fmt.Sprintf("%d/%s", productID, filename))
	return nil
}

func (s *fakeImageStorage) has(productID int, filename string) bool {
	_, ok := s.objects[fmt.Sprintf("%d/%s", productID, filename)]
	return ok
}

func TestCatalogService_Create(t *testing.T) {
	repo := newFakeProductRepo()
	images := newFakeImageStorage()
	svc := NewCatalogService(repo, images)

	created, err := svc.Create(context.Background(), CreateProductInput{
		Name:        "Mug",
		Description: "A mug",
		Price:       9.99,
		Stock:       10,
		Images: []ImageUpload{
			{Filename: "front.png", Data: []byte("png")},
			{Filename: "back.png", Data: []byte("png")},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	want := []string{"1_back.png", "1_front.png"}
	if !reflect.DeepEqual(created.ImagePaths, want) {
		t.Fatalf("expected image paths %v, got %v", want, created.ImagePaths)
	}
	for _, name := range want {
		if !images.has(created.ID, name) {
			t.Fatalf("expected object %q in storage", name)
		}
	}
}

func TestCatalogService_CreateRejectsInvalidFields(t *testing.T) {
	svc := NewCatalogService(newFakeProductRepo(), newFakeImageStorage())

	cases := []CreateProductInput{
		{Name: "", Price: 1, Stock: 1},
		{Name: "Mug", Price: -1, Stock: 1},
		{Name: "Mug", Price: 1, Stock: -1},
	}
	for _, in := range cases {
		if _, err := svc.Create(context.Background(), in); err == nil {
			t.Fatalf("expected validation error for %+v", in)
		}
	}
}

func TestCatalogService_UpdateImageSet(t *testing.T) {
	repo := newFakeProductRepo()
	images := newFakeImageStorage()
	svc := NewCatalogService(repo, images)

	created, err := svc.Create(context.Background(), CreateProductInput{
		Name:  "Mug",
		Price: 9.99,
		Stock: 10,
		Images: []ImageUpload{
			{Filename: "a.png", Data: []byte("png")},
			{Filename: "b.png", Data: []byte("png")},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("final set is existing minus deletes plus uploads", func(t *testing.T) {
		updated, err := svc.Update(context.Background(), created.ID, UpdateProductInput{
			DeleteImages: []string{"1_a.png"},
			Images:       []ImageUpload{{Filename: "c.png", Data: []byte("png")}},
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}

		want := []string{"1_b.png", "1_c.png"}
		if !reflect.DeepEqual(updated.ImagePaths, want) {
			t.Fatalf("expected image paths %v, got %v", want, updated.ImagePaths)
		}
		if images.has(created.ID, "1_a.png") {
			t.Fatalf("expected deleted image object removed from storage")
		}
		if !images.has(created.ID, "1_c.png") {
			t.Fatalf("expected new image object in storage")
		}
	})

	t.Run("deleting an absent filename is a no-op", func(t *testing.T) {
		updated, err := svc.Update(context.Background(), created.ID, UpdateProductInput{
			DeleteImages: []string{"1_missing.png"},
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		want := []string{"1_b.png", "1_c.png"}
		if !reflect.DeepEqual(updated.ImagePaths, want) {
			t.Fatalf("expected image paths unchanged %v, got %v", want, updated.ImagePaths)
		}
	})

	t.Run("re-uploading an existing filename does not duplicate it", func(t *testing.T) {
		updated, err := svc.Update(context.Background(), created.ID, UpdateProductInput{
			Images: []ImageUpload{{Filename: "b.png", Data: []byte("png")}},
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		want := []string{"1_b.png", "1_c.png"}
		if !reflect.DeepEqual(updated.ImagePaths, want) {
			t.Fatalf("expected deduplicated paths %v, got %v", want, updated.ImagePaths)
		}
	})

	t.Run("partial field update keeps the rest", func(t *testing.T) {
		name := "Big Mug"
		price := 12.50
		updated, err := svc.Update(context.Background(), created.ID, UpdateProductInput{
			Name:  &name,
			Price: &price,
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Name != "Big Mug" || updated.Price != 12.50 || updated.Stock != 10 {
			t.Fatalf("unexpected product after partial update: %+v", updated)
		}
	})
}

func TestCatalogService_DeleteRemovesImages(t *testing.T) {
	repo := newFakeProductRepo()
	images := newFakeImageStorage()
	svc := NewCatalogService(repo, images)

	created, err := svc.Create(context.Background(), CreateProductInput{
		Name:   "Mug",
		Price:  9.99,
		Stock:  1,
		Images: []ImageUpload{{Filename: "a.png", Data: []byte("png")}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(images.objects) != 0 {
		t.Fatalf("expected all image objects removed, %d remain", len(images.objects))
	}
	if _, err := svc.Get(context.Background(), created.ID); err == nil {
		t.Fatalf("expected product gone")
	}
}

func TestMergeImagePaths(t *testing.T) {
	got := mergeImagePaths(
		[]string{"1_a.png", "1_b.png", "1_b.png"},
		[]string{"1_a.png", "1_nope.png"},
		[]string{"1_c.png", "1_b.png"},
	)
	want := []string{"1_b.png", "1_c.png"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
