package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/minishop/apiserver/internal/services"
	"github.com/minishop/apiserver/internal/store"
	"github.com/minishop/apiserver/types"
)

const (
	maxMultipartMemory = 32 << 20
	maxImageBytes      = 10 << 20

	formFieldName         = "name"
	formFieldDesc         = "description"
	formFieldPrice        = "price"
	formFieldStock        = "stock"
	formFieldImages       = "images"
	formFieldDeleteImages = "delete_images"
)

// ShopHandler provides the catalog and purchase endpoints.
type ShopHandler struct {
	catalog *services.CatalogService
	orders  *services.OrderService
}

// NewShopHandler constructs a handler with the provided services.
func NewShopHandler(catalog *services.CatalogService, orders *services.OrderService) *ShopHandler {
	return &ShopHandler{
		catalog: catalog,
		orders:  orders,
	}
}

// ShopRouter registers shop routes on the given router.
func ShopRouter(r chi.Router, catalog *services.CatalogService, orders *services.OrderService) {
	handler := NewShopHandler(catalog, orders)

	r.Get("/products", handler.ListProducts)
	r.Post("/products", handler.CreateProduct)
	r.Get("/products/{productID}", handler.GetProduct)
	r.Put("/products/update/{productID}", handler.UpdateProduct)
	r.Delete("/products/delete/{productID}", handler.DeleteProduct)
	r.Post("/products/{productID}/purchase", handler.Purchase)
}

func (h *ShopHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeError(w, storageStatus(err), "Failed to list products.")
		return
	}

	items := make([]ProductSummary, 0, len(products))
	for _, product := range products {
		items = append(items, productSummary(product))
	}
	writeJSON(w, http.StatusOK, ProductListResponse{Products: items})
}

func (h *ShopHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found.")
			return
		}
		writeError(w, storageStatus(err), "Failed to fetch product.")
		return
	}

	writeJSON(w, http.StatusOK, ProductDetail{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       fmt.Sprintf("%.2f", product.Price),
		Stock:       product.Stock,
		Images:      imagesOrEmpty(product.ImagePaths),
	})
}

func (h *ShopHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	form, err := parseProductForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(form.Images) == 0 {
		writeError(w, http.StatusBadRequest, "No images provided.")
		return
	}
	if form.Name == nil || form.Price == nil || form.Stock == nil {
		writeError(w, http.StatusBadRequest, "Name, price and stock are required.")
		return
	}

	created, err := h.catalog.Create(r.Context(), services.CreateProductInput{
		Name:        *form.Name,
		Description: stringOrEmpty(form.Description),
		Price:       *form.Price,
		Stock:       *form.Stock,
		Images:      form.Images,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidProduct) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create product.")
		return
	}

	writeJSON(w, http.StatusCreated, ProductMutationResponse{
		Message: "Product added.",
		ID:      created.ID,
		Images:  imagesOrEmpty(created.ImagePaths),
	})
}

func (h *ShopHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	form, err := parseProductForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.catalog.Update(r.Context(), id, services.UpdateProductInput{
		Name:         form.Name,
		Description:  form.Description,
		Price:        form.Price,
		Stock:        form.Stock,
		DeleteImages: form.DeleteImages,
		Images:       form.Images,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Product not found.")
		case errors.Is(err, services.ErrInvalidProduct):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Failed to update product.")
		}
		return
	}

	writeJSON(w, http.StatusOK, ProductMutationResponse{
		Message: "Product updated.",
		ID:      updated.ID,
		Images:  imagesOrEmpty(updated.ImagePaths),
	})
}

func (h *ShopHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.catalog.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete product.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Purchase commits a stock decrement plus order insert for the product.
func (h *ShopHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.UserID < 1 {
		writeError(w, http.StatusBadRequest, "User ID is required.")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	result, err := h.orders.Purchase(r.Context(), id, req.UserID, quantity)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, "Invalid quantity.")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Product not found.")
		case errors.Is(err, store.ErrInsufficientStock):
			writeError(w, http.StatusBadRequest, "Not enough stock available.")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to complete purchase.")
		}
		return
	}

	writeJSON(w, http.StatusOK, PurchaseResponse{
		Status:         "success",
		Message:        "Purchase successful.",
		RemainingStock: result.RemainingStock,
	})
}

type PurchaseRequest struct {
	UserID   int  `json:"user_id"`
	Quantity *int `json:"quantity"`
}

type PurchaseResponse struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	RemainingStock int    `json:"remaining_stock"`
}

type ProductSummary struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	Images      []string `json:"images"`
}

// ProductDetail renders price as a string with two decimals.
type ProductDetail struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Stock       int      `json:"stock"`
	Images      []string `json:"images"`
}

type ProductListResponse struct {
	Products []ProductSummary `json:"products"`
}

type ProductMutationResponse struct {
	Message string   `json:"message"`
	ID      int      `json:"id"`
	Images  []string `json:"images"`
}

// productForm is the parsed multipart payload for product create/update.
type productForm struct {
	Name         *string
	Description  *string
	Price        *float64
	Stock        *int
	DeleteImages []string
	Images       []services.ImageUpload
}

func parseProductForm(r *http.Request) (productForm, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return productForm{}, errors.New("invalid multipart form")
	}

	form := productForm{}
	if name := strings.TrimSpace(r.FormValue(formFieldName)); name != "" {
		form.Name = &name
	}
	if _, ok := r.MultipartForm.Value[formFieldDesc]; ok {
		description := strings.TrimSpace(r.FormValue(formFieldDesc))
		form.Description = &description
	}
	if raw := strings.TrimSpace(r.FormValue(formFieldPrice)); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return productForm{}, errors.New("invalid price")
		}
		form.Price = &price
	}
	if raw := strings.TrimSpace(r.FormValue(formFieldStock)); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			return productForm{}, errors.New("invalid stock")
		}
		form.Stock = &stock
	}

	for _, raw := range r.MultipartForm.Value[formFieldDeleteImages] {
		if name := strings.TrimSpace(raw); name != "" {
			form.DeleteImages = append(form.DeleteImages, name)
		}
	}

	images, err := parseImageFiles(r.MultipartForm)
	if err != nil {
		return productForm{}, err
	}
	form.Images = images

	return form, nil
}

func parseImageFiles(form *multipart.Form) ([]services.ImageUpload, error) {
	if form == nil {
		return nil, nil
	}

	files := form.File[formFieldImages]
	images := make([]services.ImageUpload, 0, len(files))
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to read image %q", fileHeader.Filename)
		}
		data, err := readFileLimited(file, maxImageBytes)
		_ = file.Close()
		if err != nil {
			return nil, err
		}
		images = append(images, services.ImageUpload{
			Filename: fileHeader.Filename,
			Data:     data,
		})
	}
	return images, nil
}

func parseProductID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "productID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid product id")
	}
	return id, nil
}

func productSummary(product types.Product) ProductSummary {
	return ProductSummary{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		Images:      imagesOrEmpty(product.ImagePaths),
	}
}

func imagesOrEmpty(paths []string) []string {
	if paths == nil {
		return []string{}
	}
	return paths
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func storageStatus(err error) int {
	if errors.Is(err, store.ErrUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
