package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/minishop/apiserver/internal/services"
	"github.com/minishop/apiserver/internal/store"
)

// OrderHandler provides order query endpoints under the user routes.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs a handler with the provided service.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// OrderRouter registers order routes on the given (user-scoped) router.
func OrderRouter(r chi.Router, orders *services.OrderService) {
	handler := NewOrderHandler(orders)

	r.Get("/{userID}/orders", handler.ListUserOrders)
	r.Get("/orders/{orderID}", handler.GetOrder)
	r.Delete("/orders/{orderID}", handler.DeleteOrder)
}

func (h *OrderHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list orders.")
		return
	}

	items := make([]UserOrderItem, 0, len(orders))
	for _, order := range orders {
		items = append(items, UserOrderItem{
			ID:        order.ID,
			ProductID: order.ProductID,
			Quantity:  order.Quantity,
			CreatedAt: order.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := parsePathID(r, "orderID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Order not found.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch order.")
		return
	}

	writeJSON(w, http.StatusOK, OrderDetail{
		ID:        order.ID,
		UserID:    order.UserID,
		ProductID: order.ProductID,
		Quantity:  order.Quantity,
		CreatedAt: order.CreatedAt,
	})
}

func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := parsePathID(r, "orderID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.orders.Delete(r.Context(), orderID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Order not found.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete order.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type UserOrderItem struct {
	ID        int       `json:"id"`
	ProductID int       `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderDetail struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	ProductID int       `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

func parsePathID(r *http.Request, param string) (int, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
