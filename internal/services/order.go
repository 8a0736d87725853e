package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/minishop/apiserver/types"
)

// ErrInvalidQuantity is returned when a purchase asks for less than one unit.
var ErrInvalidQuantity = errors.New("invalid quantity")

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	Purchase(ctx context.Context, productID, userID, quantity int) (types.Order, int, error)
	GetByID(ctx context.Context, id int) (types.Order, error)
	ListByUser(ctx context.Context, userID int) ([]types.Order, error)
	Delete(ctx context.Context, id int) error
}

// EventPublisher publishes order events to a message broker.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// PurchaseResult is the outcome of a committed purchase.
type PurchaseResult struct {
	Order          types.Order
	RemainingStock int
}

// OrderCreatedEvent is the payload published after a purchase commits.
type OrderCreatedEvent struct {
	OrderID   int       `json:"order_id"`
	UserID    int       `json:"user_id"`
	ProductID int       `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderService encapsulates purchase and order-query use-cases.
type OrderService struct {
	repo    OrderRepository
	events  EventPublisher
	channel string
}

// NewOrderService constructs an OrderService. events may be nil, in which
// case no order events are published.
func NewOrderService(repo OrderRepository, events EventPublisher, channel string) *OrderService {
	return &OrderService{
		repo:    repo,
		events:  events,
		channel: channel,
	}
}

// Purchase validates the quantity and commits the stock decrement plus
// order insert as one transaction. On success an order-created event is
// published best-effort; the order row is the source of truth.
func (s *OrderService) Purchase(ctx context.Context, productID, userID, quantity int) (PurchaseResult, error) {
	if quantity < 1 {
		return PurchaseResult{}, ErrInvalidQuantity
	}

	order, remaining, err := s.repo.Purchase(ctx, productID, userID, quantity)
	if err != nil {
		return PurchaseResult{}, err
	}

	s.publishOrderCreated(ctx, order)

	return PurchaseResult{Order: order, RemainingStock: remaining}, nil
}

func (s *OrderService) Get(ctx context.Context, id int) (types.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *OrderService) ListByUser(ctx context.Context, userID int) ([]types.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *OrderService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *OrderService) publishOrderCreated(ctx context.Context, order types.Order) {
	if s.events == nil {
		return
	}

	event := OrderCreatedEvent{
		OrderID:   order.ID,
		UserID:    order.UserID,
		ProductID: order.ProductID,
		Quantity:  order.Quantity,
		CreatedAt: order.CreatedAt,
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("order event marshal failed: %v", err)
		return
	}
	if _, err := s.events.Publish(ctx, s.channel, data, nil); err != nil {
		log.Printf("order event publish failed: %v", err)
	}
}
