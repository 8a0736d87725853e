package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/minishop/apiserver/internal/store"
	"github.com/minishop/apiserver/types"
)

type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID int
	stock  map[int]int
	orders []types.Order
}

func newFakeOrderRepo(stock map[int]int) *fakeOrderRepo {
	return &fakeOrderRepo{
		nextID: 1,
		stock:  stock,
	}
}

func (r *fakeOrderRepo) Purchase(ctx context.Context, productID, userID, quantity int) (types.Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	remaining, ok := r.stock[productID]
	if !ok {
		return types.Order{}, 0, store.ErrNotFound
	}
	if remaining < quantity {
		return types.Order{}, 0, store.ErrInsufficientStock
	}

	remaining -= quantity
	r.stock[productID] = remaining

	order := types.Order{
		ID:        r.nextID,
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: time.Now(),
	}
	r.nextID++
	r.orders = append(r.orders, order)
	return order, remaining, nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id int) (types.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.ID == id {
			return order, nil
		}
	}
	return types.Order{}, store.ErrNotFound
}

func (r *fakeOrderRepo) ListByUser(ctx context.Context, userID int) ([]types.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	orders := make([]types.Order, 0)
	for _, order := range r.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (r *fakeOrderRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, order := range r.orders {
		if order.ID == id {
			r.orders = append(r.orders[:i], r.orders[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *fakeOrderRepo) orderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, data)
	return "msg-1", nil
}

func TestOrderService_Purchase(t *testing.T) {
	t.Run("valid purchase decrements stock and records one order", func(t *testing.T) {
		repo := newFakeOrderRepo(map[int]int{1: 10})
		events := &fakePublisher{}
		svc := NewOrderService(repo, events, "orders.created")

		result, err := svc.Purchase(context.Background(), 1, 5, 3)
		if err != nil {
			t.Fatalf("purchase: %v", err)
		}
		if result.RemainingStock != 7 {
			t.Fatalf("expected remaining stock 7, got %d", result.RemainingStock)
		}
		if result.Order.Quantity != 3 || result.Order.ProductID != 1 || result.Order.UserID != 5 {
			t.Fatalf("unexpected order: %+v", result.Order)
		}
		if repo.orderCount() != 1 {
			t.Fatalf("expected exactly one order, got %d", repo.orderCount())
		}
		if len(events.messages) != 1 {
			t.Fatalf("expected one published event, got %d", len(events.messages))
		}
	})

	t.Run("quantity below one is rejected before any write", func(t *testing.T) {
		repo := newFakeOrderRepo(map[int]int{1: 10})
		svc := NewOrderService(repo, nil, "")

		if _, err := svc.Purchase(context.Background(), 1, 5, 0); !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
		if repo.stock[1] != 10 || repo.orderCount() != 0 {
			t.Fatalf("state changed on rejected purchase")
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		repo := newFakeOrderRepo(map[int]int{})
		svc := NewOrderService(repo, nil, "")

		if _, err := svc.Purchase(context.Background(), 99, 5, 1); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("insufficient stock leaves state unchanged", func(t *testing.T) {
		repo := newFakeOrderRepo(map[int]int{1: 2})
		svc := NewOrderService(repo, nil, "")

		if _, err := svc.Purchase(context.Background(), 1, 5, 3); !errors.Is(err, store.ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}
		if repo.stock[1] != 2 {
			t.Fatalf("expected stock unchanged at 2, got %d", repo.stock[1])
		}
		if repo.orderCount() != 0 {
			t.Fatalf("expected no orders, got %d", repo.orderCount())
		}
	})

	t.Run("concurrent purchases against stock of one", func(t *testing.T) {
		repo := newFakeOrderRepo(map[int]int{1: 1})
		svc := NewOrderService(repo, nil, "")

		results := make(chan error, 2)
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(userID int) {
				defer wg.Done()
				_, err := svc.Purchase(context.Background(), 1, userID, 1)
				results <- err
			}(i + 1)
		}
		wg.Wait()
		close(results)

		var succeeded, insufficient int
		for err := range results {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, store.ErrInsufficientStock):
				insufficient++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if succeeded != 1 || insufficient != 1 {
			t.Fatalf("expected one success and one ErrInsufficientStock, got %d/%d", succeeded, insufficient)
		}
		if repo.stock[1] != 0 {
			t.Fatalf("expected final stock 0, got %d", repo.stock[1])
		}
		if repo.orderCount() != 1 {
			t.Fatalf("expected exactly one order, got %d", repo.orderCount())
		}
	})
}
