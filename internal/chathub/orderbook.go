package chathub

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"campusmart/client/internal/models"
	"campusmart/client/internal/observe"
)

// OrderAPI is the REST surface behind the order lists.
type OrderAPI interface {
	UserOrders(ctx context.Context) ([]models.Order, error)
	ShopOrders(ctx context.Context) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (models.Order, error)
}

// OrderBook is the local order list: the shop's incoming orders on a shop
// dashboard, the buyer's own orders otherwise. Newest first.
type OrderBook struct {
	mu     sync.RWMutex
	orders  []models.Order
	version uint64
	subs    observe.Subscribers[[]models.Order]

	api OrderAPI
}

func NewOrderBook(api OrderAPI) *OrderBook {
	return &OrderBook{api: api}
}

func (b *OrderBook) Subscribe(fn func([]models.Order)) func() {
	return b.subs.Add(fn)
}

// List returns a copy of the orders.
func (b *OrderBook) List() []models.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.orders)
}

func (b *OrderBook) Get(id string) (models.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if i := b.indexLocked(id); i >= 0 {
		return b.orders[i], true
	}
	return models.Order{}, false
}

func (b *OrderBook) indexLocked(id string) int {
	return slices.IndexFunc(b.orders, func(o models.Order) bool { return o.ID == id })
}

func (b *OrderBook) commit() {
	b.version++
	v := b.version
	list := slices.Clone(b.orders)
	b.mu.Unlock()
	b.subs.PublishAt(v, list)
}

func (b *OrderBook) Set(list []models.Order) {
	b.mu.Lock()
	b.orders = slices.Clone(list)
	b.commit()
}

// Prepend puts o at the head. An older copy with the same id is dropped.
func (b *OrderBook) Prepend(o models.Order) {
	b.mu.Lock()
	if i := b.indexLocked(o.ID); i >= 0 {
		b.orders = slices.Delete(b.orders, i, i+1)
	}
	b.orders = slices.Insert(b.orders, 0, o)
	b.commit()
}

// PatchStatus sets the status of order id and returns the patched order. It
// reports false when the order is not in the list.
func (b *OrderBook) PatchStatus(id string, status models.OrderStatus) (models.Order, bool) {
	b.mu.Lock()
	i := b.indexLocked(id)
	if i < 0 {
		b.mu.Unlock()
		return models.Order{}, false
	}
	b.orders[i].Status = status
	patched := b.orders[i]
	b.commit()
	return patched, true
}

func (b *OrderBook) Reset() {
	b.mu.Lock()
	b.orders = nil
	b.commit()
}

// LoadShopOrders replaces the list with the orders placed at the signed-in shop.
func (b *OrderBook) LoadShopOrders(ctx context.Context) error {
	list, err := b.api.ShopOrders(ctx)
	if err != nil {
		return fmt.Errorf("load shop orders: %w", err)
	}
	b.Set(list)
	return nil
}

// LoadUserOrders replaces the list with the signed-in buyer's orders.
func (b *OrderBook) LoadUserOrders(ctx context.Context) error {
	list, err := b.api.UserOrders(ctx)
	if err != nil {
		return fmt.Errorf("load user orders: %w", err)
	}
	b.Set(list)
	return nil
}

// UpdateStatus moves an order through the shop workflow and patches the local copy.
func (b *OrderBook) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	updated, err := b.api.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return fmt.Errorf("update order %s: %w", id, err)
	}
	if updated.Status != "" {
		status = updated.Status
	}
	b.PatchStatus(id, status)
	return nil
}
