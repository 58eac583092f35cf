// Package cart is the single-seller shopping cart and its checkout.
package cart

import (
	"errors"
	"slices"
	"sync"

	"campusmart/client/internal/models"
	"campusmart/client/internal/observe"
)

var (
	ErrSellerConflict  = errors.New("cart holds items from another shop")
	ErrInvalidItem     = errors.New("product and shop id are required")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrMissingDelivery = errors.New("please fill in all delivery details")
)

// Confirmer asks the user whether the current cart may be discarded to add an item
// from another shop.
type Confirmer interface {
	ConfirmSellerSwitch(currentShopID, newShopID string) bool
}

// ConfirmFunc adapts a func to Confirmer.
type ConfirmFunc func(currentShopID, newShopID string) bool

func (f ConfirmFunc) ConfirmSellerSwitch(currentShopID, newShopID string) bool {
	return f(currentShopID, newShopID)
}

var (
	AlwaysConfirm Confirmer = ConfirmFunc(func(string, string) bool { return true })
	NeverConfirm  Confirmer = ConfirmFunc(func(string, string) bool { return false })
)

// Snapshot is a copy of the cart. ShopID is "" iff Items is empty.
type Snapshot struct {
	Items  []models.CartItem `json:"items"`
	ShopID string            `json:"shopId,omitempty"`
}

func (s Snapshot) Empty() bool {
	return len(s.Items) == 0
}

// Total is the sum of unit price times quantity.
func (s Snapshot) Total() float64 {
	var total float64
	for _, it := range s.Items {
		total += it.Subtotal()
	}
	return total
}

// Count is the sum of quantities.
func (s Snapshot) Count() int {
	var n int
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

// Cart is either empty or holds items from exactly one shop.
type Cart struct {
	mu      sync.Mutex
	items   []models.CartItem
	shopID  string
	confirm Confirmer
	version uint64

	subs observe.Subscribers[Snapshot]
}

// New returns an empty cart. A nil confirm declines every seller switch.
func New(confirm Confirmer) *Cart {
	if confirm == nil {
		confirm = NeverConfirm
	}
	return &Cart{confirm: confirm}
}

func (c *Cart) Subscribe(fn func(Snapshot)) func() {
	return c.subs.Add(fn)
}

func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Cart) snapshotLocked() Snapshot {
	return Snapshot{Items: slices.Clone(c.items), ShopID: c.shopID}
}

func (c *Cart) commit() {
	if len(c.items) == 0 {
		c.items = nil
		c.shopID = ""
	}
	c.version++
	v := c.version
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.subs.PublishAt(v, snap)
}

func (c *Cart) indexLocked(productID string) int {
	return slices.IndexFunc(c.items, func(it models.CartItem) bool { return it.ProductID == productID })
}

// AddItem adds one unit of p sold by shopID, asking the cart's Confirmer before
// replacing a cart from another shop.
func (c *Cart) AddItem(p models.Product, shopID string) error {
	return c.AddItemWith(p, shopID, c.confirm)
}

// AddItemWith is AddItem with an explicit Confirmer. A declined switch returns
// ErrSellerConflict and leaves the cart untouched.
func (c *Cart) AddItemWith(p models.Product, shopID string, confirm Confirmer) error {
	if p.ID == "" || shopID == "" {
		return ErrInvalidItem
	}

	c.mu.Lock()
	if c.shopID != "" && c.shopID != shopID {
		current := c.shopID
		c.mu.Unlock()
		if confirm == nil || !confirm.ConfirmSellerSwitch(current, shopID) {
			return ErrSellerConflict
		}

		c.mu.Lock()
		switch c.shopID {
		case current:
			c.items = nil
			c.shopID = ""
		case "", shopID:
		default:
			c.mu.Unlock()
			return ErrSellerConflict
		}
	}

	c.shopID = shopID
	if i := c.indexLocked(p.ID); i >= 0 {
		c.items[i].Quantity++
	} else {
		c.items = append(c.items, models.CartItem{
			ProductID:    p.ID,
			SellerShopID: shopID,
			Title:        p.Title,
			UnitPrice:    p.Price,
			Quantity:     1,
		})
	}
	c.commit()
	return nil
}

// DecreaseQuantity removes one unit; the item goes away at zero. It reports whether
// the product was in the cart.
func (c *Cart) DecreaseQuantity(productID string) bool {
	c.mu.Lock()
	i := c.indexLocked(productID)
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	if c.items[i].Quantity <= 1 {
		c.items = slices.Delete(c.items, i, i+1)
	} else {
		c.items[i].Quantity--
	}
	c.commit()
	return true
}

// RemoveItem drops the product regardless of quantity.
func (c *Cart) RemoveItem(productID string) bool {
	c.mu.Lock()
	i := c.indexLocked(productID)
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	c.items = slices.Delete(c.items, i, i+1)
	c.commit()
	return true
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.commit()
}

// Settle removes the quantities in ordered, a snapshot taken when the order was
// submitted. Items added or increased since then stay in the cart.
func (c *Cart) Settle(ordered Snapshot) {
	c.mu.Lock()
	if c.shopID == ordered.ShopID && slices.Equal(c.items, ordered.Items) {
		c.items = nil
		c.commit()
		return
	}
	if c.shopID != ordered.ShopID {
		c.mu.Unlock()
		return
	}
	for _, it := range ordered.Items {
		i := c.indexLocked(it.ProductID)
		if i < 0 {
			continue
		}
		c.items[i].Quantity -= it.Quantity
		if c.items[i].Quantity <= 0 {
			c.items = slices.Delete(c.items, i, i+1)
		}
	}
	c.commit()
}
