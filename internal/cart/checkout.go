package cart

import (
	"context"
	"fmt"
	"strings"

	"campusmart/client/internal/config"
	"campusmart/client/internal/logger"
	"campusmart/client/internal/models"

	"go.uber.org/zap"
)

// CheckoutAPI is the REST surface checkout depends on.
type CheckoutAPI interface {
	Shop(ctx context.Context, shopID string) (models.Shop, error)
	PlaceOrder(ctx context.Context, order models.Order) (models.Order, error)
}

// Bill is the checkout breakdown shown before an order is placed.
type Bill struct {
	ShopID        string  `json:"shopId"`
	ShopName      string  `json:"shopName,omitempty"`
	MinOrderValue float64 `json:"minOrderValue"`
	ItemTotal     float64 `json:"itemTotal"`
	PlatformFee   float64 `json:"platformFee"`
	SmallOrderFee float64 `json:"smallOrderFee"`
	GrandTotal    float64 `json:"grandTotal"`
}

// SmallOrderFee applies iff 0 < total < minOrderValue.
func SmallOrderFee(total, minOrderValue float64) float64 {
	if total > 0 && total < minOrderValue {
		return config.SmallOrderFee
	}
	return 0
}

// NewBill computes fees for an item total against a shop minimum.
func NewBill(total, minOrderValue float64) Bill {
	b := Bill{
		MinOrderValue: minOrderValue,
		ItemTotal:     total,
		PlatformFee:   config.PlatformFee,
		SmallOrderFee: SmallOrderFee(total, minOrderValue),
	}
	b.GrandTotal = b.ItemTotal + b.PlatformFee + b.SmallOrderFee
	return b
}

type Checkout struct {
	Cart *Cart
	API  CheckoutAPI
}

func NewCheckout(c *Cart, api CheckoutAPI) *Checkout {
	return &Checkout{Cart: c, API: api}
}

// Quote prices the current cart using its shop's minimum order value.
func (co *Checkout) Quote(ctx context.Context) (Bill, error) {
	bill, _, err := co.quote(ctx)
	return bill, err
}

func (co *Checkout) quote(ctx context.Context) (Bill, Snapshot, error) {
	snap := co.Cart.Snapshot()
	if snap.Empty() {
		return Bill{}, snap, ErrEmptyCart
	}
	shop, err := co.API.Shop(ctx, snap.ShopID)
	if err != nil {
		return Bill{}, snap, fmt.Errorf("load shop %s: %w", snap.ShopID, err)
	}

	bill := NewBill(snap.Total(), shop.MinOrderValue)
	bill.ShopID = snap.ShopID
	bill.ShopName = shop.ShopName
	return bill, snap, nil
}

// PlaceOrder submits the cart with delivery details. The cart is cleared only when
// the order was accepted.
func (co *Checkout) PlaceOrder(ctx context.Context, delivery models.DeliveryDetails) (models.Order, error) {
	delivery = models.DeliveryDetails{
		Name:    strings.TrimSpace(delivery.Name),
		Phone:   strings.TrimSpace(delivery.Phone),
		Address: strings.TrimSpace(delivery.Address),
	}
	if co.Cart.Snapshot().Empty() {
		return models.Order{}, ErrEmptyCart
	}
	if !delivery.Complete() {
		return models.Order{}, ErrMissingDelivery
	}

	bill, snap, err := co.quote(ctx)
	if err != nil {
		return models.Order{}, err
	}

	order := models.Order{
		SellerID:        snap.ShopID,
		Items:           make([]models.OrderItem, 0, len(snap.Items)),
		ItemTotal:       bill.ItemTotal,
		PlatformFee:     bill.PlatformFee,
		SmallOrderFee:   bill.SmallOrderFee,
		GrandTotal:      bill.GrandTotal,
		DeliveryDetails: delivery,
	}
	for _, it := range snap.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Title,
			Price:     it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}

	placed, err := co.API.PlaceOrder(ctx, order)
	if err != nil {
		return models.Order{}, fmt.Errorf("place order: %w", err)
	}
	co.Cart.Settle(snap)

	logger.Log.Info("order placed",
		zap.String("order_id", placed.ID),
		zap.String("shop_id", snap.ShopID),
		zap.Float64("grand_total", bill.GrandTotal),
	)
	return placed, nil
}
