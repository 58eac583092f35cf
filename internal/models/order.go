package models

import "time"

// OrderStatus follows the shop dashboard's lifecycle.
type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderAccepted  OrderStatus = "Accepted"
	OrderPreparing OrderStatus = "Preparing"
	OrderReady     OrderStatus = "Ready"
	OrderDelivered OrderStatus = "Delivered"
	OrderCancelled OrderStatus = "Cancelled"
)

// IsReady reports the terminal "ready for pickup/delivery" state.
func (s OrderStatus) IsReady() bool {
	return s == OrderReady
}

type OrderItem struct {
	ProductID string  `json:"product"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type DeliveryDetails struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Complete reports whether every field required for checkout is set.
func (d DeliveryDetails) Complete() bool {
	return d.Name != "" && d.Phone != "" && d.Address != ""
}

// SellerRef is the seller as embedded in order payloads.
type SellerRef struct {
	ID          string `json:"_id"`
	ShopDetails *Shop  `json:"shopDetails,omitempty"`
}

type Order struct {
	ID              string          `json:"_id"`
	BuyerID         string          `json:"buyer,omitempty"`
	SellerID        string          `json:"sellerId,omitempty"`
	Seller          *SellerRef      `json:"seller,omitempty"`
	Items           []OrderItem     `json:"items"`
	ItemTotal       float64         `json:"itemTotal"`
	PlatformFee     float64         `json:"platformFee"`
	SmallOrderFee   float64         `json:"smallOrderFee"`
	GrandTotal      float64         `json:"grandTotal"`
	Status          OrderStatus     `json:"status"`
	DeliveryDetails DeliveryDetails `json:"deliveryDetails"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// ShopName returns the seller's display name, falling back to "Shop".
func (o Order) ShopName() string {
	if o.Seller != nil && o.Seller.ShopDetails != nil && o.Seller.ShopDetails.ShopName != "" {
		return o.Seller.ShopDetails.ShopName
	}
	return "Shop"
}

// Shop holds the seller settings checkout depends on.
type Shop struct {
	ID            string  `json:"_id,omitempty"`
	ShopName      string  `json:"shopName"`
	Description   string  `json:"description,omitempty"`
	DeliveryTime  string  `json:"deliveryTime,omitempty"`
	MinOrderValue float64 `json:"minOrderValue"`
	IsOpen        bool    `json:"isOpen"`
}
