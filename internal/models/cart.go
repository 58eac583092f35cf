package models

// Product is the subset of a listing the cart needs.
type Product struct {
	ID    string  `json:"_id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
}

// CartItem is one line of the cart. Quantity is always >= 1.
type CartItem struct {
	ProductID    string  `json:"productId"`
	SellerShopID string  `json:"sellerShopId"`
	Title        string  `json:"title"`
	UnitPrice    float64 `json:"unitPrice"`
	Quantity     int     `json:"quantity"`
}

// Subtotal is UnitPrice x Quantity.
func (i CartItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}
