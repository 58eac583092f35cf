package handler

import (
	"net/http"

	"campusmart/client/internal/cart"
	"campusmart/client/internal/models"

	"github.com/gin-gonic/gin"
)

type cartView struct {
	cart.Snapshot
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

func (h *Handler) cartView() cartView {
	snap := h.Cart.Snapshot()
	return cartView{Snapshot: snap, Total: snap.Total(), Count: snap.Count()}
}

func (h *Handler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.cartView())
}

type addItemRequest struct {
	Product models.Product `json:"product"`
	ShopID  string         `json:"shopId"`
	// ConfirmSwitch is the user's answer to "reset cart to add items from this new shop?".
	ConfirmSwitch bool `json:"confirmSwitch"`
}

// AddCartItem answers 409 when the item is from another shop and the switch was not
// confirmed.
func (h *Handler) AddCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	confirm := cart.NeverConfirm
	if req.ConfirmSwitch {
		confirm = cart.AlwaysConfirm
	}
	if err := h.Cart.AddItemWith(req.Product, req.ShopID, confirm); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.cartView())
}

func (h *Handler) DecreaseCartItem(c *gin.Context) {
	if !h.Cart.DecreaseQuantity(c.Param("productId")) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "item not in cart"})
		return
	}
	c.JSON(http.StatusOK, h.cartView())
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	if !h.Cart.RemoveItem(c.Param("productId")) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "item not in cart"})
		return
	}
	c.JSON(http.StatusOK, h.cartView())
}

func (h *Handler) ClearCart(c *gin.Context) {
	h.Cart.Clear()
	c.JSON(http.StatusOK, h.cartView())
}

func (h *Handler) Quote(c *gin.Context) {
	bill, err := h.Checkout.Quote(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

type checkoutRequest struct {
	DeliveryDetails models.DeliveryDetails `json:"deliveryDetails"`
}

func (h *Handler) PlaceOrder(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	order, err := h.Checkout.PlaceOrder(c.Request.Context(), req.DeliveryDetails)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}
