package handler

import (
	"net/http"

	"campusmart/client/internal/models"

	"github.com/gin-gonic/gin"
)

// ListOrders returns the order book. ?refresh=shop (shop accounts only) or
// ?refresh=user (any signed-in user) reloads it first.
func (h *Handler) ListOrders(c *gin.Context) {
	var err error
	switch c.Query("refresh") {
	case "shop":
		if !h.Session.HasRole(models.RoleShop) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "shop account required"})
			return
		}
		err = h.Orders.LoadShopOrders(c.Request.Context())
	case "user":
		if !h.Session.Snapshot().Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
			return
		}
		err = h.Orders.LoadUserOrders(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Orders.List())
}

type statusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// UpdateOrderStatus moves an order through the shop workflow.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	id := c.Param("id")
	if err := h.Orders.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		respondError(c, err)
		return
	}
	order, _ := h.Orders.Get(id)
	c.JSON(http.StatusOK, order)
}
