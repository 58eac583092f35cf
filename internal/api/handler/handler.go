// Package handler exposes the client stores to a local UI over HTTP: state views,
// cart and conversation commands, and a websocket stream of badge counters.
package handler

import (
	"errors"
	"net/http"

	"campusmart/client/internal/api"
	"campusmart/client/internal/cart"
	"campusmart/client/internal/chathub"
	"campusmart/client/internal/conversation"
	"campusmart/client/internal/logger"
	"campusmart/client/internal/realtime"
	"campusmart/client/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChannelState is the read side of the realtime channel.
type ChannelState interface {
	State() realtime.State
	Identity() string
	OnStateChange(fn func(realtime.State)) func()
}

// Handler holds the stores the routes read and drive.
type Handler struct {
	Session       *session.Store
	Conversations *conversation.Service
	Cart          *cart.Cart
	Checkout      *cart.Checkout
	Orders        *chathub.OrderBook
	Channel       ChannelState
}

func NewHandler(sess *session.Store, convs *conversation.Service, c *cart.Cart, co *cart.Checkout, orders *chathub.OrderBook, ch ChannelState) *Handler {
	return &Handler{
		Session:       sess,
		Conversations: convs,
		Cart:          c,
		Checkout:      co,
		Orders:        orders,
		Channel:       ch,
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.Use(h.waitForSession)

	r.GET("/session", h.GetSession)
	r.POST("/session", h.Login)
	r.DELETE("/session", h.Logout)

	r.GET("/conversations", h.ListConversations)
	r.POST("/conversations/:id/open", h.OpenConversation)
	r.DELETE("/conversations/selection", h.CloseConversation)
	r.POST("/conversations/messages", h.SendMessage)

	r.GET("/cart", h.GetCart)
	r.POST("/cart/items", h.AddCartItem)
	r.POST("/cart/items/:productId/decrease", h.DecreaseCartItem)
	r.DELETE("/cart/items/:productId", h.RemoveCartItem)
	r.DELETE("/cart", h.ClearCart)

	r.GET("/checkout/quote", h.Quote)
	r.POST("/checkout", h.PlaceOrder)

	r.GET("/orders", h.ListOrders)
	r.PUT("/orders/:id/status", h.UpdateOrderStatus)

	r.GET("/ws", h.ServeWebSocket)
}

// waitForSession holds requests until the stored credential has been restored.
func (h *Handler) waitForSession(c *gin.Context) {
	if err := h.Session.WaitReady(c.Request.Context()); err != nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session is still loading"})
		return
	}
	c.Next()
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, cart.ErrSellerConflict):
		return http.StatusConflict
	case errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, cart.ErrMissingDelivery),
		errors.Is(err, cart.ErrInvalidItem),
		errors.Is(err, conversation.ErrEmptyMessage),
		errors.Is(err, conversation.ErrNoSelection):
		return http.StatusBadRequest
	case errors.Is(err, conversation.ErrUnknownConversation):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidCredential), api.IsUnauthorized(err):
		return http.StatusUnauthorized
	}

	var reqErr *api.RequestError
	if errors.As(err, &reqErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": api.UserMessage(err, err.Error())})
}
