// Package api is the REST client for the campusmart backend.
package api

import (
	"context"
	"net/http"
	"time"

	"campusmart/client/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// TokenSource returns the current bearer credential, or "" for guests.
type TokenSource func() string

// Client wraps resty with the backend's auth header and error shape.
type Client struct {
	http *resty.Client
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// NewClient builds a client for baseURL (e.g. http://localhost:5000/api).
func NewClient(baseURL string, timeout time.Duration, token TokenSource) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if token != nil {
			if t := token(); t != "" && r.Token == "" {
				r.SetAuthToken(t)
			}
		}
		r.SetHeader("X-Request-ID", uuid.New().String())
		return nil
	})

	return &Client{http: rc}
}

func (c *Client) req(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&errorBody{})
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return &RequestError{Message: "request failed", Err: err}
	}
	if !resp.IsError() {
		return nil
	}
	msg := http.StatusText(resp.StatusCode())
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		if body.Message != "" {
			msg = body.Message
		} else if body.Error != "" {
			msg = body.Error
		}
	}
	return &RequestError{StatusCode: resp.StatusCode(), Message: msg}
}

// UnreadCount returns the global unread-message count for token's user. The token is
// passed explicitly so a refresh started before a logout cannot pick up a newer identity.
func (c *Client) UnreadCount(ctx context.Context, token string) (int, error) {
	var out struct {
		UnreadCount int `json:"unreadCount"`
	}
	if err := check(c.req(ctx).SetAuthToken(token).SetResult(&out).Get("/chat/unread-count")); err != nil {
		return 0, err
	}
	return out.UnreadCount, nil
}

type conversationDTO struct {
	ID           string            `json:"_id"`
	Participants []models.UserRef  `json:"participants"`
	Product      models.ProductRef `json:"product"`
	LastMessage  *models.Message   `json:"lastMessage"`
	UnreadCount  int               `json:"unreadCount"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

func (d conversationDTO) toModel() models.Conversation {
	conv := models.Conversation{
		ID:          d.ID,
		Product:     d.Product,
		LastMessage: d.LastMessage,
		UnreadCount: d.UnreadCount,
		UpdatedAt:   d.UpdatedAt,
	}
	// The backend strips the caller from participants.
	if len(d.Participants) > 0 {
		conv.OtherParticipant = d.Participants[0]
	}
	return conv
}

// Conversations lists the user's conversations.
func (c *Client) Conversations(ctx context.Context) ([]models.Conversation, error) {
	var out []conversationDTO
	if err := check(c.req(ctx).SetResult(&out).Get("/chat/conversations")); err != nil {
		return nil, err
	}
	convs := make([]models.Conversation, 0, len(out))
	for _, d := range out {
		convs = append(convs, d.toModel())
	}
	return convs, nil
}

// MarkRead marks every message from otherUserID as read.
func (c *Client) MarkRead(ctx context.Context, otherUserID string) error {
	return check(c.req(ctx).SetPathParam("otherId", otherUserID).Put("/chat/read/{otherId}"))
}

// Messages fetches the thread with otherUserID about productID.
func (c *Client) Messages(ctx context.Context, otherUserID, productID string) ([]models.Message, error) {
	var out []models.Message
	err := check(c.req(ctx).
		SetPathParam("otherId", otherUserID).
		SetQueryParam("productId", productID).
		SetResult(&out).
		Get("/chat/{otherId}"))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage posts body to otherUserID in the context of productID.
func (c *Client) SendMessage(ctx context.Context, otherUserID, productID, body string) (models.Message, error) {
	var out models.Message
	err := check(c.req(ctx).
		SetPathParam("otherId", otherUserID).
		SetBody(map[string]string{"message": body, "productId": productID}).
		SetResult(&out).
		Post("/chat/send/{otherId}"))
	return out, err
}

// Shop fetches the public shop settings.
func (c *Client) Shop(ctx context.Context, shopID string) (models.Shop, error) {
	var out struct {
		ShopDetails models.Shop `json:"shopDetails"`
	}
	err := check(c.req(ctx).SetPathParam("id", shopID).SetResult(&out).Get("/shops/{id}"))
	if err != nil {
		return models.Shop{}, err
	}
	out.ShopDetails.ID = shopID
	return out.ShopDetails, nil
}

// PlaceOrder submits a checkout.
func (c *Client) PlaceOrder(ctx context.Context, order models.Order) (models.Order, error) {
	var out models.Order
	err := check(c.req(ctx).SetBody(order).SetResult(&out).Post("/orders"))
	return out, err
}

// UserOrders lists the buyer's orders.
func (c *Client) UserOrders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	if err := check(c.req(ctx).SetResult(&out).Get("/orders/user")); err != nil {
		return nil, err
	}
	return out, nil
}

// ShopOrders lists orders received by the current shop.
func (c *Client) ShopOrders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	if err := check(c.req(ctx).SetResult(&out).Get("/orders/shop")); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateOrderStatus changes an order's status from the shop dashboard.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (models.Order, error) {
	var out models.Order
	err := check(c.req(ctx).
		SetPathParam("id", orderID).
		SetBody(map[string]models.OrderStatus{"status": status}).
		SetResult(&out).
		Put("/orders/{id}/status"))
	return out, err
}
