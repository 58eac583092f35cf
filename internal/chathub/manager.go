// Package chathub applies realtime events to the local stores: new chat messages,
// incoming shop orders and order status changes.
package chathub

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"campusmart/client/internal/config"
	"campusmart/client/internal/conversation"
	"campusmart/client/internal/logger"
	"campusmart/client/internal/models"
	"campusmart/client/internal/session"

	"go.uber.org/zap"
)

const eventBuffer = 64

// Notification text keys.
const (
	TextNewOrder   = "toast.new_order"
	TextOrderReady = "toast.order_ready"
)

var defaultTexts = map[string]string{
	TextNewOrder:   "New Order Received! ₹%s",
	TextOrderReady: "Order from %s is READY!",
}

// Texts resolves a notification text key with fmt-style arguments.
type Texts interface {
	Text(key string, args ...any) string
}

// Session is what the synchronizer needs from the session store.
type Session interface {
	Snapshot() session.State
	RefreshUnreadCount(ctx context.Context)
}

// Archive records received events for later inspection.
type Archive interface {
	SaveMessage(ctx context.Context, ownerID string, m models.Message) error
	SaveOrder(ctx context.Context, ownerID, event string, o models.Order) error
}

// Synchronizer consumes realtime events on a single goroutine, so store mutations
// driven by events happen in arrival order.
type Synchronizer struct {
	EventCh chan models.Event

	Session       Session
	Conversations *conversation.Service
	Orders        *OrderBook
	Notifier      Notifier
	Texts         Texts
	Archive       Archive

	// handleMu makes event handling and per-user resets mutually exclusive.
	handleMu sync.Mutex
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewSynchronizer(sess Session, convs *conversation.Service, orders *OrderBook, notifier Notifier) *Synchronizer {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Synchronizer{
		EventCh:       make(chan models.Event, eventBuffer),
		Session:       sess,
		Conversations: convs,
		Orders:        orders,
		Notifier:      notifier,
		stopped:       make(chan struct{}),
	}
}

// Run processes events until ctx is done.
func (s *Synchronizer) Run(ctx context.Context) {
	defer s.stopOnce.Do(func() { close(s.stopped) })
	logger.Log.Info("synchronizer started")

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("synchronizer stopped")
			return
		case ev := <-s.EventCh:
			s.Handle(ctx, ev)
		}
	}
}

// Handle applies one event. Malformed payloads are dropped with a warning, and so is
// an event received for an identity that is no longer signed in.
func (s *Synchronizer) Handle(ctx context.Context, ev models.Event) {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()

	if ev.IdentityID != "" && ev.IdentityID != s.ownerID() {
		logger.Log.Debug("dropping realtime event for previous session",
			zap.String("event", ev.Kind),
			zap.String("user_id", ev.IdentityID),
		)
		return
	}
	switch ev.Kind {
	case models.EventNewMessage:
		s.handleNewMessage(ctx, ev)
	case models.EventNewOrder:
		s.handleNewOrder(ctx, ev)
	case models.EventOrderStatusUpdated:
		s.handleOrderStatus(ctx, ev)
	case models.EventConversationsUpdated:
		logger.Log.Debug("conversations updated event ignored")
	default:
		logger.Log.Debug("unhandled realtime event", zap.String("event", ev.Kind))
	}
}

func (s *Synchronizer) handleNewMessage(ctx context.Context, ev models.Event) {
	var msg models.Message
	if err := ev.Decode(&msg); err != nil {
		logger.Log.Warn("dropping malformed message event", zap.Error(err))
		return
	}
	if !msg.Valid() {
		logger.Log.Warn("dropping message event without id or conversation",
			zap.String("message_id", msg.ID),
			zap.String("conversation_id", msg.ConversationID),
		)
		return
	}

	s.playSound(ctx)
	s.Session.RefreshUnreadCount(ctx)

	store := s.Conversations.Store
	if store.IsSelected(msg.ConversationID) {
		store.AppendMessage(msg.ConversationID, msg)
	}
	if !store.Touch(msg.ConversationID, msg) {
		logger.Log.Debug("message for unknown conversation, reloading list", zap.String("conversation_id", msg.ConversationID))
		reloadCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
		if err := s.Conversations.LoadConversations(reloadCtx); err != nil {
			logger.Log.Warn("conversation reload failed", zap.Error(err))
		}
		cancel()
	}

	if s.Archive != nil {
		if err := s.Archive.SaveMessage(ctx, s.ownerID(), msg); err != nil {
			logger.Log.Warn("failed to archive message", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
}

func (s *Synchronizer) handleNewOrder(ctx context.Context, ev models.Event) {
	var order models.Order
	if err := ev.Decode(&order); err != nil || order.ID == "" {
		logger.Log.Warn("dropping malformed order event", zap.Error(err))
		return
	}

	s.playSound(ctx)
	s.toast(ctx, LevelSuccess, s.text(TextNewOrder, formatAmount(order.GrandTotal)))
	s.Orders.Prepend(order)
	s.archiveOrder(ctx, ev.Kind, order)
}

func (s *Synchronizer) handleOrderStatus(ctx context.Context, ev models.Event) {
	var order models.Order
	if err := ev.Decode(&order); err != nil || order.ID == "" || order.Status == "" {
		logger.Log.Warn("dropping malformed order status event", zap.Error(err))
		return
	}

	shopName := order.ShopName()
	patched, ok := s.Orders.PatchStatus(order.ID, order.Status)
	if !ok {
		logger.Log.Debug("status update for order not in list", zap.String("order_id", order.ID))
	} else if order.Seller == nil {
		shopName = patched.ShopName()
	}

	if order.Status.IsReady() {
		s.playSound(ctx)
		s.toast(ctx, LevelSuccess, s.text(TextOrderReady, shopName))
	}
	s.archiveOrder(ctx, ev.Kind, order)
}

func (s *Synchronizer) archiveOrder(ctx context.Context, event string, order models.Order) {
	if s.Archive == nil {
		return
	}
	if err := s.Archive.SaveOrder(ctx, s.ownerID(), event, order); err != nil {
		logger.Log.Warn("failed to archive order", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func (s *Synchronizer) ownerID() string {
	if id := s.Session.Snapshot().Identity; id != nil {
		return id.ID
	}
	return ""
}

func (s *Synchronizer) playSound(ctx context.Context) {
	if err := s.Notifier.PlaySound(ctx); err != nil {
		logger.Log.Debug("notification sound failed", zap.Error(err))
	}
}

func (s *Synchronizer) toast(ctx context.Context, level Level, text string) {
	if err := s.Notifier.Toast(ctx, level, text); err != nil {
		logger.Log.Debug("toast failed", zap.Error(err))
	}
}

func (s *Synchronizer) text(key string, args ...any) string {
	if s.Texts != nil {
		return s.Texts.Text(key, args...)
	}
	return fmt.Sprintf(defaultTexts[key], args...)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
