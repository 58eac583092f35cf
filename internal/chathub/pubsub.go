package chathub

import (
	"campusmart/client/internal/logger"
	"campusmart/client/internal/models"
	"campusmart/client/internal/realtime"
	"campusmart/client/internal/session"

	"go.uber.org/zap"
)

// EventSource is the realtime channel as seen by the synchronizer.
type EventSource interface {
	Subscribe(kind string, h realtime.Handler) func()
}

var handledKinds = []string{
	models.EventNewMessage,
	models.EventNewOrder,
	models.EventOrderStatusUpdated,
	models.EventConversationsUpdated,
}

// Attach forwards the handled event kinds from src into the run loop and returns
// the func that detaches them.
func (s *Synchronizer) Attach(src EventSource) func() {
	unsubs := make([]func(), 0, len(handledKinds))
	for _, kind := range handledKinds {
		unsubs = append(unsubs, src.Subscribe(kind, s.enqueue))
	}
	return func() {
		for _, unsubscribe := range unsubs {
			unsubscribe()
		}
	}
}

// IdentityNotifier reports sign-in, sign-out and user switches.
type IdentityNotifier interface {
	OnIdentityChange(fn session.IdentityListener) func()
}

// ResetOnIdentityChange drops the conversations and orders of the previous user
// whenever the signed-in identity changes, logout included. An event being handled
// when the change happens finishes before the reset; later ones see the new identity.
func (s *Synchronizer) ResetOnIdentityChange(src IdentityNotifier) func() {
	return src.OnIdentityChange(func(prev, next *models.Identity) {
		s.handleMu.Lock()
		defer s.handleMu.Unlock()

		s.Conversations.Store.Reset()
		s.Orders.Reset()
		if prev != nil {
			logger.Log.Debug("per-user state reset", zap.String("user_id", prev.ID))
		}
	})
}

// enqueue blocks the read loop while the buffer is full; after Run has returned
// events are discarded. An event not stamped by its source is stamped with the
// current identity; with nobody signed in it is dropped.
func (s *Synchronizer) enqueue(ev models.Event) {
	if ev.IdentityID == "" {
		ev.IdentityID = s.ownerID()
	}
	if ev.IdentityID == "" {
		logger.Log.Debug("dropping realtime event without a session", zap.String("event", ev.Kind))
		return
	}
	select {
	case s.EventCh <- ev:
	case <-s.stopped:
	}
}
