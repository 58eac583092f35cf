package realtime

import (
	"campusmart/client/internal/logger"
	"campusmart/client/internal/models"
	"campusmart/client/internal/session"

	"go.uber.org/zap"
)

// IdentitySource is the part of the session store the channel follows.
type IdentitySource interface {
	Snapshot() session.State
	OnIdentityChange(fn session.IdentityListener) func()
}

// Bind keeps ch connected for the session's identity: signed in opens it, signed out
// closes it, a user switch closes the old connection and opens a new one. It returns
// the func that detaches the binding.
func Bind(src IdentitySource, ch *Channel) func() {
	apply := func(next *models.Identity) {
		if !next.Valid() {
			ch.Close()
			return
		}
		if err := ch.Connect(next.ID); err != nil {
			logger.Log.Warn("realtime connect refused", zap.String("user_id", next.ID), zap.Error(err))
		}
	}

	unsubscribe := src.OnIdentityChange(func(_, next *models.Identity) { apply(next) })
	apply(src.Snapshot().Identity)
	return unsubscribe
}
