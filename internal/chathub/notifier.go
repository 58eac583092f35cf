package chathub

import (
	"context"
	"errors"

	"campusmart/client/internal/logger"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrNotifierClosed is returned by notifiers that have stopped delivering.
var ErrNotifierClosed = errors.New("notifier closed")

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier is any target that can alert the user (log, chat bot, desktop).
// Delivery is best-effort; the synchronizer logs errors and moves on.
type Notifier interface {
	// PlaySound emits the audible alert for an incoming event.
	PlaySound(ctx context.Context) error
	// Toast shows a short text notification.
	Toast(ctx context.Context, level Level, text string) error
}

// LogNotifier writes notifications to the application log.
type LogNotifier struct{}

func (LogNotifier) PlaySound(context.Context) error {
	logger.Log.Info("notification sound")
	return nil
}

func (LogNotifier) Toast(_ context.Context, level Level, text string) error {
	logger.Log.Info("notification", zap.String("level", string(level)), zap.String("text", text))
	return nil
}

// MultiNotifier fans out to every notifier, collecting their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) PlaySound(ctx context.Context) error {
	var err error
	for _, n := range m {
		err = multierr.Append(err, n.PlaySound(ctx))
	}
	return err
}

func (m MultiNotifier) Toast(ctx context.Context, level Level, text string) error {
	var err error
	for _, n := range m {
		err = multierr.Append(err, n.Toast(ctx, level, text))
	}
	return err
}
