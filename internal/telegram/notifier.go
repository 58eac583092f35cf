// Package telegram delivers client notifications to a Telegram chat and answers a
// few status commands from that chat.
package telegram

import (
	"context"
	"errors"
	"sync"

	"campusmart/client/internal/chathub"
	"campusmart/client/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const queueSize = 32

var ErrQueueFull = errors.New("telegram: notification queue full")

// Sender is the part of *tgbotapi.BotAPI used to deliver messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier implements chathub.Notifier on top of a bot. Messages are queued and
// sent by Run so a slow Bot API never stalls event processing.
type Notifier struct {
	bot    Sender
	chatID int64
	queue  chan tgbotapi.Chattable

	mu     sync.Mutex
	closed bool
}

func NewNotifier(bot Sender, chatID int64) *Notifier {
	return &Notifier{
		bot:    bot,
		chatID: chatID,
		queue:  make(chan tgbotapi.Chattable, queueSize),
	}
}

var levelPrefix = map[chathub.Level]string{
	chathub.LevelInfo:    "ℹ️ ",
	chathub.LevelSuccess: "✅ ",
	chathub.LevelError:   "⚠️ ",
}

// PlaySound sends a bell with notification sound enabled.
func (n *Notifier) PlaySound(context.Context) error {
	msg := tgbotapi.NewMessage(n.chatID, "🔔")
	msg.DisableNotification = false
	return n.enqueue(msg)
}

// Toast sends text silently; the bell from PlaySound is the audible part.
func (n *Notifier) Toast(_ context.Context, level chathub.Level, text string) error {
	msg := tgbotapi.NewMessage(n.chatID, levelPrefix[level]+tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, text))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableNotification = true
	return n.enqueue(msg)
}

func (n *Notifier) enqueue(c tgbotapi.Chattable) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return chathub.ErrNotifierClosed
	}
	select {
	case n.queue <- c:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run sends queued messages until ctx is done, then drops what is left.
func (n *Notifier) Run(ctx context.Context) {
	defer func() {
		n.mu.Lock()
		n.closed = true
		n.mu.Unlock()
		logger.Log.Info("telegram notifier stopped", zap.Int("dropped", len(n.queue)))
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-n.queue:
			if _, err := n.bot.Send(c); err != nil {
				logger.Log.Warn("telegram send failed", zap.Int64("chat_id", n.chatID), zap.Error(err))
			}
		}
	}
}
