package telegram

import (
	"context"
	"slices"
	"strings"

	"campusmart/client/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot is the part of *tgbotapi.BotAPI the command loop needs.
type Bot interface {
	Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Command answers a bot command with a text reply.
type Command func(ctx context.Context) string

// Commands answers commands sent from the configured chat. Updates from any other
// chat are ignored.
type Commands struct {
	bot      Bot
	chatID   int64
	handlers map[string]Command
}

func NewCommands(bot Bot, chatID int64) *Commands {
	return &Commands{bot: bot, chatID: chatID, handlers: make(map[string]Command)}
}

// Handle registers fn for /name.
func (c *Commands) Handle(name string, fn Command) {
	c.handlers[strings.TrimPrefix(name, "/")] = fn
}

// Run polls updates until ctx is done.
func (c *Commands) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)
	defer c.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			c.handleUpdate(ctx, update)
		}
	}
}

func (c *Commands) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() || msg.Chat.ID != c.chatID {
		return
	}

	text := "Unknown command. Try " + c.usage()
	if fn, ok := c.handlers[msg.Command()]; ok {
		text = fn(ctx)
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	if _, err := c.bot.Send(reply); err != nil {
		logger.Log.Warn("telegram reply failed", zap.String("command", msg.Command()), zap.Error(err))
	}
}

func (c *Commands) usage() string {
	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, "/"+name)
	}
	slices.Sort(names)
	return strings.Join(names, " ")
}
