package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"campusmart/client/internal/api"
	"campusmart/client/internal/api/handler"
	"campusmart/client/internal/cart"
	"campusmart/client/internal/chathub"
	"campusmart/client/internal/config"
	"campusmart/client/internal/conversation"
	"campusmart/client/internal/localization"
	"campusmart/client/internal/logger"
	"campusmart/client/internal/realtime"
	"campusmart/client/internal/session"
	"campusmart/client/internal/storage"
	"campusmart/client/internal/telegram"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupStorage connects the optional archive database and credential cache.
// Either may be nil when its setting is empty.
func setupStorage(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client) {
	var db *gorm.DB
	if cfg.DatabaseDSN != "" {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
		if err != nil {
			logger.Log.Fatal("failed to connect PostgreSQL", zap.Error(err))
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Log.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Log.Fatal("failed to connect Redis", zap.Error(err))
		}
	}
	return db, rdb
}

func loadTexts(cfg *config.Config) localization.Printer {
	l, err := localization.NewLocalizer(cfg.LocalesDir)
	if err != nil {
		logger.Log.Debug("using embedded locales", zap.String("dir", cfg.LocalesDir), zap.Error(err))
		if l, err = localization.NewEmbeddedLocalizer(); err != nil {
			logger.Log.Fatal("failed to load locales", zap.Error(err))
		}
	}
	if !slices.Contains(l.Languages(), cfg.Locale) {
		logger.Log.Warn("locale not available, falling back", zap.String("locale", cfg.Locale), zap.String("fallback", localization.DefaultLang))
	}
	return l.Printer(cfg.Locale)
}

func amount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// registerCommands exposes read-only views of the client state to the bot chat.
func registerCommands(cmds *telegram.Commands, texts localization.Printer, sess *session.Store, orders *chathub.OrderBook, c *cart.Cart) {
	cmds.Handle("unread", func(context.Context) string {
		st := sess.Snapshot()
		if !st.Authenticated() {
			return texts.Text("bot.signed_out")
		}
		return texts.Text("bot.unread", st.UnreadCount)
	})
	cmds.Handle("orders", func(context.Context) string {
		list := orders.List()
		if len(list) == 0 {
			return texts.Text("bot.orders_empty")
		}
		lines := make([]string, 0, len(list))
		for _, o := range list {
			lines = append(lines, texts.Text("bot.order_line", o.ShopName(), string(o.Status), amount(o.GrandTotal)))
		}
		return strings.Join(lines, "\n")
	})
	cmds.Handle("cart", func(context.Context) string {
		snap := c.Snapshot()
		if snap.Empty() {
			return texts.Text("bot.cart_empty")
		}
		return texts.Text("bot.cart", snap.Count(), snap.ShopID, amount(snap.Total()))
	})
}

func main() {
	cfg := config.Load()
	logger.Initialize(cfg.Environment)
	defer logger.Sync()

	logger.Log.Info("starting CampusMart client", zap.String("api", cfg.APIURL))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	db, rdb := setupStorage(ctx, cfg)
	var archive chathub.Archive
	var creds session.CredentialStore = session.NewMemoryCredentialStore("")
	if db != nil || rdb != nil {
		s := storage.NewStorageService(db, rdb)
		if db != nil {
			if err := s.Migrate(); err != nil {
				logger.Log.Fatal("failed to run migrations", zap.Error(err))
			}
			archive = s
		}
		if rdb != nil {
			creds = s.Credentials(cfg.DeviceID)
		}
	}

	// 2. Session and REST client
	var sess *session.Store
	client := api.NewClient(cfg.APIURL, config.RequestTimeout, func() string { return sess.Token() })
	sess = session.NewStore(creds, client)
	sess.Restore(ctx)

	// 3. Stores
	convs := conversation.NewService(conversation.NewStore(), client, sess)
	orders := chathub.NewOrderBook(client)
	shoppingCart := cart.New(cart.NeverConfirm)
	checkout := cart.NewCheckout(shoppingCart, client)
	texts := loadTexts(cfg)

	// 4. Notifications
	notifiers := chathub.MultiNotifier{chathub.LogNotifier{}}
	if cfg.TelegramToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			logger.Log.Fatal("failed to start Telegram bot", zap.Error(err))
		}
		tg := telegram.NewNotifier(bot, cfg.TelegramChatID)
		notifiers = append(notifiers, tg)
		go tg.Run(ctx)

		cmds := telegram.NewCommands(bot, cfg.TelegramChatID)
		registerCommands(cmds, texts, sess, orders, shoppingCart)
		go cmds.Run(ctx)
	}

	// 5. Realtime channel and synchronizer
	channel := realtime.NewChannel(realtime.NewWSDialer(cfg.SocketURL), cfg.ReconnectDelay)
	synchronizer := chathub.NewSynchronizer(sess, convs, orders, notifiers)
	synchronizer.Texts = texts
	synchronizer.Archive = archive
	detach := synchronizer.Attach(channel)
	unreset := synchronizer.ResetOnIdentityChange(sess)
	unbind := realtime.Bind(sess, channel)
	go synchronizer.Run(ctx)

	if sess.Snapshot().Authenticated() {
		loadCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
		if err := convs.LoadConversations(loadCtx); err != nil {
			logger.Log.Warn("initial conversation load failed", zap.Error(err))
		}
		cancel()
	}

	// 6. Local HTTP surface
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	h := handler.NewHandler(sess, convs, shoppingCart, checkout, orders, channel)
	h.Register(r)

	server := &http.Server{
		Addr:           cfg.LocalAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Log.Info("local server listening", zap.String("addr", cfg.LocalAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warn("server shutdown", zap.Error(err))
	}
	unbind()
	unreset()
	detach()
	channel.Shutdown()
	sess.Wait()
	if rdb != nil {
		_ = rdb.Close()
	}
}
