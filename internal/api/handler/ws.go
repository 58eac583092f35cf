package handler

import (
	"net/http"
	"time"

	"campusmart/client/internal/cart"
	"campusmart/client/internal/config"
	"campusmart/client/internal/logger"
	"campusmart/client/internal/realtime"
	"campusmart/client/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local UI only; the server listens on LOCAL_ADDR.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Badges are the counters a UI header shows.
type Badges struct {
	UnreadCount   int    `json:"unreadCount"`
	CartCount     int    `json:"cartCount"`
	Authenticated bool   `json:"authenticated"`
	Realtime      string `json:"realtime"`
}

func (h *Handler) badges() Badges {
	st := h.Session.Snapshot()
	b := Badges{
		UnreadCount:   st.UnreadCount,
		CartCount:     h.Cart.Snapshot().Count(),
		Authenticated: st.Authenticated(),
	}
	if h.Channel != nil {
		b.Realtime = h.Channel.State().String()
	}
	return b
}

// ServeWebSocket streams Badges: once on connect and again after every change.
// Changes are coalesced, so a slow reader always gets the latest counters.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn("badge stream upgrade failed", zap.Error(err))
		return
	}

	dirty := make(chan struct{}, 1)
	done := make(chan struct{})
	mark := func() {
		select {
		case dirty <- struct{}{}:
		default:
		}
	}

	unsubs := []func(){
		h.Session.Subscribe(func(session.State) { mark() }),
		h.Cart.Subscribe(func(cart.Snapshot) { mark() }),
	}
	if h.Channel != nil {
		unsubs = append(unsubs, h.Channel.OnStateChange(func(realtime.State) { mark() }))
	}
	mark()

	go h.writePump(conn, dirty, done)
	readPump(conn)

	close(done)
	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
}

// readPump discards client frames and returns when the client goes away.
func readPump(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(config.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(config.PongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Debug("badge stream read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, dirty <-chan struct{}, done <-chan struct{}) {
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-done:
			conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-dirty:
			conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := conn.WriteJSON(h.badges()); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
