// Package realtime keeps one websocket open to the socket server for the signed-in
// user and fans inbound events out to subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"campusmart/client/internal/config"
	"campusmart/client/internal/logger"
	"campusmart/client/internal/models"
	"campusmart/client/internal/observe"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrClosed        = errors.New("realtime channel closed")
	ErrEmptyIdentity = errors.New("realtime: empty identity")
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handler receives a decoded event. The event is shared between handlers and must
// not be modified. Handlers run on the read loop and must not call Connect or Close.
type Handler func(models.Event)

// Channel is the single live connection for the current identity. Each Connect or
// Close bumps a generation; a read loop from an older generation can neither
// deliver events nor change the state.
type Channel struct {
	dialer Dialer
	delay  time.Duration

	mu       sync.Mutex
	state    State
	identity string
	gen      uint64
	cancel   context.CancelFunc
	conn     *websocket.Conn
	done     chan struct{}
	shutdown bool

	hmu      sync.Mutex
	handlers map[string]*observe.Subscribers[models.Event]
	states   observe.Subscribers[State]
}

// NewChannel returns a disconnected channel that redials every delay after a drop.
func NewChannel(dialer Dialer, delay time.Duration) *Channel {
	return &Channel{
		dialer:   dialer,
		delay:    delay,
		handlers: make(map[string]*observe.Subscribers[models.Event]),
	}
}

// Subscribe registers h for events of kind and returns the unsubscribe func.
// Subscriptions survive reconnects and identity switches.
func (c *Channel) Subscribe(kind string, h Handler) func() {
	c.hmu.Lock()
	subs, ok := c.handlers[kind]
	if !ok {
		subs = &observe.Subscribers[models.Event]{}
		c.handlers[kind] = subs
	}
	c.hmu.Unlock()
	return subs.Add(h)
}

// OnStateChange registers fn for state transitions.
func (c *Channel) OnStateChange(fn func(State)) func() {
	return c.states.Add(fn)
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Identity returns the identity the channel is bound to, "" when closed.
func (c *Channel) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

type stopper struct {
	cancel  context.CancelFunc
	conn    *websocket.Conn
	done    chan struct{}
	changed bool
}

// stop tears down the previous read loop and waits until it has exited.
func (s stopper) stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		s.conn.Close()
	}
	if s.done != nil {
		<-s.done
	}
}

func (c *Channel) detachLocked() stopper {
	s := stopper{cancel: c.cancel, conn: c.conn, done: c.done, changed: c.state != Disconnected}
	c.gen++
	c.identity = ""
	c.cancel, c.conn, c.done = nil, nil, nil
	c.state = Disconnected
	return s
}

// Connect binds the channel to identityID. Connecting for the identity already bound
// is a no-op; a different identity closes the old connection before dialing.
func (c *Channel) Connect(identityID string) error {
	if identityID == "" {
		return ErrEmptyIdentity
	}

	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.identity == identityID {
		c.mu.Unlock()
		return nil
	}
	old := c.detachLocked()
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.identity, c.cancel, c.done = identityID, cancel, done
	c.mu.Unlock()

	old.stop()
	if old.changed {
		c.publishState(gen, Disconnected)
	}
	go c.run(ctx, gen, identityID, done)
	return nil
}

// Close drops the connection and stops redialing. No event is delivered after Close
// returns.
func (c *Channel) Close() {
	c.mu.Lock()
	old := c.detachLocked()
	c.mu.Unlock()

	old.stop()
	if old.changed {
		c.states.Publish(Disconnected)
	}
}

// Shutdown closes the channel for good; later Connect calls return ErrClosed.
func (c *Channel) Shutdown() {
	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()
	c.Close()
}

func (c *Channel) publishState(gen uint64, s State) {
	c.mu.Lock()
	live := gen == c.gen
	c.mu.Unlock()
	if live {
		c.states.Publish(s)
	}
}

// setState moves the channel to s if gen is still current.
func (c *Channel) setState(gen uint64, s State, conn *websocket.Conn) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	changed := c.state != s
	c.state = s
	c.conn = conn
	c.mu.Unlock()

	if changed {
		c.states.Publish(s)
	}
	return true
}

func (c *Channel) run(ctx context.Context, gen uint64, identityID string, done chan struct{}) {
	defer close(done)

	limiter := rate.NewLimiter(rate.Every(c.delay), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if !c.setState(gen, Connecting, nil) {
			return
		}

		conn, err := c.dialer.Dial(ctx, identityID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Log.Warn("realtime dial failed", zap.String("user_id", identityID), zap.Error(err))
			continue
		}
		if !c.setState(gen, Connected, conn) {
			conn.Close()
			return
		}
		logger.Log.Info("realtime connected", zap.String("user_id", identityID))

		err = c.readPump(gen, identityID, conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.setState(gen, Disconnected, nil)
		logger.Log.Warn("realtime connection lost, redialing",
			zap.String("user_id", identityID),
			zap.Duration("delay", c.delay),
			zap.Error(err),
		)
	}
}

func (c *Channel) readPump(gen uint64, identityID string, conn *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go keepalive(conn, stop)

	conn.SetReadLimit(config.MaxFrameSize)
	conn.SetReadDeadline(time.Now().Add(config.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(config.PongWait))
	})
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(config.PongWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(config.WriteWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debug("realtime read error", zap.Error(err))
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(config.PongWait))

		var ev models.Event
		if err := json.Unmarshal(frame, &ev); err != nil || ev.Kind == "" {
			logger.Log.Warn("dropping malformed realtime frame", zap.Error(err), zap.Int("size", len(frame)))
			continue
		}
		ev.IdentityID = identityID
		c.dispatch(gen, ev)
	}
}

func keepalive(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(config.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(config.WriteWait)); err != nil {
				return
			}
		}
	}
}

func (c *Channel) dispatch(gen uint64, ev models.Event) {
	c.mu.Lock()
	live := gen == c.gen
	c.mu.Unlock()
	if !live {
		return
	}

	c.hmu.Lock()
	subs := c.handlers[ev.Kind]
	c.hmu.Unlock()
	if subs == nil || subs.Len() == 0 {
		logger.Log.Debug("no handler for realtime event", zap.String("event", ev.Kind))
		return
	}
	subs.Publish(ev)
}
