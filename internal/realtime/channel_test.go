package realtime_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"campusmart/client/internal/models"
	"campusmart/client/internal/realtime"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// socketServer accepts websocket connections and hands them to onConn. The handler
// keeps reading until the client goes away.
type socketServer struct {
	*httptest.Server

	mu    sync.Mutex
	users []string
	conns []*websocket.Conn
}

func newSocketServer(t *testing.T, onConn func(conn *websocket.Conn, userID string)) *socketServer {
	t.Helper()
	s := &socketServer{}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		userID := r.URL.Query().Get("userId")
		s.mu.Lock()
		s.users = append(s.users, userID)
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		if onConn != nil {
			onConn(conn, userID)
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *socketServer) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.users...)
}

func (s *socketServer) Conn(i int) *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[i]
}

func newChannel(t *testing.T, srv *socketServer) *realtime.Channel {
	t.Helper()
	ch := realtime.NewChannel(realtime.NewWSDialer(srv.URL), 10*time.Millisecond)
	t.Cleanup(ch.Shutdown)
	return ch
}

func collect(ch *realtime.Channel, kind string) <-chan models.Event {
	out := make(chan models.Event, 16)
	ch.Subscribe(kind, func(ev models.Event) { out <- ev })
	return out
}

func TestChannel_DeliversEventsForIdentity(t *testing.T) {
	srv := newSocketServer(t, func(conn *websocket.Conn, userID string) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"newMessage","data":{"_id":"m1","conversationId":"c1"}}`))
	})
	ch := newChannel(t, srv)
	events := collect(ch, models.EventNewMessage)

	require.NoError(t, ch.Connect("user-1"))

	select {
	case ev := <-events:
		assert.Equal(t, models.EventNewMessage, ev.Kind)
		assert.Equal(t, "user-1", ev.IdentityID)
		var msg models.Message
		require.NoError(t, ev.Decode(&msg))
		assert.Equal(t, "m1", msg.ID)
		assert.Equal(t, "c1", msg.ConversationID)
	case <-time.After(waitFor):
		t.Fatal("event not delivered")
	}
	assert.Equal(t, []string{"user-1"}, srv.Users())
	assert.Equal(t, realtime.Connected, ch.State())
	assert.Equal(t, "user-1", ch.Identity())
}

func TestChannel_DropsMalformedFrames(t *testing.T) {
	srv := newSocketServer(t, func(conn *websocket.Conn, _ string) {
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"data":{}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"newOrder","data":{"_id":"o1"}}`))
	})
	ch := newChannel(t, srv)
	orders := collect(ch, models.EventNewOrder)

	require.NoError(t, ch.Connect("shop-1"))

	select {
	case ev := <-orders:
		assert.JSONEq(t, `{"_id":"o1"}`, string(ev.Data))
	case <-time.After(waitFor):
		t.Fatal("valid frame after malformed ones was not delivered")
	}
	assert.Empty(t, orders)
}

func TestChannel_ConnectSameIdentityIsNoop(t *testing.T) {
	srv := newSocketServer(t, nil)
	ch := newChannel(t, srv)

	require.NoError(t, ch.Connect("user-1"))
	require.Eventually(t, func() bool { return ch.State() == realtime.Connected }, waitFor, tick)
	require.NoError(t, ch.Connect("user-1"))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"user-1"}, srv.Users())
}

// recordingDialer notes, at each dial, whether the previous connection was already closed.
type recordingDialer struct {
	inner *realtime.WSDialer

	mu         sync.Mutex
	conns      []*websocket.Conn
	prevClosed []bool
}

func (d *recordingDialer) Dial(ctx context.Context, identityID string) (*websocket.Conn, error) {
	d.mu.Lock()
	if n := len(d.conns); n > 0 {
		err := d.conns[n-1].WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
		d.prevClosed = append(d.prevClosed, err != nil)
	}
	d.mu.Unlock()

	conn, err := d.inner.Dial(ctx, identityID)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func TestChannel_IdentitySwitchClosesOldConnectionFirst(t *testing.T) {
	srv := newSocketServer(t, nil)
	dialer := &recordingDialer{inner: realtime.NewWSDialer(srv.URL)}
	ch := realtime.NewChannel(dialer, 10*time.Millisecond)
	t.Cleanup(ch.Shutdown)

	require.NoError(t, ch.Connect("user-1"))
	require.Eventually(t, func() bool { return ch.State() == realtime.Connected }, waitFor, tick)

	require.NoError(t, ch.Connect("user-2"))
	require.Eventually(t, func() bool { return len(srv.Users()) == 2 && ch.State() == realtime.Connected }, waitFor, tick)

	assert.Equal(t, []string{"user-1", "user-2"}, srv.Users())
	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	assert.Equal(t, []bool{true}, dialer.prevClosed)
}

func TestChannel_CloseStopsDelivery(t *testing.T) {
	srv := newSocketServer(t, nil)
	ch := newChannel(t, srv)
	events := collect(ch, models.EventNewMessage)

	require.NoError(t, ch.Connect("user-1"))
	require.Eventually(t, func() bool { return len(srv.Users()) == 1 && ch.State() == realtime.Connected }, waitFor, tick)

	ch.Close()
	assert.Equal(t, realtime.Disconnected, ch.State())
	assert.Empty(t, ch.Identity())

	srv.Conn(0).WriteMessage(websocket.TextMessage, []byte(`{"event":"newMessage","data":{"_id":"late"}}`))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, events)
	assert.Len(t, srv.Users(), 1, "closed channel must not redial")
}

func TestChannel_RedialsAfterDrop(t *testing.T) {
	var first atomic.Bool
	first.Store(true)
	srv := newSocketServer(t, func(conn *websocket.Conn, _ string) {
		if first.CompareAndSwap(true, false) {
			conn.Close()
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"orderStatusUpdated","data":{"_id":"o1","status":"Ready"}}`))
	})
	ch := newChannel(t, srv)
	updates := collect(ch, models.EventOrderStatusUpdated)

	require.NoError(t, ch.Connect("user-1"))

	select {
	case <-updates:
	case <-time.After(waitFor):
		t.Fatal("no event after redial")
	}
	assert.Equal(t, []string{"user-1", "user-1"}, srv.Users())
}

type failingDialer struct {
	attempts atomic.Int32
}

func (d *failingDialer) Dial(context.Context, string) (*websocket.Conn, error) {
	d.attempts.Add(1)
	return nil, errors.New("connection refused")
}

func TestChannel_RetriesUntilClosed(t *testing.T) {
	dialer := &failingDialer{}
	ch := realtime.NewChannel(dialer, 5*time.Millisecond)

	require.NoError(t, ch.Connect("user-1"))
	require.Eventually(t, func() bool { return dialer.attempts.Load() >= 3 }, waitFor, tick)
	assert.Equal(t, realtime.Connecting, ch.State())

	ch.Close()
	settled := dialer.attempts.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, dialer.attempts.Load())
}

func TestChannel_ShutdownRejectsConnect(t *testing.T) {
	ch := realtime.NewChannel(&failingDialer{}, time.Second)
	ch.Shutdown()

	assert.ErrorIs(t, ch.Connect("user-1"), realtime.ErrClosed)
	assert.ErrorIs(t, ch.Connect(""), realtime.ErrEmptyIdentity)
}

func TestChannel_StateTransitions(t *testing.T) {
	srv := newSocketServer(t, nil)
	ch := newChannel(t, srv)

	var mu sync.Mutex
	var seen []realtime.State
	ch.OnStateChange(func(s realtime.State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	require.NoError(t, ch.Connect("user-1"))
	require.Eventually(t, func() bool { return ch.State() == realtime.Connected }, waitFor, tick)
	ch.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []realtime.State{realtime.Connecting, realtime.Connected, realtime.Disconnected}, seen)
	assert.Equal(t, "connected", realtime.Connected.String())
}
