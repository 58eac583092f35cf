package chathub_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"campusmart/client/internal/chathub"
	"campusmart/client/internal/conversation"
	"campusmart/client/internal/models"
	"campusmart/client/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	sync     *chathub.Synchronizer
	session  *MockSession
	chatAPI  *MockChatAPI
	notifier *recordingNotifier
	store    *conversation.Store
	orders   *chathub.OrderBook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sess := new(MockSession)
	sess.On("Snapshot").Return(session.State{Identity: &models.Identity{ID: "me", Role: models.RoleShop}}).Maybe()
	sess.On("RefreshUnreadCount").Maybe()

	chatAPI := new(MockChatAPI)
	store := conversation.NewStore()
	store.SetConversations([]models.Conversation{
		{ID: "A", UpdatedAt: now.Add(-1 * time.Minute)},
		{ID: "B", UpdatedAt: now.Add(-2 * time.Minute)},
		{ID: "X", UpdatedAt: now.Add(-3 * time.Minute)},
		{ID: "C", UpdatedAt: now.Add(-4 * time.Minute)},
	})
	convs := conversation.NewService(store, chatAPI, sess)
	orders := chathub.NewOrderBook(new(MockOrderAPI))
	notifier := &recordingNotifier{}

	return &fixture{
		sync:     chathub.NewSynchronizer(sess, convs, orders, notifier),
		session:  sess,
		chatAPI:  chatAPI,
		notifier: notifier,
		store:    store,
		orders:   orders,
	}
}

func event(t *testing.T, kind string, data any) models.Event {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return models.Event{Kind: kind, Data: raw}
}

func order(id string, status models.OrderStatus, shop string, total float64) models.Order {
	o := models.Order{ID: id, Status: status, GrandTotal: total}
	if shop != "" {
		o.Seller = &models.SellerRef{ID: "seller-" + id, ShopDetails: &models.Shop{ShopName: shop}}
	}
	return o
}

func conversationIDs(s conversation.Snapshot) []string {
	out := make([]string, 0, len(s.Conversations))
	for _, c := range s.Conversations {
		out = append(out, c.ID)
	}
	return out
}

func TestHandle_NewMessageForUnselectedConversation(t *testing.T) {
	f := newFixture(t)
	f.store.SelectConversation("A")
	msg := models.Message{ID: "m1", ConversationID: "X", Body: "hey", CreatedAt: now}

	f.sync.Handle(context.Background(), event(t, models.EventNewMessage, msg))

	snap := f.store.Snapshot()
	assert.Equal(t, []string{"X", "A", "B", "C"}, conversationIDs(snap))
	assert.Empty(t, snap.Messages, "open thread belongs to A")
	assert.Equal(t, "m1", snap.Conversations[0].LastMessage.ID)
	assert.Equal(t, 1, snap.Conversations[0].UnreadCount)
	assert.Equal(t, 1, f.notifier.Sounds())
	f.session.AssertCalled(t, "RefreshUnreadCount")
}

func TestHandle_NewMessageForSelectedConversation(t *testing.T) {
	f := newFixture(t)
	f.store.SelectConversation("X")
	msg := models.Message{ID: "m1", ConversationID: "X", Body: "hey", CreatedAt: now}
	ev := event(t, models.EventNewMessage, msg)

	f.sync.Handle(context.Background(), ev)
	f.sync.Handle(context.Background(), ev)

	snap := f.store.Snapshot()
	require.Len(t, snap.Messages, 1, "duplicate delivery appends once")
	assert.Equal(t, "hey", snap.Messages[0].Body)
	assert.Equal(t, "X", snap.Conversations[0].ID)
	assert.Zero(t, snap.Conversations[0].UnreadCount)
	f.session.AssertNumberOfCalls(t, "RefreshUnreadCount", 2)
}

func TestHandle_SoundFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.notifier.soundErr = errors.New("no audio device")

	f.sync.Handle(context.Background(), event(t, models.EventNewMessage, models.Message{ID: "m1", ConversationID: "B", CreatedAt: now}))

	assert.Equal(t, "B", f.store.Snapshot().Conversations[0].ID)
	f.session.AssertCalled(t, "RefreshUnreadCount")
}

func TestHandle_MalformedMessageIsDropped(t *testing.T) {
	f := newFixture(t)
	before := f.store.Snapshot()

	f.sync.Handle(context.Background(), event(t, models.EventNewMessage, map[string]string{"_id": "m1"}))
	f.sync.Handle(context.Background(), models.Event{Kind: models.EventNewMessage, Data: json.RawMessage(`"oops"`)})

	assert.Equal(t, before, f.store.Snapshot())
	assert.Zero(t, f.notifier.Sounds())
	f.session.AssertNotCalled(t, "RefreshUnreadCount")
}

func TestHandle_MessageForUnknownConversationReloadsList(t *testing.T) {
	f := newFixture(t)
	f.chatAPI.On("Conversations").Return([]models.Conversation{
		{ID: "N", UpdatedAt: now},
		{ID: "A", UpdatedAt: now.Add(-time.Minute)},
	}, nil).Once()

	f.sync.Handle(context.Background(), event(t, models.EventNewMessage, models.Message{ID: "m9", ConversationID: "N", CreatedAt: now}))

	assert.Equal(t, []string{"N", "A"}, conversationIDs(f.store.Snapshot()))
	f.chatAPI.AssertExpectations(t)
}

func TestHandle_NewOrder(t *testing.T) {
	f := newFixture(t)
	archive := new(MockArchive)
	f.sync.Archive = archive
	f.orders.Set([]models.Order{order("o1", models.OrderPending, "", 100)})
	incoming := order("o2", models.OrderPending, "", 205)
	archive.On("SaveOrder", "me", models.EventNewOrder, mock.AnythingOfType("models.Order")).Return(nil).Once()

	f.sync.Handle(context.Background(), event(t, models.EventNewOrder, incoming))

	list := f.orders.List()
	require.Len(t, list, 2)
	assert.Equal(t, "o2", list[0].ID)
	assert.Equal(t, []string{"New Order Received! ₹205"}, f.notifier.Toasts())
	assert.Equal(t, 1, f.notifier.Sounds())
	archive.AssertExpectations(t)
}

func TestHandle_OrderReadyNotifies(t *testing.T) {
	f := newFixture(t)
	f.orders.Set([]models.Order{order("o1", models.OrderPreparing, "Campus Cafe", 80)})

	f.sync.Handle(context.Background(), event(t, models.EventOrderStatusUpdated, models.Order{ID: "o1", Status: models.OrderReady}))

	got, ok := f.orders.Get("o1")
	require.True(t, ok)
	assert.Equal(t, models.OrderReady, got.Status)
	assert.Equal(t, []string{"Order from Campus Cafe is READY!"}, f.notifier.Toasts())
	assert.Equal(t, 1, f.notifier.Sounds())
}

func TestHandle_OrderStatusWithoutReadyIsSilent(t *testing.T) {
	f := newFixture(t)
	f.orders.Set([]models.Order{order("o1", models.OrderAccepted, "Campus Cafe", 80)})

	f.sync.Handle(context.Background(), event(t, models.EventOrderStatusUpdated, order("o1", models.OrderPreparing, "Campus Cafe", 80)))

	got, _ := f.orders.Get("o1")
	assert.Equal(t, models.OrderPreparing, got.Status)
	assert.Empty(t, f.notifier.Toasts())
	assert.Zero(t, f.notifier.Sounds())
}

func TestHandle_ReadyForUnknownOrderStillNotifies(t *testing.T) {
	f := newFixture(t)

	f.sync.Handle(context.Background(), event(t, models.EventOrderStatusUpdated, models.Order{ID: "o7", Status: models.OrderReady}))

	assert.Empty(t, f.orders.List())
	assert.Equal(t, []string{"Order from Shop is READY!"}, f.notifier.Toasts())
}

type keyTexts struct{}

func (keyTexts) Text(key string, args ...any) string { return key }

func TestHandle_UsesTexts(t *testing.T) {
	f := newFixture(t)
	f.sync.Texts = keyTexts{}

	f.sync.Handle(context.Background(), event(t, models.EventNewOrder, order("o1", models.OrderPending, "", 10)))

	assert.Equal(t, []string{chathub.TextNewOrder}, f.notifier.Toasts())
}

func TestRun_ProcessesAttachedEventsInOrder(t *testing.T) {
	f := newFixture(t)
	src := &fakeSource{}
	detach := f.sync.Attach(src)
	defer detach()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.sync.Run(ctx)
		close(done)
	}()

	src.emit(event(t, models.EventNewMessage, models.Message{ID: "m1", ConversationID: "C", CreatedAt: now}))
	src.emit(event(t, models.EventNewMessage, models.Message{ID: "m2", ConversationID: "B", CreatedAt: now.Add(time.Second)}))
	src.emit(models.Event{Kind: models.EventConversationsUpdated})

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"B", "C", "A", "X"}, conversationIDs(f.store.Snapshot()))
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	// After Run returns, enqueue must not block the caller.
	for i := 0; i < 100; i++ {
		src.emit(models.Event{Kind: models.EventConversationsUpdated})
	}
}

// switchSession is a session whose identity the test changes mid-run.
type switchSession struct {
	mu sync.Mutex
	id string
}

func (s *switchSession) set(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

func (s *switchSession) Snapshot() session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == "" {
		return session.State{}
	}
	return session.State{Identity: &models.Identity{ID: s.id, Role: models.RoleShop}}
}

func (s *switchSession) RefreshUnreadCount(context.Context) {}

func TestRun_DropsEventsQueuedForPreviousIdentity(t *testing.T) {
	sess := &switchSession{id: "me"}
	orders := chathub.NewOrderBook(new(MockOrderAPI))
	notifier := &recordingNotifier{}
	archive := new(MockArchive)
	archive.On("SaveOrder", "other", models.EventNewOrder, mock.Anything).Return(nil).Once()
	s := chathub.NewSynchronizer(sess, conversation.NewService(conversation.NewStore(), new(MockChatAPI), sess), orders, notifier)
	s.Archive = archive
	src := &fakeSource{}
	defer s.Attach(src)()

	src.emit(event(t, models.EventNewOrder, order("o-me", models.OrderPending, "", 55)))
	sess.set("")
	orders.Reset()
	src.emit(event(t, models.EventNewOrder, order("o-guest", models.OrderPending, "", 1)))
	sess.set("other")
	src.emit(event(t, models.EventNewOrder, order("o-other", models.OrderPending, "", 70)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, func() bool { return len(orders.List()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	assert.Equal(t, "o-other", orders.List()[0].ID)
	assert.Equal(t, 1, notifier.Sounds())
	assert.Equal(t, []string{"New Order Received! ₹70"}, notifier.Toasts())
	archive.AssertExpectations(t)
}

func TestHandle_IgnoresEventStampedForAnotherIdentity(t *testing.T) {
	f := newFixture(t)
	ev := event(t, models.EventNewOrder, order("o1", models.OrderPending, "", 10))
	ev.IdentityID = "someone-else"

	f.sync.Handle(context.Background(), ev)

	assert.Empty(t, f.orders.List())
	assert.Zero(t, f.notifier.Sounds())
}
