package chathub_test

import (
	"context"
	"sync"

	"campusmart/client/internal/chathub"
	"campusmart/client/internal/models"
	"campusmart/client/internal/realtime"
	"campusmart/client/internal/session"

	"github.com/stretchr/testify/mock"
)

type MockSession struct {
	mock.Mock
}

func (m *MockSession) Snapshot() session.State {
	args := m.Called()
	return args.Get(0).(session.State)
}

func (m *MockSession) RefreshUnreadCount(ctx context.Context) {
	m.Called()
}

type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) Conversations(ctx context.Context) ([]models.Conversation, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Conversation), args.Error(1)
}

func (m *MockChatAPI) MarkRead(ctx context.Context, otherUserID string) error {
	return m.Called(otherUserID).Error(0)
}

func (m *MockChatAPI) Messages(ctx context.Context, otherUserID, productID string) ([]models.Message, error) {
	args := m.Called(otherUserID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockChatAPI) SendMessage(ctx context.Context, otherUserID, productID, body string) (models.Message, error) {
	args := m.Called(otherUserID, productID, body)
	return args.Get(0).(models.Message), args.Error(1)
}

type MockOrderAPI struct {
	mock.Mock
}

func (m *MockOrderAPI) UserOrders(ctx context.Context) ([]models.Order, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderAPI) ShopOrders(ctx context.Context) ([]models.Order, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderAPI) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (models.Order, error) {
	args := m.Called(orderID, status)
	return args.Get(0).(models.Order), args.Error(1)
}

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) SaveMessage(ctx context.Context, ownerID string, msg models.Message) error {
	return m.Called(ownerID, msg).Error(0)
}

func (m *MockArchive) SaveOrder(ctx context.Context, ownerID, event string, o models.Order) error {
	return m.Called(ownerID, event, o).Error(0)
}

// recordingNotifier keeps every sound and toast; soundErr makes PlaySound fail.
type recordingNotifier struct {
	mu       sync.Mutex
	sounds   int
	toasts   []string
	levels   []chathub.Level
	soundErr error
}

func (n *recordingNotifier) PlaySound(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sounds++
	return n.soundErr
}

func (n *recordingNotifier) Toast(_ context.Context, level chathub.Level, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, text)
	n.levels = append(n.levels, level)
	return nil
}

func (n *recordingNotifier) Sounds() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sounds
}

func (n *recordingNotifier) Toasts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.toasts...)
}

// fakeSource stands in for the realtime channel.
type fakeSource struct {
	mu       sync.Mutex
	handlers map[string][]realtime.Handler
}

func (f *fakeSource) Subscribe(kind string, h realtime.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = make(map[string][]realtime.Handler)
	}
	f.handlers[kind] = append(f.handlers[kind], h)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, kind)
	}
}

func (f *fakeSource) emit(ev models.Event) {
	f.mu.Lock()
	hs := append([]realtime.Handler(nil), f.handlers[ev.Kind]...)
	f.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}
