package realtime_test

import (
	"sync"
	"testing"

	"campusmart/client/internal/models"
	"campusmart/client/internal/realtime"
	"campusmart/client/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	mu       sync.Mutex
	current  *models.Identity
	listener session.IdentityListener
}

func (f *fakeIdentity) Snapshot() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return session.State{Identity: f.current}
}

func (f *fakeIdentity) OnIdentityChange(fn session.IdentityListener) func() {
	f.mu.Lock()
	f.listener = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.listener = nil
		f.mu.Unlock()
	}
}

func (f *fakeIdentity) set(next *models.Identity) {
	f.mu.Lock()
	prev := f.current
	f.current = next
	fn := f.listener
	f.mu.Unlock()
	if fn != nil {
		fn(prev, next)
	}
}

func TestBind_FollowsIdentity(t *testing.T) {
	srv := newSocketServer(t, nil)
	ch := newChannel(t, srv)
	src := &fakeIdentity{current: &models.Identity{ID: "user-1", Role: models.RoleUser}}

	unbind := realtime.Bind(src, ch)

	require.Eventually(t, func() bool { return ch.State() == realtime.Connected }, waitFor, tick)
	assert.Equal(t, "user-1", ch.Identity())

	src.set(&models.Identity{ID: "shop-9", Role: models.RoleShop})
	require.Eventually(t, func() bool { return len(srv.Users()) == 2 && ch.State() == realtime.Connected }, waitFor, tick)
	assert.Equal(t, []string{"user-1", "shop-9"}, srv.Users())

	src.set(nil)
	assert.Equal(t, realtime.Disconnected, ch.State())

	unbind()
	src.set(&models.Identity{ID: "user-1"})
	assert.Equal(t, realtime.Disconnected, ch.State())
}

func TestBind_GuestStaysDisconnected(t *testing.T) {
	ch := realtime.NewChannel(&failingDialer{}, waitFor)
	defer ch.Shutdown()

	realtime.Bind(&fakeIdentity{}, ch)

	assert.Equal(t, realtime.Disconnected, ch.State())
}

func TestBind_IdentityWithoutIDStaysDisconnected(t *testing.T) {
	dialer := &failingDialer{}
	ch := realtime.NewChannel(dialer, waitFor)
	defer ch.Shutdown()

	realtime.Bind(&fakeIdentity{current: &models.Identity{Role: models.RoleUser}}, ch)

	assert.Equal(t, realtime.Disconnected, ch.State())
	assert.Empty(t, ch.Identity())
	assert.Zero(t, dialer.attempts.Load())
}
