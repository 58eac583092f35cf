// Package session holds the authenticated identity and the global unread counter.
package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"campusmart/client/internal/api"
	"campusmart/client/internal/config"
	"campusmart/client/internal/logger"
	"campusmart/client/internal/models"
	"campusmart/client/internal/observe"

	"go.uber.org/zap"
)

// CountFetcher queries the server-side unread-message count.
type CountFetcher interface {
	UnreadCount(ctx context.Context, token string) (int, error)
}

// State is an immutable view of the session.
type State struct {
	Identity    *models.Identity
	Role        models.Role
	CollegeID   string
	UnreadCount int
	Loading     bool
}

// Authenticated reports whether a user is logged in.
func (s State) Authenticated() bool {
	return s.Identity != nil
}

// IdentityListener observes identity transitions. next is nil on logout.
type IdentityListener func(prev, next *models.Identity)

// Store is the process-wide session. Mutations are serialized by opMu and observers
// run after the state lock is released, in mutation order. Observers must not call
// Login, Logout or Restore synchronously.
type Store struct {
	opMu sync.Mutex

	mu       sync.RWMutex
	token    string
	identity *models.Identity
	unread   int
	loading  bool

	// refreshSeq numbers unread-count requests; appliedSeq is the newest one applied.
	refreshSeq uint64
	appliedSeq uint64
	version    uint64

	ready     chan struct{}
	readyOnce sync.Once

	creds  CredentialStore
	counts CountFetcher
	now    func() time.Time

	subs         observe.Subscribers[State]
	identitySubs observe.Subscribers[identityChange]

	inflight sync.WaitGroup
}

// NewStore creates a session in the loading state; call Restore to finish start-up.
func NewStore(creds CredentialStore, counts CountFetcher) *Store {
	return &Store{
		loading: true,
		ready:   make(chan struct{}),
		creds:   creds,
		counts:  counts,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for expiry checks.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// commitLocked stamps the state after a mutation with the next version.
func (s *Store) commitLocked() (State, uint64) {
	s.version++
	return s.snapshotLocked(), s.version
}

func (s *Store) snapshotLocked() State {
	st := State{UnreadCount: s.unread, Loading: s.loading, Role: models.RoleGuest}
	if s.identity != nil {
		id := *s.identity
		st.Identity = &id
		st.Role = id.Role
		st.CollegeID = id.CollegeID
	}
	return st
}

// Token returns the bearer credential of the logged-in user, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Loading is true until Restore has finished.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// WaitReady blocks until Restore has finished or ctx is done.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HasRole reports whether the logged-in user has one of roles.
func (s *Store) HasRole(roles ...models.Role) bool {
	st := s.Snapshot()
	return st.Identity != nil && slices.Contains(roles, st.Role)
}

// Subscribe registers fn for every state change and returns the unsubscribe func.
func (s *Store) Subscribe(fn func(State)) func() {
	return s.subs.Add(fn)
}

type identityChange struct {
	prev, next *models.Identity
}

// OnIdentityChange registers fn for identity transitions (login, logout, user switch).
func (s *Store) OnIdentityChange(fn IdentityListener) func() {
	return s.identitySubs.Add(func(c identityChange) { fn(c.prev, c.next) })
}

func (s *Store) publish(prev, next *models.Identity, st State, version uint64) {
	if !sameIdentity(prev, next) {
		s.identitySubs.Publish(identityChange{prev: prev, next: next})
	}
	s.subs.PublishAt(version, st)
}

func sameIdentity(a, b *models.Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

// Login decodes credential, persists it, and starts an unread-count refresh. An invalid
// or expired credential clears the stored one and leaves the session as guest.
func (s *Store) Login(ctx context.Context, credential string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	identity, err := Decode(credential, s.now())
	if err != nil {
		if delErr := s.creds.Delete(ctx); delErr != nil {
			logger.Log.Warn("failed to clear stored credential", zap.Error(delErr))
		}
		s.setGuest()
		return err
	}

	if err := s.creds.Save(ctx, credential); err != nil {
		logger.Log.Warn("failed to persist credential", zap.Error(err))
	}
	s.setIdentity(credential, identity)
	s.RefreshUnreadCount(ctx)
	return nil
}

// Logout resets the session to guest and forgets the stored credential. Identity
// listeners see next == nil, which closes the realtime channel.
func (s *Store) Logout(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.creds.Delete(ctx); err != nil {
		logger.Log.Warn("failed to clear stored credential", zap.Error(err))
	}
	s.setGuest()
}

// Restore loads a previously persisted credential. Expired or malformed credentials
// are discarded silently. Loading turns false when Restore returns.
func (s *Store) Restore(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	defer s.finishLoading()

	token, err := s.creds.Load(ctx)
	if err != nil {
		logger.Log.Warn("failed to load stored credential", zap.Error(err))
		return
	}
	if token == "" {
		return
	}

	identity, err := Decode(token, s.now())
	if err != nil {
		logger.Log.Debug("discarding stored credential", zap.Error(err))
		if delErr := s.creds.Delete(ctx); delErr != nil {
			logger.Log.Warn("failed to clear stored credential", zap.Error(delErr))
		}
		return
	}

	s.setIdentity(token, identity)
	s.RefreshUnreadCount(ctx)
}

func (s *Store) finishLoading() {
	s.mu.Lock()
	s.loading = false
	st, v := s.commitLocked()
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })
	s.publish(st.Identity, st.Identity, st, v)
}

func (s *Store) setIdentity(token string, identity *models.Identity) {
	s.mu.Lock()
	prev := s.identity
	s.token = token
	s.identity = identity
	if !sameIdentity(prev, identity) {
		s.unread = 0
	}
	st, v := s.commitLocked()
	s.mu.Unlock()

	logger.Log.Info("session started", zap.String("user_id", identity.ID), zap.String("role", string(identity.Role)))
	s.publish(prev, identity, st, v)
}

func (s *Store) setGuest() {
	s.mu.Lock()
	prev := s.identity
	s.token = ""
	s.identity = nil
	s.unread = 0
	st, v := s.commitLocked()
	s.mu.Unlock()

	if prev != nil {
		logger.Log.Info("session ended", zap.String("user_id", prev.ID))
	}
	s.publish(prev, nil, st, v)
}

// RefreshUnreadCount asynchronously replaces the unread counter with the server's value.
// Failures are logged and leave the previous value. A response for a token that is no
// longer current, or older than one already applied, is dropped.
func (s *Store) RefreshUnreadCount(ctx context.Context) {
	if s.counts == nil {
		return
	}
	s.mu.Lock()
	token := s.token
	s.refreshSeq++
	seq := s.refreshSeq
	s.mu.Unlock()
	if token == "" {
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.RequestTimeout)
		defer cancel()

		n, err := s.counts.UnreadCount(reqCtx, token)
		if err != nil {
			if api.IsUnauthorized(err) {
				logger.Log.Warn("unread count rejected credential", zap.Error(err))
			} else {
				logger.Log.Error("could not fetch unread count", zap.Error(err))
			}
			return
		}
		s.applyUnread(token, seq, n)
	}()
}

func (s *Store) applyUnread(token string, seq uint64, n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	if s.token != token || seq <= s.appliedSeq {
		s.mu.Unlock()
		logger.Log.Debug("dropping stale unread count", zap.Uint64("seq", seq))
		return
	}
	s.appliedSeq = seq
	s.unread = n
	st, v := s.commitLocked()
	s.mu.Unlock()

	s.publish(st.Identity, st.Identity, st, v)
}

// Wait blocks until in-flight unread-count refreshes have finished.
func (s *Store) Wait() {
	s.inflight.Wait()
}
