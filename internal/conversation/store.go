// Package conversation holds the conversation list, the selected conversation and
// the loaded message threads.
package conversation

import (
	"slices"
	"sort"
	"sync"
	"time"

	"campusmart/client/internal/models"
	"campusmart/client/internal/observe"
)

// Snapshot is an immutable view of the store, conversations in display order.
type Snapshot struct {
	Conversations []models.Conversation `json:"conversations"`
	SelectedID    string                `json:"selectedId,omitempty"`
	Messages      []models.Message      `json:"messages"`
}

// Selected returns the selected conversation, if any.
func (s Snapshot) Selected() (models.Conversation, bool) {
	for _, c := range s.Conversations {
		if c.ID == s.SelectedID {
			return c, true
		}
	}
	return models.Conversation{}, false
}

type thread struct {
	messages []models.Message
	seen     map[string]struct{}
}

func newThread() *thread {
	return &thread{seen: make(map[string]struct{})}
}

func (t *thread) add(m models.Message) bool {
	if _, dup := t.seen[m.ID]; dup {
		return false
	}
	t.seen[m.ID] = struct{}{}
	t.messages = append(t.messages, m)
	return true
}

// Store keeps conversations ordered by UpdatedAt descending. Every mutation is a
// read-modify-write under the store lock.
type Store struct {
	mu        sync.RWMutex
	order     []string
	byID      map[string]*models.Conversation
	threads   map[string]*thread
	selected  string
	selectGen uint64
	version   uint64

	subs observe.Subscribers[Snapshot]
}

func NewStore() *Store {
	return &Store{
		byID:    make(map[string]*models.Conversation),
		threads: make(map[string]*thread),
	}
}

// Subscribe registers fn for every change and returns the unsubscribe func.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	return s.subs.Add(fn)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Conversations: make([]models.Conversation, 0, len(s.order)),
		SelectedID:    s.selected,
	}
	for _, id := range s.order {
		snap.Conversations = append(snap.Conversations, *s.byID[id])
	}
	if t, ok := s.threads[s.selected]; ok {
		snap.Messages = slices.Clone(t.messages)
	}
	return snap
}

// commit releases the lock and notifies subscribers with the post-mutation state.
// Snapshots are versioned, so concurrent commits never reach subscribers out of order.
func (s *Store) commit() {
	s.version++
	v := s.version
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.subs.PublishAt(v, snap)
}

// SetConversations replaces the list, sorted by UpdatedAt descending.
func (s *Store) SetConversations(list []models.Conversation) {
	sorted := slices.Clone(list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})

	s.mu.Lock()
	s.order = s.order[:0]
	s.byID = make(map[string]*models.Conversation, len(sorted))
	for i := range sorted {
		c := sorted[i]
		if _, dup := s.byID[c.ID]; dup || c.ID == "" {
			continue
		}
		if c.ID == s.selected {
			c.UnreadCount = 0
		}
		s.byID[c.ID] = &c
		s.order = append(s.order, c.ID)
	}
	for id := range s.threads {
		if _, ok := s.byID[id]; !ok && id != s.selected {
			delete(s.threads, id)
		}
	}
	s.commit()
}

// SelectConversation makes id the open conversation ("" selects none) and zeroes its
// unread count locally. It returns the unread count the conversation had, so the
// caller can decide whether a mark-read call is needed, and the selection generation
// for ReplaceMessagesIfCurrent.
func (s *Store) SelectConversation(id string) (hadUnread int, gen uint64) {
	s.mu.Lock()
	s.selected = id
	s.selectGen++
	gen = s.selectGen
	if c, ok := s.byID[id]; ok {
		hadUnread = c.UnreadCount
		c.UnreadCount = 0
	}
	s.commit()
	return hadUnread, gen
}

// Selection returns the selected id and a generation that changes on every selection.
func (s *Store) Selection() (id string, gen uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected, s.selectGen
}

// IsSelected reports whether id is the open conversation.
func (s *Store) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return id != "" && s.selected == id
}

// Conversation returns the conversation with id.
func (s *Store) Conversation(id string) (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return models.Conversation{}, false
	}
	return *c, true
}

// AppendMessage adds m to the conversation's thread. A message id already present in
// that thread is ignored; the return value reports whether m was added.
func (s *Store) AppendMessage(conversationID string, m models.Message) bool {
	s.mu.Lock()
	t, ok := s.threads[conversationID]
	if !ok {
		t = newThread()
		s.threads[conversationID] = t
	}
	if !t.add(m) {
		s.mu.Unlock()
		return false
	}
	s.commit()
	return true
}

// ReplaceMessages sets the full thread of a conversation.
func (s *Store) ReplaceMessages(conversationID string, list []models.Message) {
	s.mu.Lock()
	s.replaceLocked(conversationID, list)
	s.commit()
}

// ReplaceMessagesIfCurrent applies a fetched thread only if the selection that
// requested it is still current.
func (s *Store) ReplaceMessagesIfCurrent(conversationID string, gen uint64, list []models.Message) bool {
	s.mu.Lock()
	if s.selected != conversationID || s.selectGen != gen {
		s.mu.Unlock()
		return false
	}
	s.replaceLocked(conversationID, list)
	s.commit()
	return true
}

func (s *Store) replaceLocked(conversationID string, list []models.Message) {
	t := newThread()
	for _, m := range list {
		t.add(m)
	}
	s.threads[conversationID] = t
}

// Touch records m as the conversation's last message, sets UpdatedAt to its creation
// time and moves the conversation to the head of the list, keeping the relative order
// of the others. An unselected conversation gets its unread count bumped unless m was
// already seen there. It returns false if the conversation is not in the list.
func (s *Store) Touch(conversationID string, m models.Message) bool {
	s.mu.Lock()
	c, ok := s.byID[conversationID]
	if !ok {
		s.mu.Unlock()
		return false
	}

	repeat := c.LastMessage != nil && c.LastMessage.ID == m.ID
	if t, ok := s.threads[conversationID]; ok {
		if _, seen := t.seen[m.ID]; seen {
			repeat = true
		}
	}
	last := m
	c.LastMessage = &last
	c.UpdatedAt = m.CreatedAt
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	if conversationID != s.selected && !repeat {
		c.UnreadCount++
	}

	if idx := slices.Index(s.order, conversationID); idx > 0 {
		s.order = slices.Delete(s.order, idx, idx+1)
		s.order = slices.Insert(s.order, 0, conversationID)
	}
	s.commit()
	return true
}

// Reset drops all state; used on logout.
func (s *Store) Reset() {
	s.mu.Lock()
	s.order = nil
	s.byID = make(map[string]*models.Conversation)
	s.threads = make(map[string]*thread)
	s.selected = ""
	s.selectGen++
	s.commit()
}
