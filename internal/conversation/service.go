package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campusmart/client/internal/logger"
	"campusmart/client/internal/models"

	"go.uber.org/zap"
)

var (
	ErrNoSelection         = errors.New("no conversation selected")
	ErrUnknownConversation = errors.New("unknown conversation")
	ErrEmptyMessage        = errors.New("message is empty")
)

// ChatAPI is the part of the REST surface the chat screens use.
type ChatAPI interface {
	Conversations(ctx context.Context) ([]models.Conversation, error)
	MarkRead(ctx context.Context, otherUserID string) error
	Messages(ctx context.Context, otherUserID, productID string) ([]models.Message, error)
	SendMessage(ctx context.Context, otherUserID, productID, body string) (models.Message, error)
}

// UnreadRefresher refreshes the global unread badge from the server.
type UnreadRefresher interface {
	RefreshUnreadCount(ctx context.Context)
}

// Service drives the Store from user actions and REST responses.
type Service struct {
	Store   *Store
	API     ChatAPI
	Session UnreadRefresher
}

func NewService(store *Store, chatAPI ChatAPI, sess UnreadRefresher) *Service {
	return &Service{Store: store, API: chatAPI, Session: sess}
}

// LoadConversations fetches the sidebar list.
func (s *Service) LoadConversations(ctx context.Context) error {
	list, err := s.API.Conversations(ctx)
	if err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}
	s.Store.SetConversations(list)
	return nil
}

// Open selects a conversation, marks it read if it had unread messages, and loads its
// thread. A thread arriving after the user moved to another conversation is dropped.
func (s *Service) Open(ctx context.Context, id string) error {
	conv, ok := s.Store.Conversation(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}

	hadUnread, gen := s.Store.SelectConversation(id)
	if hadUnread > 0 {
		if err := s.API.MarkRead(ctx, conv.OtherParticipant.ID); err != nil {
			logger.Log.Warn("mark read failed", zap.String("conversation_id", id), zap.Error(err))
		}
		if s.Session != nil {
			s.Session.RefreshUnreadCount(ctx)
		}
	}

	msgs, err := s.API.Messages(ctx, conv.OtherParticipant.ID, conv.Product.ID)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	for i := range msgs {
		if msgs[i].ConversationID == "" {
			msgs[i].ConversationID = id
		}
	}

	if !s.Store.ReplaceMessagesIfCurrent(id, gen, msgs) {
		logger.Log.Debug("discarding stale thread", zap.String("conversation_id", id))
	}
	return nil
}

// Close deselects the open conversation.
func (s *Service) Close() {
	s.Store.SelectConversation("")
}

// Send posts body to the open conversation and shows the stored message.
func (s *Service) Send(ctx context.Context, body string) (models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return models.Message{}, ErrEmptyMessage
	}
	id, _ := s.Store.Selection()
	conv, ok := s.Store.Conversation(id)
	if !ok {
		return models.Message{}, ErrNoSelection
	}

	msg, err := s.API.SendMessage(ctx, conv.OtherParticipant.ID, conv.Product.ID, body)
	if err != nil {
		return models.Message{}, fmt.Errorf("send message: %w", err)
	}
	if msg.ConversationID == "" {
		msg.ConversationID = conv.ID
	}

	s.Store.AppendMessage(conv.ID, msg)
	s.Store.Touch(conv.ID, msg)
	return msg, nil
}
