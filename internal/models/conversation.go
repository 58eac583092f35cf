package models

import "time"

// UserRef is the other side of a conversation as the backend embeds it.
type UserRef struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
}

// ProductRef is the listing a conversation is about.
type ProductRef struct {
	ID    string  `json:"_id"`
	Title string  `json:"title"`
	Price float64 `json:"price,omitempty"`
}

// Message is immutable once created and belongs to exactly one conversation.
type Message struct {
	ID             string    `json:"_id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId,omitempty"`
	Body           string    `json:"message"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Valid reports whether the message carries the fields needed to route it.
func (m Message) Valid() bool {
	return m.ID != "" && m.ConversationID != ""
}

// Conversation is a thread between two participants scoped to one product.
type Conversation struct {
	ID               string     `json:"_id"`
	OtherParticipant UserRef    `json:"otherParticipant"`
	Product          ProductRef `json:"product"`
	LastMessage      *Message   `json:"lastMessage,omitempty"`
	UnreadCount      int        `json:"unreadCount"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}
