package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// MessageRecord is a received chat message kept in the local archive.
// The embedded gorm.Model provides the row ID and timestamps.
type MessageRecord struct {
	gorm.Model

	// MessageID is the server-assigned message id; duplicates from redelivery are ignored.
	MessageID      string `gorm:"type:text;not null;uniqueIndex"`
	ConversationID string `gorm:"type:text;not null;index"`
	SenderID       string `gorm:"type:text;not null"`
	Body           string `gorm:"type:text;not null"`
	// OwnerID is the identity the message was delivered to.
	OwnerID string `gorm:"type:text;not null;index"`
}

// OrderRecord is an order seen on the realtime channel.
type OrderRecord struct {
	// RecordID is generated locally in BeforeCreate.
	RecordID   string         `gorm:"primaryKey" json:"id"`
	OrderID    string         `gorm:"type:text;not null;index"`
	OwnerID    string         `gorm:"type:text;not null;index"`
	Status     string         `gorm:"type:text;not null"`
	GrandTotal float64        `gorm:"not null"`
	ItemNames  pq.StringArray `gorm:"type:text[]"`
	// Event is the realtime event that produced the record.
	Event     string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

// BeforeCreate generates a RecordID if none is set.
func (r *OrderRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.RecordID == "" {
		r.RecordID = uuid.New().String()
	}
	return
}

// NewOrderRecord flattens an order for archiving.
func NewOrderRecord(ownerID, event string, o Order) *OrderRecord {
	names := make(pq.StringArray, 0, len(o.Items))
	for _, it := range o.Items {
		names = append(names, it.Name)
	}
	return &OrderRecord{
		OrderID:    o.ID,
		OwnerID:    ownerID,
		Status:     string(o.Status),
		GrandTotal: o.GrandTotal,
		ItemNames:  names,
		Event:      event,
	}
}

// NewMessageRecord converts a message for archiving.
func NewMessageRecord(ownerID string, m Message) *MessageRecord {
	return &MessageRecord{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		OwnerID:        ownerID,
	}
}
