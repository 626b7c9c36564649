package model

import (
	"fmt"
	"time"
)

// Message is a direct message between two users, optionally tied to a
// business listing.
type Message struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	ConversationID string `json:"conversation_id" gorm:"type:varchar(64);not null;index"`
	SenderID       uint   `json:"sender_id" gorm:"not null;index"`
	RecipientID    uint   `json:"recipient_id" gorm:"not null;index"`
	BusinessID     *uint  `json:"business_id,omitempty" gorm:"index"`

	Content string     `json:"content" gorm:"type:text;not null"`
	SentAt  time.Time  `json:"sent_at" gorm:"not null"`
	ReadAt  *time.Time `json:"read_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

// ConversationID derives the conversation key for two participants as the
// sorted concatenation of their ids. This is a deliberate denormalization:
// grouping works without a conversations table, and the key is the same no
// matter which side sends first.
func ConversationID(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d_%d", a, b)
}
