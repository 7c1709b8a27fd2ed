package model

import (
	"sort"
	"strings"
	"time"
)

const (
	ConversationActive   = "active"
	ConversationReported = "reported"
	ConversationDeleted  = "deleted"
)

// Conversation is a durable two-party thread, optionally anchored to a
// product listing. A user pair has at most one conversation per product
// and at most one general conversation (empty product key).
type Conversation struct {
	ID         string  `gorm:"primaryKey;size:36" json:"id"`
	PairKey    string  `gorm:"column:pair_key;size:260;not null;uniqueIndex:uniq_pair_product" json:"-"`
	ProductKey string  `gorm:"column:product_key;size:36;not null;uniqueIndex:uniq_pair_product" json:"-"`
	ProductID  *string `gorm:"column:product_id;size:36;index" json:"productId,omitempty"`
	Status     string  `gorm:"size:16;not null;default:active" json:"status"`

	// Denormalized copy of the newest message for list views. Text
	// bodies are stored in the same encrypted form as the message row.
	LastMessageID        *string    `gorm:"column:last_message_id;size:36" json:"-"`
	LastMessageSenderID  *string    `gorm:"column:last_message_sender_id;size:128" json:"-"`
	LastMessageType      *string    `gorm:"column:last_message_type;size:16" json:"-"`
	LastMessageBody      *string    `gorm:"column:last_message_body;type:text" json:"-"`
	LastMessageEncrypted bool       `gorm:"column:last_message_encrypted;not null;default:false" json:"-"`
	LastMessageAt        *time.Time `gorm:"column:last_message_at" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index" json:"updatedAt"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Participant returns the participant record for uid, or nil.
func (c *Conversation) Participant(uid string) *ConversationParticipant {
	for i := range c.Participants {
		if c.Participants[i].UserID == uid {
			return &c.Participants[i]
		}
	}
	return nil
}

// ConversationParticipant snapshots one side of a thread at creation
// time and carries that side's unread counter and read cursor.
type ConversationParticipant struct {
	ConversationID string     `gorm:"primaryKey;size:36" json:"-"`
	UserID         string     `gorm:"primaryKey;size:128" json:"userId"`
	DisplayName    string     `gorm:"size:128" json:"displayName"`
	Role           string     `gorm:"size:32" json:"role"`
	UnreadCount    int        `gorm:"not null;default:0" json:"unreadCount"`
	LastReadAt     *time.Time `gorm:"column:last_read_at" json:"lastReadAt,omitempty"`

	// Derived from the connection registry, never persisted.
	IsOnline bool `gorm:"-" json:"isOnline"`
}

func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}

// PairKeyFor builds the unordered-pair lookup key for two user ids.
func PairKeyFor(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}
