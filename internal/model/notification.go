package model

import "time"

type Notification struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         string     `gorm:"column:user_id;size:128;index;not null" json:"userId"`
	Type           string     `gorm:"column:type;size:64;not null" json:"type"`
	Title          string     `gorm:"column:title;size:255" json:"title"`
	Body           string     `gorm:"column:body;type:text" json:"body"`
	ConversationID *string    `gorm:"column:conversation_id;size:36;index" json:"conversationId,omitempty"`
	ReadAt         *time.Time `gorm:"column:read_at" json:"readAt,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}
