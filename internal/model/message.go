package model

import "time"

const (
	MessageText   = "text"
	MessageImage  = "image"
	MessageFile   = "file"
	MessageSystem = "system"
)

// Message is immutable once written. For text messages Body holds
// ciphertext at rest; the read path decrypts before anything leaves the
// service layer.
type Message struct {
	ID             string  `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string  `gorm:"size:36;index;not null" json:"conversationId"`
	SenderID       string  `gorm:"size:128;not null" json:"senderId"`
	SenderName     string  `gorm:"size:128" json:"senderName"`
	Type           string  `gorm:"size:16;not null" json:"messageType"`
	Body           string  `gorm:"type:text" json:"-"`
	AttachmentURL  *string `gorm:"size:512" json:"attachmentUrl,omitempty"`
	IsEncrypted    bool    `gorm:"not null;default:false" json:"isEncrypted"`
	ReplyToID      *string `gorm:"column:reply_to_id;size:36" json:"replyTo,omitempty"`

	CreatedAt time.Time `gorm:"index;not null" json:"timestamp"`
}

func (Message) TableName() string {
	return "messages"
}
