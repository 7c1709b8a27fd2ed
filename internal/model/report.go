package model

import "time"

const (
	ReportOpen     = "open"
	ReportReviewed = "reviewed"
)

// Report is an abuse report filed by a conversation participant.
// Severity is filled in asynchronously by the moderation scorer.
type Report struct {
	ID             string   `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string   `gorm:"size:36;index;not null" json:"conversationId"`
	ReporterID     string   `gorm:"size:128;not null" json:"reporterId"`
	Reason         string   `gorm:"size:64;not null" json:"reason"`
	Description    string   `gorm:"type:text" json:"description"`
	Severity       *float64 `gorm:"column:severity" json:"severity,omitempty"`
	Status         string   `gorm:"size:16;not null;default:open" json:"status"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Report) TableName() string {
	return "chat_reports"
}
