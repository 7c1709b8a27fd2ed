package repository

import (
	"context"
	"errors"

	"github.com/lonestarmarket/backend/internal/model"
	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

// ChatRepository is the only component that reads or writes
// conversation and message records. It owns the pair/product uniqueness
// rule and the counter-update transaction.
type ChatRepository interface {
	// FindOrCreate returns the conversation for cv's pair and product
	// bucket, creating it (with participants) when absent. The second
	// return reports whether a record was created.
	FindOrCreate(ctx context.Context, cv *model.Conversation) (*model.Conversation, bool, error)
	FindByID(ctx context.Context, id string) (*model.Conversation, error)

	// AppendMessage inserts msg and, in the same transaction, bumps the
	// parent conversation's updated_at and denormalized last-message
	// columns and increments every other participant's unread counter.
	AppendMessage(ctx context.Context, msg *model.Message) error
	HasMessage(ctx context.Context, conversationID, messageID string) (bool, error)

	MarkRead(ctx context.Context, conversationID, userID string) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, int64, error)
	// ListMessages returns one page counted back from the newest
	// message, in chronological order within the page.
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, int64, error)
	// ListRecentMessages returns up to limit newest messages, newest first.
	ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
	TotalUnread(ctx context.Context, userID string) (int64, error)
	UpdateStatus(ctx context.Context, conversationID, status string) error
	SetDB(db *gorm.DB)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *chatRepository) FindOrCreate(ctx context.Context, cv *model.Conversation) (*model.Conversation, bool, error) {
	if r.db == nil {
		return nil, false, ErrDBNotReady
	}
	var existing model.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("pair_key = ? AND product_key = ?", cv.PairKey, cv.ProductKey).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if err := r.db.WithContext(ctx).Create(cv).Error; err != nil {
		// Lost a race against a concurrent create for the same bucket;
		// the unique index makes the winner authoritative.
		var won model.Conversation
		if lookupErr := r.db.WithContext(ctx).
			Preload("Participants").
			Where("pair_key = ? AND product_key = ?", cv.PairKey, cv.ProductKey).
			First(&won).Error; lookupErr == nil {
			return &won, false, nil
		}
		return nil, false, err
	}
	return cv, true, nil
}

func (r *chatRepository) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	if err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id = ?", id).
		First(&cv).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, msg *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		at := msg.CreatedAt
		if err := tx.Model(&model.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Updates(map[string]interface{}{
				"last_message_id":        msg.ID,
				"last_message_sender_id": msg.SenderID,
				"last_message_type":      msg.Type,
				"last_message_body":      msg.Body,
				"last_message_encrypted": msg.IsEncrypted,
				"last_message_at":        at,
				"updated_at":             at,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&model.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id <> ?", msg.ConversationID, msg.SenderID).
			UpdateColumn("unread_count", gorm.Expr("unread_count + 1")).Error
	})
}

func (r *chatRepository) HasMessage(ctx context.Context, conversationID, messageID string) (bool, error) {
	if r.db == nil {
		return false, ErrDBNotReady
	}
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND id = ?", conversationID, messageID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *chatRepository) MarkRead(ctx context.Context, conversationID, userID string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	now := r.db.NowFunc()
	return r.db.WithContext(ctx).Model(&model.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Updates(map[string]interface{}{
			"unread_count": 0,
			"last_read_at": now,
		}).Error
}

func (r *chatRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, int64, error) {
	if r.db == nil {
		return nil, 0, ErrDBNotReady
	}
	// Fresh chain per query; reusing one past a finisher leaks clauses.
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.Conversation{}).
			Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
			Where("cp.user_id = ? AND conversations.status <> ?", userID, model.ConversationDeleted)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.Conversation
	if err := base().
		Preload("Participants").
		Order("conversations.updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *chatRepository) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, int64, error) {
	if r.db == nil {
		return nil, 0, ErrDBNotReady
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&msgs).Error; err != nil {
		return nil, 0, err
	}
	// Pages count back from the newest message but read front-to-back.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, total, nil
}

func (r *chatRepository) ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *chatRepository) TotalUnread(ctx context.Context, userID string) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var total int64
	err := r.db.WithContext(ctx).Model(&model.ConversationParticipant{}).
		Select("COALESCE(SUM(unread_count), 0)").
		Joins("JOIN conversations c ON c.id = conversation_participants.conversation_id").
		Where("conversation_participants.user_id = ? AND c.status <> ?", userID, model.ConversationDeleted).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *chatRepository) UpdateStatus(ctx context.Context, conversationID, status string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", conversationID).
		Update("status", status).Error
}
