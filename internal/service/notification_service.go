package service

import (
	"context"
	"time"

	"github.com/lonestarmarket/backend/internal/model"
	"github.com/lonestarmarket/backend/internal/repository"
)

type NotificationService interface {
	Notify(ctx context.Context, userID, typ, title, body string, conversationID *string)
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, userID string) error
	MarkByConversation(ctx context.Context, userID, conversationID string) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

// Notify is best-effort; failures are dropped so the main flow is never
// blocked on notification writes.
func (s *notificationService) Notify(ctx context.Context, userID, typ, title, body string, conversationID *string) {
	if userID == "" || typ == "" {
		return
	}
	ctx, cancel := withShortDeadline(ctx)
	defer cancel()
	n := &model.Notification{
		UserID:         userID,
		Type:           typ,
		Title:          title,
		Body:           body,
		ConversationID: conversationID,
	}
	_ = s.repo.Create(ctx, n)
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if userID == "" {
		return nil, 0, nil
	}
	list, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	cnt, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return list, 0, err
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *notificationService) MarkByConversation(ctx context.Context, userID, conversationID string) error {
	if userID == "" || conversationID == "" {
		return nil
	}
	return s.repo.MarkByConversation(ctx, userID, conversationID)
}

// withShortDeadline caps best-effort writes so they cannot stall the
// request path.
func withShortDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 2*time.Second)
}
