package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lonestarmarket/backend/internal/crypto"
	"github.com/lonestarmarket/backend/internal/identity"
	"github.com/lonestarmarket/backend/internal/model"
	"github.com/lonestarmarket/backend/internal/repository"
	"github.com/lonestarmarket/backend/internal/ws"
	"gorm.io/gorm"
)

// Broadcaster is the slice of the connection registry the chat service
// needs for fan-out and presence.
type Broadcaster interface {
	SendToChat(conversationID string, ev ws.Event, excludeUserID string) int
	IsOnline(userID string) bool
}

type CreateChatInput struct {
	RecipientID    string
	ProductID      *string
	InitialMessage *string
}

type SendMessageInput struct {
	Type          string
	Text          string
	AttachmentURL *string
	ReplyTo       *string
}

type ChatService interface {
	CreateChat(ctx context.Context, initiatorID string, in CreateChatInput) (*model.Conversation, error)
	GetConversation(ctx context.Context, userID, conversationID string) (*model.Conversation, error)
	// ListConversations returns the caller's page of threads plus the
	// total thread count and the unread total summed across all threads.
	ListConversations(ctx context.Context, userID string, page, limit int) ([]model.Conversation, int64, int64, error)
	ListMessages(ctx context.Context, userID, conversationID string, page, limit int) ([]model.Message, int64, error)
	SendMessage(ctx context.Context, senderID, conversationID string, in SendMessageInput) (*model.Message, error)
	MarkMessagesRead(ctx context.Context, userID, conversationID string) error
}

type chatService struct {
	repo     repository.ChatRepository
	products repository.ProductRepository
	users    identity.Provider
	codec    *crypto.Codec
	hub      Broadcaster
	notifs   NotificationService
}

func NewChatService(
	repo repository.ChatRepository,
	products repository.ProductRepository,
	users identity.Provider,
	codec *crypto.Codec,
	hub Broadcaster,
	notifs NotificationService,
) ChatService {
	return &chatService{
		repo:     repo,
		products: products,
		users:    users,
		codec:    codec,
		hub:      hub,
		notifs:   notifs,
	}
}

func (s *chatService) CreateChat(ctx context.Context, initiatorID string, in CreateChatInput) (*model.Conversation, error) {
	if in.RecipientID == "" {
		return nil, errValidation("recipient_id is required")
	}
	if in.RecipientID == initiatorID {
		return nil, errValidation("cannot chat with yourself")
	}

	initiator, err := s.resolveUser(ctx, initiatorID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.resolveUser(ctx, in.RecipientID)
	if err != nil {
		return nil, err
	}

	productKey := ""
	var productID *string
	if in.ProductID != nil && *in.ProductID != "" {
		if _, err := s.products.FindByID(ctx, *in.ProductID); err != nil {
			return nil, mapNotFound(err)
		}
		productKey = *in.ProductID
		productID = in.ProductID
	}

	cv := &model.Conversation{
		ID:         uuid.NewString(),
		PairKey:    model.PairKeyFor(initiator.ID, recipient.ID),
		ProductKey: productKey,
		ProductID:  productID,
		Status:     model.ConversationActive,
		Participants: []model.ConversationParticipant{
			{UserID: initiator.ID, DisplayName: initiator.DisplayName, Role: initiator.Role},
			{UserID: recipient.ID, DisplayName: recipient.DisplayName, Role: recipient.Role},
		},
	}
	cv, _, err = s.repo.FindOrCreate(ctx, cv)
	if err != nil {
		return nil, err
	}

	if in.InitialMessage != nil && strings.TrimSpace(*in.InitialMessage) != "" {
		if _, err := s.SendMessage(ctx, initiator.ID, cv.ID, SendMessageInput{
			Type: model.MessageText,
			Text: *in.InitialMessage,
		}); err != nil {
			return nil, err
		}
		// Re-read so counters and the last-message copy are current.
		cv, err = s.repo.FindByID(ctx, cv.ID)
		if err != nil {
			return nil, mapNotFound(err)
		}
	}

	s.decorate(cv)
	return cv, nil
}

func (s *chatService) GetConversation(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	cv, err := s.memberConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	s.decorate(cv)
	return cv, nil
}

func (s *chatService) ListConversations(ctx context.Context, userID string, page, limit int) ([]model.Conversation, int64, int64, error) {
	limit, offset := pageWindow(page, limit)
	list, total, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, 0, err
	}
	for i := range list {
		s.decorate(&list[i])
	}
	unread, err := s.repo.TotalUnread(ctx, userID)
	if err != nil {
		return nil, 0, 0, err
	}
	return list, total, unread, nil
}

func (s *chatService) ListMessages(ctx context.Context, userID, conversationID string, page, limit int) ([]model.Message, int64, error) {
	if _, err := s.memberConversation(ctx, userID, conversationID); err != nil {
		return nil, 0, err
	}
	limit, offset := pageWindow(page, limit)
	msgs, total, err := s.repo.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	s.decryptMessages(msgs)
	return msgs, total, nil
}

func (s *chatService) SendMessage(ctx context.Context, senderID, conversationID string, in SendMessageInput) (*model.Message, error) {
	cv, err := s.memberConversation(ctx, senderID, conversationID)
	if err != nil {
		return nil, err
	}
	sender := cv.Participant(senderID)

	msgType := in.Type
	if msgType == "" {
		msgType = model.MessageText
	}
	switch msgType {
	case model.MessageText, model.MessageSystem:
		if strings.TrimSpace(in.Text) == "" {
			return nil, errValidation("text is required")
		}
	case model.MessageImage, model.MessageFile:
		if in.AttachmentURL == nil || *in.AttachmentURL == "" {
			return nil, errValidation("attachment_url is required")
		}
	default:
		return nil, errValidation("unknown message type")
	}

	if in.ReplyTo != nil && *in.ReplyTo != "" {
		ok, err := s.repo.HasMessage(ctx, conversationID, *in.ReplyTo)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errValidation("reply target is not in this conversation")
		}
	} else {
		in.ReplyTo = nil
	}

	body := in.Text
	encrypted := false
	if msgType == model.MessageText {
		body, encrypted = s.codec.Encrypt(in.Text)
	}

	msg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: cv.ID,
		SenderID:       sender.UserID,
		SenderName:     sender.DisplayName,
		Type:           msgType,
		Body:           body,
		AttachmentURL:  in.AttachmentURL,
		IsEncrypted:    encrypted,
		ReplyToID:      in.ReplyTo,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}

	// Callers and subscribers only ever see plaintext.
	echo := *msg
	if echo.Type == model.MessageText {
		echo.Body = in.Text
	}
	s.hub.SendToChat(cv.ID, ws.Event{
		Type:     ws.EventNewMessage,
		Data:     messagePayload(&echo),
		SenderID: sender.UserID,
	}, sender.UserID)

	for i := range cv.Participants {
		p := &cv.Participants[i]
		if p.UserID == sender.UserID || s.hub.IsOnline(p.UserID) {
			continue
		}
		convID := cv.ID
		s.notifs.Notify(ctx, p.UserID, "new_message", "New message", sender.DisplayName, &convID)
	}

	return &echo, nil
}

func (s *chatService) MarkMessagesRead(ctx context.Context, userID, conversationID string) error {
	cv, err := s.memberConversation(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkRead(ctx, cv.ID, userID); err != nil {
		return err
	}
	if s.notifs != nil {
		_ = s.notifs.MarkByConversation(ctx, userID, cv.ID)
	}
	s.hub.SendToChat(cv.ID, ws.Event{
		Type: ws.EventMessageRead,
		Data: map[string]interface{}{
			"conversation_id": cv.ID,
			"reader_id":       userID,
		},
		SenderID: userID,
	}, userID)
	return nil
}

// memberConversation loads a conversation and enforces that userID is a
// participant. Both "missing" and "not yours" come back as not-found
// flavored errors so the API boundary cannot leak existence.
func (s *chatService) memberConversation(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	cv, err := s.repo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if cv.Participant(userID) == nil {
		return nil, ErrNotParticipant
	}
	return cv, nil
}

func (s *chatService) resolveUser(ctx context.Context, uid string) (*identity.User, error) {
	u, err := s.users.Resolve(ctx, uid)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// decryptMessages replaces text ciphertext with plaintext in place.
// Non-text messages pass through untouched.
func (s *chatService) decryptMessages(msgs []model.Message) {
	for i := range msgs {
		if msgs[i].Type == model.MessageText && msgs[i].IsEncrypted {
			msgs[i].Body = s.codec.Decrypt(msgs[i].Body)
		}
	}
}

// decorate fills the derived fields of a conversation for responses:
// decrypted last-message preview and live presence flags.
func (s *chatService) decorate(cv *model.Conversation) {
	if cv.LastMessageBody != nil && cv.LastMessageEncrypted &&
		cv.LastMessageType != nil && *cv.LastMessageType == model.MessageText {
		dec := s.codec.Decrypt(*cv.LastMessageBody)
		cv.LastMessageBody = &dec
	}
	for i := range cv.Participants {
		cv.Participants[i].IsOnline = s.hub.IsOnline(cv.Participants[i].UserID)
	}
}

func messagePayload(m *model.Message) map[string]interface{} {
	content := map[string]interface{}{}
	if m.Type == model.MessageText || m.Type == model.MessageSystem {
		content["text"] = m.Body
	}
	if m.AttachmentURL != nil {
		content["attachment_url"] = *m.AttachmentURL
	}
	data := map[string]interface{}{
		"id":              m.ID,
		"conversation_id": m.ConversationID,
		"sender_id":       m.SenderID,
		"sender_name":     m.SenderName,
		"message_type":    m.Type,
		"content":         content,
		"timestamp":       m.CreatedAt.Format(time.RFC3339Nano),
	}
	if m.ReplyToID != nil {
		data["reply_to"] = *m.ReplyToID
	}
	return data
}

func pageWindow(page, limit int) (int, int) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

func errValidation(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Is(target error) bool { return target == ErrValidation }

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
