package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lonestarmarket/backend/internal/model"
	"github.com/lonestarmarket/backend/internal/service"
	"github.com/lonestarmarket/backend/internal/storage"
	"github.com/lonestarmarket/backend/internal/ws"
)

type ChatHandler struct {
	svc      service.ChatService
	reports  service.ReportService
	hub      *ws.Hub
	uploader *storage.Uploader
}

func NewChatHandler(svc service.ChatService, reports service.ReportService, hub *ws.Hub, uploader *storage.Uploader) *ChatHandler {
	return &ChatHandler{svc: svc, reports: reports, hub: hub, uploader: uploader}
}

type CreateChatRequest struct {
	RecipientID    string  `json:"recipientId"`
	ProductID      *string `json:"productId"`
	InitialMessage *string `json:"initialMessage"`
}

type SendMessageRequest struct {
	MessageType string `json:"messageType"`
	Content     struct {
		Text          string  `json:"text"`
		AttachmentURL *string `json:"attachmentUrl"`
	} `json:"content"`
	ReplyTo *string `json:"replyTo"`
}

type ReportRequest struct {
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

type LastMessageView struct {
	ID          string  `json:"id"`
	SenderID    string  `json:"senderId"`
	MessageType string  `json:"messageType"`
	Text        *string `json:"text,omitempty"`
	SentAt      string  `json:"sentAt"`
}

type ConversationResponse struct {
	ID           string                          `json:"id"`
	ProductID    *string                         `json:"productId,omitempty"`
	Status       string                          `json:"status"`
	Participants []model.ConversationParticipant `json:"participants"`
	UnreadCount  map[string]int                  `json:"unreadCount"`
	LastMessage  *LastMessageView                `json:"lastMessage,omitempty"`
	CreatedAt    string                          `json:"createdAt"`
	UpdatedAt    string                          `json:"updatedAt"`
}

type MessageContent struct {
	Text          *string `json:"text,omitempty"`
	AttachmentURL *string `json:"attachmentUrl,omitempty"`
}

type MessageResponse struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversationId"`
	SenderID       string         `json:"senderId"`
	SenderName     string         `json:"senderName"`
	MessageType    string         `json:"messageType"`
	Content        MessageContent `json:"content"`
	IsEncrypted    bool           `json:"isEncrypted"`
	ReplyTo        *string        `json:"replyTo,omitempty"`
	Timestamp      string         `json:"timestamp"`
}

func toConversationResponse(cv *model.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:           cv.ID,
		ProductID:    cv.ProductID,
		Status:       cv.Status,
		Participants: cv.Participants,
		UnreadCount:  make(map[string]int, len(cv.Participants)),
		CreatedAt:    cv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    cv.UpdatedAt.Format(time.RFC3339),
	}
	for _, p := range cv.Participants {
		resp.UnreadCount[p.UserID] = p.UnreadCount
	}
	if cv.LastMessageID != nil {
		lm := &LastMessageView{ID: *cv.LastMessageID}
		if cv.LastMessageSenderID != nil {
			lm.SenderID = *cv.LastMessageSenderID
		}
		if cv.LastMessageType != nil {
			lm.MessageType = *cv.LastMessageType
		}
		if cv.LastMessageBody != nil && lm.MessageType == model.MessageText {
			lm.Text = cv.LastMessageBody
		}
		if cv.LastMessageAt != nil {
			lm.SentAt = cv.LastMessageAt.Format(time.RFC3339)
		}
		resp.LastMessage = lm
	}
	return resp
}

func toMessageResponse(m *model.Message) MessageResponse {
	resp := MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		MessageType:    m.Type,
		IsEncrypted:    m.IsEncrypted,
		ReplyTo:        m.ReplyToID,
		Timestamp:      m.CreatedAt.Format(time.RFC3339Nano),
	}
	if m.Type == model.MessageText || m.Type == model.MessageSystem {
		body := m.Body
		resp.Content.Text = &body
	}
	resp.Content.AttachmentURL = m.AttachmentURL
	return resp
}

// chatError maps service errors to responses. Non-participants get the
// same not-found shape as a missing conversation on purpose.
func chatError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNotParticipant):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "not found"))
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	default:
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "internal error"))
	}
}

func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return page, limit
}

func (h *ChatHandler) Create(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req CreateChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	cv, err := h.svc.CreateChat(c.Request().Context(), uid, service.CreateChatInput{
		RecipientID:    req.RecipientID,
		ProductID:      req.ProductID,
		InitialMessage: req.InitialMessage,
	})
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(cv))
}

func (h *ChatHandler) List(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	page, limit := pageParams(c)
	list, total, unread, err := h.svc.ListConversations(c.Request().Context(), uid, page, limit)
	if err != nil {
		return chatError(c, err)
	}
	items := make([]ConversationResponse, 0, len(list))
	for i := range list {
		items = append(items, toConversationResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversations": items,
		"total":         total,
		"totalUnread":   unread,
	})
}

func (h *ChatHandler) Get(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	cv, err := h.svc.GetConversation(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(cv))
}

func (h *ChatHandler) ListMessages(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	page, limit := pageParams(c)
	msgs, total, err := h.svc.ListMessages(c.Request().Context(), uid, c.Param("id"), page, limit)
	if err != nil {
		return chatError(c, err)
	}
	items := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		items = append(items, toMessageResponse(&msgs[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": items,
		"total":    total,
	})
}

func (h *ChatHandler) CreateMessage(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	msg, err := h.svc.SendMessage(c.Request().Context(), uid, c.Param("id"), service.SendMessageInput{
		Type:          req.MessageType,
		Text:          req.Content.Text,
		AttachmentURL: req.Content.AttachmentURL,
		ReplyTo:       req.ReplyTo,
	})
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(http.StatusCreated, toMessageResponse(msg))
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	if err := h.svc.MarkMessagesRead(c.Request().Context(), uid, c.Param("id")); err != nil {
		return chatError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ChatHandler) Report(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req ReportRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	rep, err := h.reports.Report(c.Request().Context(), uid, c.Param("id"), req.Reason, req.Description)
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(http.StatusCreated, rep)
}

func (h *ChatHandler) UploadAttachment(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	if h.uploader == nil {
		return c.JSON(http.StatusServiceUnavailable, NewErrorResponse("unavailable", "attachment storage is not configured"))
	}
	// Upload is participant-only, same disguise as the other routes.
	if _, err := h.svc.GetConversation(c.Request().Context(), uid, c.Param("id")); err != nil {
		return chatError(c, err)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "file is required"))
	}
	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "unreadable file"))
	}
	defer src.Close()
	url, err := h.uploader.Upload(c.Request().Context(), src, fh.Header.Get("Content-Type"), fh.Filename)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "upload failed"))
	}
	return c.JSON(http.StatusCreated, map[string]string{"url": url})
}

func (h *ChatHandler) Online(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"userIds": h.hub.OnlineUsers(),
	})
}
