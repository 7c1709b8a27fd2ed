package ws

// Server-pushed event types.
const (
	EventNewMessage  = "new_message"
	EventUserOnline  = "user_online"
	EventUserOffline = "user_offline"
	EventUserTyping  = "user_typing"
	EventMessageRead = "message_read"
)

// Event is one server→client frame.
type Event struct {
	Type     string      `json:"type"`
	Data     interface{} `json:"data,omitempty"`
	SenderID string      `json:"sender_id,omitempty"`
}

// clientFrame is the expected shape of client→server frames.
type clientFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	IsTyping       bool   `json:"is_typing"`
}

const (
	frameTyping      = "typing"
	frameSubscribe   = "subscribe_chat"
	frameUnsubscribe = "unsubscribe_chat"
)
