package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are filtered by the CORS layer; the handshake itself
	// authenticates via token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TokenVerifier resolves a handshake token to a trusted user id.
type TokenVerifier func(ctx context.Context, token string) (string, error)

// Handler upgrades authenticated requests to live chat channels.
type Handler struct {
	hub    *Hub
	verify TokenVerifier
}

func NewHandler(hub *Hub, verify TokenVerifier) *Handler {
	return &Handler{hub: hub, verify: verify}
}

// Serve handles GET /ws/chat?token=<id token>.
func (h *Handler) Serve(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing token"})
	}
	uid, err := h.verify(c.Request().Context(), token)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return nil
	}

	client := NewClient(h.hub, conn, uid)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
	return nil
}
