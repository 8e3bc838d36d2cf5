package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"log/slog"

	"broadcast-service/internal/auth"
	"broadcast-service/internal/models"
	"broadcast-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// UserVerifier resolves an authentication token to an active user.
// Satisfied by *auth.Verifier.
type UserVerifier interface {
	VerifyToken(ctx context.Context, token string) (*models.User, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, implement proper origin checking
		return true
	},
}

// Handler terminates WebSocket connections and serves the channel
// authorization and publish endpoints.
type Handler struct {
	registry   *Registry
	authorizer *Authorizer
	verifier   UserVerifier
	publisher  *Publisher
}

func NewHandler(registry *Registry, authorizer *Authorizer, verifier UserVerifier, publisher *Publisher) *Handler {
	return &Handler{
		registry:   registry,
		authorizer: authorizer,
		verifier:   verifier,
		publisher:  publisher,
	}
}

// ServeWS handles GET /ws?token=... The connection is accepted first so a
// close code and reason reach the client on authentication failure.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	token := c.Query("token")
	if token == "" {
		closeConn(conn, websocket.ClosePolicyViolation, "Authentication token required")
		return
	}

	user, err := h.verifier.VerifyToken(c.Request.Context(), token)
	if err != nil {
		slog.Info("WebSocket authentication failed", "error", err)
		closeConn(conn, websocket.ClosePolicyViolation, "Authentication failed")
		return
	}

	client := NewClient(uuid.New().String(), user, conn)
	h.registry.Register(client)
	go client.WritePump()

	connected, _ := json.Marshal(map[string]string{"socket_id": client.ID()})
	client.Send(newFrame(EventConnected, connected, ""))

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	h.readLoop(client)
}

// readLoop receives command frames until the socket drops. The deferred
// disconnect is the single cleanup point for every exit path; the registry
// makes repeated disconnects harmless.
func (h *Handler) readLoop(client *Client) {
	defer h.registry.Disconnect(client.ID())

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket read error", "socketID", client.ID(), "error", err)
			}
			return
		}

		var cmd ClientCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			slog.Debug("Ignoring malformed frame", "socketID", client.ID(), "error", err)
			continue
		}
		h.handleCommand(client, cmd)
	}
}

// handleCommand processes one command in the connected state. Unrecognized
// events are ignored so older servers tolerate newer clients.
func (h *Handler) handleCommand(client *Client, cmd ClientCommand) {
	switch cmd.Event {
	case EventSubscribe:
		if cmd.Channel == "" {
			return
		}
		if !h.authorizer.Authorize(client.User(), cmd.Channel) {
			slog.Info("Subscription denied", "socketID", client.ID(), "channel", cmd.Channel)
			client.Send(newFrame(EventSubscriptionError, nil, cmd.Channel))
			return
		}
		h.registry.Subscribe(client.ID(), cmd.Channel)
		client.Send(newFrame(EventSubscribed, nil, cmd.Channel))

	case EventUnsubscribe:
		if cmd.Channel == "" {
			return
		}
		h.registry.Unsubscribe(client.ID(), cmd.Channel)
		client.Send(newFrame(EventUnsubscribed, nil, cmd.Channel))

	case EventPing:
		client.Send(newFrame(EventPong, nil, ""))
	}
}

// AuthorizeChannel handles POST /authorize?channel_name=...&socket_id=...
// for authenticated callers. Public channels need no grant and return 403,
// matching the upstream convention.
func (h *Handler) AuthorizeChannel(c *gin.Context) {
	channelName := c.Query("channel_name")
	socketID := c.Query("socket_id")
	if channelName == "" || socketID == "" {
		response.Error(c, http.StatusBadRequest, "channel_name and socket_id are required")
		return
	}

	user := auth.UserFromContext(c)

	if !IsGuarded(channelName) {
		response.Error(c, http.StatusForbidden, "Channel authorization not required")
		return
	}
	if !h.authorizer.Authorize(user, channelName) {
		response.Error(c, http.StatusForbidden, "Unauthorized")
		return
	}

	c.JSON(http.StatusOK, h.authorizer.Grant(socketID, channelName, user))
}

type publishRequest struct {
	Channels []string       `json:"channels" binding:"required,min=1"`
	Event    string         `json:"event" binding:"required"`
	Data     map[string]any `json:"data"`
	Socket   string         `json:"socket"`
}

// PublishEvent handles POST /events: the publish primitive exposed to other
// services. Delivery is best effort; the response reports the outcome but
// is always 200.
func (h *Handler) PublishEvent(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	ok := h.publisher.Broadcast(c.Request.Context(), req.Channels, req.Event, req.Data, req.Socket)
	c.JSON(http.StatusOK, gin.H{"ok": ok})
}

func closeConn(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeWait)
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	conn.Close()
}
