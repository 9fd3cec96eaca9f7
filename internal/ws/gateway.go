package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"room-chat-service/internal/models"
	"room-chat-service/internal/observability"
	"room-chat-service/internal/repositories"
)

// TokenVerifier resolves a bearer token to a verified user id. Token issuance
// belongs to the auth service; the gateway only verifies.
type TokenVerifier interface {
	Verify(token string) (int, error)
}

// GatewayHandler owns the single websocket endpoint. A connection
// authenticates once, then joins and leaves rooms through frames; the hub
// holds its subscriptions until an explicit leave or the connection dies.
type GatewayHandler struct {
	hub      *Hub
	roomRepo repositories.RoomRepository
	verifier TokenVerifier
	typing   *TypingTracker
}

// NewGatewayHandler constructs a GatewayHandler and its typing tracker.
func NewGatewayHandler(hub *Hub, roomRepo repositories.RoomRepository, verifier TokenVerifier, typingTimeout time.Duration) *GatewayHandler {
	g := &GatewayHandler{hub: hub, roomRepo: roomRepo, verifier: verifier}
	g.typing = NewTypingTracker(typingTimeout, func(roomID, userID int, userName string) {
		hub.Broadcast(roomID, models.RoomEvent{
			Type:     models.EventUserStopTyping,
			UserID:   userID,
			UserName: userName,
		})
	})
	return g
}

// Typing exposes the tracker for tests and shutdown.
func (g *GatewayHandler) Typing() *TypingTracker {
	return g.typing
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and runs its read loop.
func (g *GatewayHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("room-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	userID, err := g.verifier.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		UserName:    c.Query("user_name"),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")

	go g.readLoop(conn, info)
}

func (g *GatewayHandler) readLoop(conn *websocket.Conn, info ConnInfo) {
	defer func() {
		// Disconnect drops every room subscription without blocking; users
		// whose last connection died get offline deltas.
		for _, left := range g.hub.RemoveConn(conn) {
			if g.typing.Stop(left.RoomID, info.UserID) {
				g.hub.Broadcast(left.RoomID, models.RoomEvent{
					Type:     models.EventUserStopTyping,
					UserID:   info.UserID,
					UserName: info.UserName,
				})
			}
			if left.LastOfUser {
				g.hub.Broadcast(left.RoomID, models.RoomEvent{
					Type:   models.EventUserOffline,
					UserID: info.UserID,
				})
			}
		}
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		conn.Close()
	}()

	for {
		var frame models.ClientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}
		g.handleFrame(conn, info, frame)
	}
}

func (g *GatewayHandler) handleFrame(conn *websocket.Conn, info ConnInfo, frame models.ClientFrame) {
	switch frame.Type {
	case models.FrameJoinRoom:
		g.joinRoom(conn, info, frame)
	case models.FrameLeaveRoom:
		g.leaveRoom(conn, info, frame.RoomID)
	case models.FrameTyping:
		g.onTyping(conn, info, frame)
	case models.FrameStopTyping:
		g.onStopTyping(conn, info, frame.RoomID)
	case models.FrameMessageDelivered:
		g.onDelivered(conn, info, frame)
	}
}

func (g *GatewayHandler) joinRoom(conn *websocket.Conn, info ConnInfo, frame models.ClientFrame) {
	// Membership is always checked against the store, never a cache.
	member, err := g.roomRepo.IsParticipant(context.Background(), frame.RoomID, info.UserID)
	if err != nil || !member {
		_ = conn.WriteJSON(gin.H{"type": "error", "room_id": frame.RoomID, "error": "not a room participant"})
		return
	}
	if frame.UserName != "" {
		info.UserName = frame.UserName
	}

	first := g.hub.AddClient(frame.RoomID, conn, info)

	// The joining connection gets the full presence snapshot; everyone else
	// gets at most a delta.
	_ = conn.WriteJSON(models.RoomEvent{
		Type:    models.EventOnlineUsers,
		RoomID:  frame.RoomID,
		UserIDs: g.hub.OnlineUsers(frame.RoomID),
	})
	if first {
		g.hub.BroadcastExcept(frame.RoomID, conn, models.RoomEvent{
			Type:     models.EventUserOnline,
			UserID:   info.UserID,
			UserName: info.UserName,
		})
	}
}

func (g *GatewayHandler) leaveRoom(conn *websocket.Conn, info ConnInfo, roomID int) {
	left, lastOfUser, present := g.hub.RemoveClient(roomID, conn)
	if !present {
		return
	}
	if g.typing.Stop(roomID, left.UserID) {
		g.hub.Broadcast(roomID, models.RoomEvent{
			Type:     models.EventUserStopTyping,
			UserID:   left.UserID,
			UserName: left.UserName,
		})
	}
	if lastOfUser {
		g.hub.Broadcast(roomID, models.RoomEvent{
			Type:   models.EventUserOffline,
			UserID: info.UserID,
		})
	}
}

func (g *GatewayHandler) onTyping(conn *websocket.Conn, info ConnInfo, frame models.ClientFrame) {
	if !g.hub.IsSubscribed(frame.RoomID, conn) {
		return
	}
	userName := frame.UserName
	if userName == "" {
		userName = info.UserName
	}
	started := g.typing.Touch(frame.RoomID, info.UserID, userName)
	if started {
		g.hub.BroadcastExcept(frame.RoomID, conn, models.RoomEvent{
			Type:     models.EventUserTyping,
			UserID:   info.UserID,
			UserName: userName,
		})
	}
}

func (g *GatewayHandler) onStopTyping(conn *websocket.Conn, info ConnInfo, roomID int) {
	if !g.hub.IsSubscribed(roomID, conn) {
		return
	}
	if g.typing.Stop(roomID, info.UserID) {
		g.hub.BroadcastExcept(roomID, conn, models.RoomEvent{
			Type:     models.EventUserStopTyping,
			UserID:   info.UserID,
			UserName: info.UserName,
		})
	}
}

func (g *GatewayHandler) onDelivered(conn *websocket.Conn, info ConnInfo, frame models.ClientFrame) {
	if !g.hub.IsSubscribed(frame.RoomID, conn) {
		return
	}
	// Delivery acknowledgments are ephemeral; the gateway relays them to the
	// room without persistence. Duplicate acks for the same message id are
	// harmless to consumers.
	g.hub.Broadcast(frame.RoomID, models.RoomEvent{
		Type:      models.EventMessageDelivered,
		MessageID: frame.MessageID,
		UserID:    info.UserID,
	})
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		const prefix = "Bearer "
		if len(header) > len(prefix) && header[:len(prefix)] == prefix {
			return header[len(prefix):]
		}
		return ""
	}
	return c.Query("token")
}
