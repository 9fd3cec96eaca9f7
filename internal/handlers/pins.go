package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"room-chat-service/internal/cache"
	"room-chat-service/internal/models"
	"room-chat-service/internal/repositories"
	"room-chat-service/internal/telemetry"
	"room-chat-service/internal/ws"
)

// PinHandler manages admin-gated message pinning.
type PinHandler struct {
	roomRepo    repositories.RoomRepository
	messageRepo repositories.MessageRepository
	pinRepo     repositories.PinRepository
	store       *cache.Cache
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
	maxPinned   int
}

// NewPinHandler builds a PinHandler.
func NewPinHandler(
	roomRepo repositories.RoomRepository,
	messageRepo repositories.MessageRepository,
	pinRepo repositories.PinRepository,
	store *cache.Cache,
	hub *ws.Hub,
	audit *telemetry.AuditEmitter,
	maxPinned int,
) *PinHandler {
	return &PinHandler{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		pinRepo:     pinRepo,
		store:       store,
		hub:         hub,
		audit:       audit,
		maxPinned:   maxPinned,
	}
}

// PinMessage pins a message, bounded per room. Exceeding the bound yields the
// dedicated limit error, not a generic validation failure.
func (h *PinHandler) PinMessage(c *gin.Context) {
	roomID, messageID, userID, ok := h.authorizeAdmin(c)
	if !ok {
		return
	}

	pinnedAt, err := h.pinRepo.PinMessage(c.Request.Context(), messageID, roomID, userID, h.maxPinned)
	if err != nil {
		respondError(c, err, "failed to pin message")
		return
	}

	h.store.InvalidatePrefix(cache.RoomMessagesPrefix(roomID))
	h.store.Invalidate(cache.RoomMetaKey(roomID))

	h.hub.Broadcast(roomID, models.RoomEvent{
		Type:      models.EventMessagePinned,
		MessageID: messageID,
		ActorID:   userID,
		Timestamp: pinnedAt,
	})
	h.audit.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("message %d pinned in room %d", messageID, roomID),
		requestIDFromContext(c), userIDFromContext(c))

	c.JSON(http.StatusOK, gin.H{"message_id": messageID, "pinned_at": pinnedAt})
}

// UnpinMessage clears the pin. Always allowed for an admin regardless of the
// room's pin count.
func (h *PinHandler) UnpinMessage(c *gin.Context) {
	roomID, messageID, userID, ok := h.authorizeAdmin(c)
	if !ok {
		return
	}

	if err := h.pinRepo.UnpinMessage(c.Request.Context(), messageID, roomID); err != nil {
		respondError(c, err, "failed to unpin message")
		return
	}

	h.store.InvalidatePrefix(cache.RoomMessagesPrefix(roomID))
	h.store.Invalidate(cache.RoomMetaKey(roomID))

	h.hub.Broadcast(roomID, models.RoomEvent{
		Type:      models.EventMessageUnpinned,
		MessageID: messageID,
		ActorID:   userID,
		Timestamp: time.Now().UTC(),
	})
	h.audit.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("message %d unpinned in room %d", messageID, roomID),
		requestIDFromContext(c), userIDFromContext(c))

	c.Status(http.StatusNoContent)
}

func (h *PinHandler) authorizeAdmin(c *gin.Context) (int, int, int, bool) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return 0, 0, 0, false
	}
	messageID, ok := parseMessageID(c)
	if !ok {
		return 0, 0, 0, false
	}
	userID := c.GetInt("userID")

	if _, err := h.roomRepo.GetRoom(c.Request.Context(), roomID); err != nil {
		respondError(c, err, "failed to load room")
		return 0, 0, 0, false
	}
	isAdmin, err := h.roomRepo.IsAdmin(c.Request.Context(), roomID, userID)
	if err != nil {
		respondError(c, err, "failed to verify role")
		return 0, 0, 0, false
	}
	if !isAdmin {
		respondError(c, repositories.ErrNotAdmin, "")
		return 0, 0, 0, false
	}

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		respondError(c, err, "failed to load message")
		return 0, 0, 0, false
	}
	if msg.RoomID != roomID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to room", "code": "wrong_room"})
		return 0, 0, 0, false
	}
	return roomID, messageID, userID, true
}
