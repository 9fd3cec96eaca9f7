package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"room-chat-service/internal/cache"
	"room-chat-service/internal/models"
	"room-chat-service/internal/notifications"
	"room-chat-service/internal/repositories"
	"room-chat-service/internal/ws"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
	minSearchLen     = 2
	maxSearchResults = 50
)

// MessageLimits bounds inbound message payloads.
type MessageLimits struct {
	MaxContentRunes int
	MaxPayloadBytes int64
}

// MessageHandler manages the message lifecycle: send, list, edit, delete,
// search.
type MessageHandler struct {
	roomRepo    repositories.RoomRepository
	messageRepo repositories.MessageRepository
	store       *cache.Cache
	hub         *ws.Hub
	dispatcher  *notifications.Dispatcher
	limits      MessageLimits
	pageTTL     cacheTTLs
}

type cacheTTLs struct {
	messagePage time.Duration
	roomMeta    time.Duration
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(
	roomRepo repositories.RoomRepository,
	messageRepo repositories.MessageRepository,
	store *cache.Cache,
	hub *ws.Hub,
	dispatcher *notifications.Dispatcher,
	limits MessageLimits,
	messagePageTTL, roomMetaTTL time.Duration,
) *MessageHandler {
	return &MessageHandler{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		store:       store,
		hub:         hub,
		dispatcher:  dispatcher,
		limits:      limits,
		pageTTL:     cacheTTLs{messagePage: messagePageTTL, roomMeta: roomMetaTTL},
	}
}

type sendMessageRequest struct {
	Content     string  `json:"content" binding:"required"`
	ReplyToID   *int    `json:"reply_to_id,omitempty"`
	FileRef     *string `json:"file_ref,omitempty"`
	ClientMsgID string  `json:"client_msg_id,omitempty"`
}

// SendMessage validates, persists (transactionally with the room activity
// bump), invalidates cached views, broadcasts strictly after commit, and
// enqueues push jobs off the request path.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	// Oversized payloads get their own status, never a generic 400.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.limits.MaxPayloadBytes)

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large", "code": "payload_too_large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_body"})
		return
	}

	content, ok := h.validateContent(c, req.Content)
	if !ok {
		return
	}

	// Room-not-found and not-a-participant are deliberately distinct.
	room, err := h.roomRepo.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err, "failed to load room")
		return
	}
	member, err := h.roomRepo.IsParticipant(c.Request.Context(), roomID, userID)
	if err != nil {
		respondError(c, err, "failed to verify membership")
		return
	}
	if !member {
		respondError(c, repositories.ErrNotParticipant, "")
		return
	}

	msgType := models.MessageTypeText
	if req.FileRef != nil && *req.FileRef != "" {
		msgType = models.MessageTypeFile
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), repositories.CreateMessageParams{
		RoomID:      roomID,
		SenderID:    userID,
		Content:     content,
		MsgType:     msgType,
		FileRef:     req.FileRef,
		ReplyToID:   req.ReplyToID,
		ClientMsgID: req.ClientMsgID,
	})
	if err != nil {
		respondError(c, err, "failed to store message")
		return
	}

	h.store.InvalidatePrefix(cache.RoomMessagesPrefix(roomID))
	h.store.Invalidate(cache.RoomMetaKey(roomID))

	// Broadcast only after the transaction committed; subscribers must never
	// see an event for data not yet durable.
	h.hub.Broadcast(roomID, models.RoomEvent{Type: models.EventReceiveMessage, Message: &msg})

	// Push dispatch is fire-and-forget; a dead queue must not fail the send.
	go h.dispatcher.DispatchMessage(msg, room.Name)

	c.JSON(http.StatusCreated, msg)
}

// GetMessages returns one cursor page of room history, oldest first. Pages are
// served cache-aside with a short TTL; membership is always checked against
// the store.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	member, err := h.roomRepo.IsParticipant(c.Request.Context(), roomID, userID)
	if err != nil {
		respondError(c, err, "failed to verify membership")
		return
	}
	if !member {
		respondError(c, repositories.ErrNotParticipant, "")
		return
	}

	limit := defaultPageLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	cursor := 0
	if raw := c.Query("cursor"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cursor = parsed
		}
	}

	ctx := c.Request.Context()
	value, err := h.store.GetOrSet(cache.RoomMessagesKey(roomID, cursor, limit), h.pageTTL.messagePage, func() (interface{}, error) {
		return h.messageRepo.ListMessages(ctx, roomID, limit, cursor)
	})
	if err != nil {
		respondError(c, err, "failed to load messages")
		return
	}
	page := value.(models.MessagePage)

	c.JSON(http.StatusOK, page)
}

type editMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// EditMessage updates content for the sender and broadcasts the new version.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_body"})
		return
	}
	content, ok := h.validateContent(c, req.Content)
	if !ok {
		return
	}

	msg, err := h.messageRepo.EditMessage(c.Request.Context(), messageID, userID, content)
	if err != nil {
		respondError(c, err, "failed to edit message")
		return
	}
	if msg.RoomID != roomID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to room", "code": "wrong_room"})
		return
	}

	h.store.InvalidatePrefix(cache.RoomMessagesPrefix(msg.RoomID))

	h.hub.Broadcast(msg.RoomID, models.RoomEvent{
		Type:      models.EventMessageUpdated,
		MessageID: msg.ID,
		Content:   msg.Content,
		Timestamp: msg.UpdatedAt,
	})
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage tombstones a message for everyone. Only soft deletion exists.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		respondError(c, err, "failed to load message")
		return
	}
	if msg.RoomID != roomID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to room", "code": "wrong_room"})
		return
	}

	if err := h.messageRepo.SoftDeleteMessage(c.Request.Context(), messageID, userID); err != nil {
		respondError(c, err, "failed to delete message")
		return
	}

	h.store.InvalidatePrefix(cache.RoomMessagesPrefix(roomID))

	h.hub.Broadcast(roomID, models.RoomEvent{Type: models.EventMessageDeleted, MessageID: messageID})
	c.Status(http.StatusNoContent)
}

// SearchMessages runs the similarity-ranked room search.
func (h *MessageHandler) SearchMessages(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	query := strings.TrimSpace(c.Query("q"))
	if utf8.RuneCountInString(query) < minSearchLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query too short", "code": "query_too_short"})
		return
	}

	member, err := h.roomRepo.IsParticipant(c.Request.Context(), roomID, userID)
	if err != nil {
		respondError(c, err, "failed to verify membership")
		return
	}
	if !member {
		respondError(c, repositories.ErrNotParticipant, "")
		return
	}

	limit := maxSearchResults
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed < maxSearchResults {
			limit = parsed
		}
	}

	msgs, err := h.messageRepo.SearchMessages(c.Request.Context(), roomID, query, limit)
	if err != nil {
		respondError(c, err, "search failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *MessageHandler) validateContent(c *gin.Context, raw string) (string, bool) {
	content := strings.TrimSpace(strings.ReplaceAll(raw, "\x00", ""))
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required", "code": "content_required"})
		return "", false
	}
	if utf8.RuneCountInString(content) > h.limits.MaxContentRunes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content too long", "code": "content_too_long"})
		return "", false
	}
	return content, true
}
