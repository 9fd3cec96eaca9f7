package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"room-chat-service/internal/models"
	"room-chat-service/internal/repositories"
	"room-chat-service/internal/ws"
)

// ReceiptHandler records read receipts.
type ReceiptHandler struct {
	receiptRepo repositories.ReceiptRepository
	hub         *ws.Hub
}

// NewReceiptHandler builds a ReceiptHandler.
func NewReceiptHandler(receiptRepo repositories.ReceiptRepository, hub *ws.Hub) *ReceiptHandler {
	return &ReceiptHandler{receiptRepo: receiptRepo, hub: hub}
}

// MarkAsRead upserts a single receipt. Existence and membership are resolved
// in one combined query before the write; the repository absorbs the
// unique-key race internally.
func (h *ReceiptHandler) MarkAsRead(c *gin.Context) {
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	roomID, err := h.receiptRepo.RoomIDForReadableMessage(c.Request.Context(), messageID, userID)
	if err != nil {
		respondError(c, err, "failed to verify message")
		return
	}

	if err := h.receiptRepo.MarkAsRead(c.Request.Context(), messageID, userID); err != nil {
		respondError(c, err, "failed to record receipt")
		return
	}

	h.hub.Broadcast(roomID, models.RoomEvent{
		Type:      models.EventMessageRead,
		MessageID: messageID,
		UserID:    userID,
	})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type batchReadRequest struct {
	MessageIDs []int `json:"message_ids" binding:"required"`
}

// MarkBatchAsRead records receipts for several messages, isolating per-id
// failures so one bad id never blocks the rest.
func (h *ReceiptHandler) MarkBatchAsRead(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	var req batchReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_body"})
		return
	}

	marked := 0
	for _, messageID := range req.MessageIDs {
		msgRoom, err := h.receiptRepo.RoomIDForReadableMessage(c.Request.Context(), messageID, userID)
		if err != nil || msgRoom != roomID {
			log.Printf("batch mark-read: skipping message %d for user %d: %v", messageID, userID, err)
			continue
		}
		if err := h.receiptRepo.MarkAsRead(c.Request.Context(), messageID, userID); err != nil {
			log.Printf("batch mark-read: message %d for user %d: %v", messageID, userID, err)
			continue
		}
		marked++
		h.hub.Broadcast(roomID, models.RoomEvent{
			Type:      models.EventMessageRead,
			MessageID: messageID,
			UserID:    userID,
		})
	}

	c.JSON(http.StatusOK, gin.H{"marked": marked})
}
