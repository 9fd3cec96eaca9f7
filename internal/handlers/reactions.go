package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"room-chat-service/internal/cache"
	"room-chat-service/internal/models"
	"room-chat-service/internal/repositories"
	"room-chat-service/internal/ws"
)

const maxEmojiBytes = 32

// ReactionHandler toggles emoji reactions.
type ReactionHandler struct {
	roomRepo     repositories.RoomRepository
	messageRepo  repositories.MessageRepository
	reactionRepo repositories.ReactionRepository
	store        *cache.Cache
	hub          *ws.Hub
}

// NewReactionHandler builds a ReactionHandler.
func NewReactionHandler(
	roomRepo repositories.RoomRepository,
	messageRepo repositories.MessageRepository,
	reactionRepo repositories.ReactionRepository,
	store *cache.Cache,
	hub *ws.Hub,
) *ReactionHandler {
	return &ReactionHandler{
		roomRepo:     roomRepo,
		messageRepo:  messageRepo,
		reactionRepo: reactionRepo,
		store:        store,
		hub:          hub,
	}
}

type toggleReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// ToggleReaction flips the (message,user,emoji) reaction and broadcasts the
// resulting per-emoji reactor map. Races between identical toggles are
// resolved by the store's uniqueness constraint, not by locking here.
func (h *ReactionHandler) ToggleReaction(c *gin.Context) {
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	var req toggleReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_body"})
		return
	}
	emoji := strings.TrimSpace(req.Emoji)
	if emoji == "" || len(emoji) > maxEmojiBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid emoji", "code": "invalid_emoji"})
		return
	}

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		respondError(c, err, "failed to load message")
		return
	}
	member, err := h.roomRepo.IsParticipant(c.Request.Context(), msg.RoomID, userID)
	if err != nil {
		respondError(c, err, "failed to verify membership")
		return
	}
	if !member {
		respondError(c, repositories.ErrNotParticipant, "")
		return
	}

	result, err := h.reactionRepo.ToggleReaction(c.Request.Context(), messageID, userID, emoji)
	if err != nil {
		respondError(c, err, "failed to toggle reaction")
		return
	}

	h.store.Invalidate(cache.MessageReactionsKey(messageID))

	reactions, err := h.reactionRepo.GetReactions(c.Request.Context(), messageID)
	if err != nil {
		respondError(c, err, "failed to load reactions")
		return
	}

	h.hub.Broadcast(msg.RoomID, models.RoomEvent{
		Type:      models.EventReactionUpdated,
		MessageID: messageID,
		Reactions: reactions,
	})

	c.JSON(http.StatusOK, gin.H{"result": result, "reactions": reactions})
}
