package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"room-chat-service/internal/cache"
	"room-chat-service/internal/models"
	"room-chat-service/internal/repositories"
)

// RoomHandler exposes room listings and metadata.
type RoomHandler struct {
	roomRepo repositories.RoomRepository
	store    *cache.Cache
	metaTTL  time.Duration
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(roomRepo repositories.RoomRepository, store *cache.Cache, metaTTL time.Duration) *RoomHandler {
	return &RoomHandler{roomRepo: roomRepo, store: store, metaTTL: metaTTL}
}

// ListRooms returns the caller's rooms ordered by latest activity. The send
// transaction bumps the activity timestamp, so this ordering is never stale
// relative to a visible message.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	userID := c.GetInt("userID")

	rooms, err := h.roomRepo.ListRoomsForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to load rooms")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoom returns room metadata, cache-aside with the longer TTL. Membership
// is still checked against the store.
func (h *RoomHandler) GetRoom(c *gin.Context) {
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

	ctx := c.Request.Context()
	value, err := h.store.GetOrSet(cache.RoomMetaKey(roomID), h.metaTTL, func() (interface{}, error) {
		return h.roomRepo.GetRoom(ctx, roomID)
	})
	if err != nil {
		respondError(c, err, "failed to load room")
		return
	}

	c.JSON(http.StatusOK, value.(models.Room))
}
