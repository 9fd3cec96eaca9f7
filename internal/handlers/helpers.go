package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"room-chat-service/internal/repositories"
)

const requestIDContextKey = "request_id"

// errorCode maps a repository sentinel to a stable machine-readable code and
// HTTP status. Store-specific detail never crosses this boundary.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, repositories.ErrRoomNotFound):
		return http.StatusNotFound, "room_not_found"
	case errors.Is(err, repositories.ErrMessageNotFound):
		return http.StatusNotFound, "message_not_found"
	case errors.Is(err, repositories.ErrNotParticipant):
		return http.StatusForbidden, "not_participant"
	case errors.Is(err, repositories.ErrNotSender):
		return http.StatusForbidden, "not_sender"
	case errors.Is(err, repositories.ErrNotAdmin):
		return http.StatusForbidden, "not_admin"
	case errors.Is(err, repositories.ErrMessageDeleted):
		return http.StatusForbidden, "message_deleted"
	case errors.Is(err, repositories.ErrPinLimitReached):
		return http.StatusConflict, "pin_limit_reached"
	case errors.Is(err, repositories.ErrReplyWrongRoom):
		return http.StatusBadRequest, "reply_wrong_room"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func respondError(c *gin.Context, err error, message string) {
	status, code := errorCode(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": message, "code": code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func parseRoomID(c *gin.Context) (int, bool) {
	roomID, err := strconv.Atoi(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id", "code": "invalid_room_id"})
		return 0, false
	}
	return roomID, true
}

func parseMessageID(c *gin.Context) (int, bool) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id", "code": "invalid_message_id"})
		return 0, false
	}
	return messageID, true
}

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *int64 {
	if val, ok := c.Get("userID"); ok {
		if userID, ok := val.(int); ok && userID != 0 {
			value := int64(userID)
			return &value
		}
	}
	return nil
}
