package models

import "time"

// Room-scoped event names carried over the websocket gateway.
const (
	EventReceiveMessage   = "receive-message"
	EventMessageUpdated   = "message-updated"
	EventMessageDeleted   = "message-deleted"
	EventReactionUpdated  = "reaction-updated"
	EventMessageRead      = "message-read-update"
	EventMessageDelivered = "message-delivered-update"
	EventMessagePinned    = "message-pinned"
	EventMessageUnpinned  = "message-unpinned"
	EventUserTyping       = "user-typing"
	EventUserStopTyping   = "user-stop-typing"
	EventOnlineUsers      = "online-users"
	EventUserOnline       = "user-online"
	EventUserOffline      = "user-offline"
)

// Client frame types accepted by the gateway.
const (
	FrameJoinRoom         = "join-room"
	FrameLeaveRoom        = "leave-room"
	FrameTyping           = "typing"
	FrameStopTyping       = "stop-typing"
	FrameMessageDelivered = "message-delivered"
)

// RoomEvent is the envelope broadcast to room subscribers.
type RoomEvent struct {
	Type      string      `json:"type"`
	RoomID    int         `json:"room_id"`
	Message   *Message    `json:"message,omitempty"`
	MessageID int         `json:"message_id,omitempty"`
	Content   string      `json:"content,omitempty"`
	Reactions ReactionMap `json:"reactions,omitempty"`
	UserID    int         `json:"user_id,omitempty"`
	UserName  string      `json:"user_name,omitempty"`
	UserIDs   []int       `json:"user_ids,omitempty"`
	ActorID   int         `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp,omitempty"`
}

// ClientFrame is a message sent by a client over the gateway connection.
type ClientFrame struct {
	Type      string `json:"type"`
	RoomID    int    `json:"room_id"`
	MessageID int    `json:"message_id,omitempty"`
	UserName  string `json:"user_name,omitempty"`
}
