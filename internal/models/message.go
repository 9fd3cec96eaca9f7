package models

import "time"

// Message types stored in messages.msg_type.
const (
	MessageTypeText   = "text"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// TombstoneContent replaces the content of soft-deleted messages.
const TombstoneContent = "This message was deleted"

// Message represents a chat message in a room.
type Message struct {
	ID          int        `db:"id" json:"id"`
	RoomID      int        `db:"room_id" json:"room_id"`
	SenderID    int        `db:"sender_id" json:"sender_id"`
	Content     string     `db:"content" json:"content"`
	MsgType     string     `db:"msg_type" json:"msg_type"`
	FileRef     *string    `db:"file_ref" json:"file_ref,omitempty"`
	ReplyToID   *int       `db:"reply_to_id" json:"reply_to_id,omitempty"`
	ClientMsgID string     `db:"client_msg_id" json:"client_msg_id,omitempty"`
	IsEdited    bool       `db:"is_edited" json:"is_edited"`
	IsDeleted   bool       `db:"is_deleted" json:"is_deleted"`
	IsPinned    bool       `db:"is_pinned" json:"is_pinned"`
	PinnedAt    *time.Time `db:"pinned_at" json:"pinned_at,omitempty"`
	PinnedBy    *int       `db:"pinned_by" json:"pinned_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// MessagePage is one cursor-paginated slice of a room's history, oldest first.
type MessagePage struct {
	Messages   []Message `json:"messages"`
	HasMore    bool      `json:"has_more"`
	NextCursor int       `json:"next_cursor,omitempty"`
}
