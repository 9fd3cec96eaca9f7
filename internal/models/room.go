package models

import "time"

// Participant roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Room is a chat room. UpdatedAt is the activity timestamp bumped on every send.
type Room struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RoomParticipant is a user's membership in a room.
type RoomParticipant struct {
	RoomID   int       `db:"room_id" json:"room_id"`
	UserID   int       `db:"user_id" json:"user_id"`
	Role     string    `db:"role" json:"role"`
	IsOwner  bool      `db:"is_owner" json:"is_owner"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}
