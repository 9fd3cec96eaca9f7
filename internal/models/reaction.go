package models

import "time"

// Reaction is a single user's emoji reaction on a message.
// UNIQUE(message_id, user_id, emoji) gives toggle semantics.
type Reaction struct {
	MessageID int       `db:"message_id" json:"message_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Emoji     string    `db:"emoji" json:"emoji"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReactionMap groups reactor user ids by emoji. Emojis with no reactors are
// absent from the map.
type ReactionMap map[string][]int

// ReadReceipt records that a user has read a message. One row per
// (message, user); repeated reads update ReadAt.
type ReadReceipt struct {
	MessageID int       `db:"message_id" json:"message_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	ReadAt    time.Time `db:"read_at" json:"read_at"`
}
