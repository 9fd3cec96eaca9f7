package cache

import "fmt"

// Key builders shared by handlers so invalidation prefixes line up with the
// keys reads populate.

func RoomMessagesKey(roomID, cursor, limit int) string {
	return fmt.Sprintf("room:%d:messages:%d:%d", roomID, cursor, limit)
}

func RoomMessagesPrefix(roomID int) string {
	return fmt.Sprintf("room:%d:messages:", roomID)
}

func RoomMetaKey(roomID int) string {
	return fmt.Sprintf("room:%d:meta", roomID)
}

func MessageReactionsKey(messageID int) string {
	return fmt.Sprintf("message:%d:reactions", messageID)
}
