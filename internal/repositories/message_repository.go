package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"room-chat-service/internal/models"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrMessageDeleted  = errors.New("message is deleted")
	ErrNotSender       = errors.New("user is not the message sender")
	ErrReplyWrongRoom  = errors.New("reply target is not in this room")
)

const messageColumns = `id, room_id, sender_id, content, msg_type, file_ref, reply_to_id, client_msg_id,
    is_edited, is_deleted, is_pinned, pinned_at, pinned_by, created_at, updated_at`

// CreateMessageParams carries the validated inputs for a send.
type CreateMessageParams struct {
	RoomID      int
	SenderID    int
	Content     string
	MsgType     string
	FileRef     *string
	ReplyToID   *int
	ClientMsgID string
}

// MessageRepository defines interactions for room messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, params CreateMessageParams) (models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	ListMessages(ctx context.Context, roomID int, limit int, cursor int) (models.MessagePage, error)
	EditMessage(ctx context.Context, messageID int, senderID int, content string) (models.Message, error)
	SoftDeleteMessage(ctx context.Context, messageID int, senderID int) error
	SearchMessages(ctx context.Context, roomID int, query string, limit int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage inserts a message and bumps the room's activity timestamp in
// one transaction. Readers must never observe the new message with a stale
// room ordering timestamp, so the two writes commit together.
func (r *MessageRepo) CreateMessage(ctx context.Context, params CreateMessageParams) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	if params.ReplyToID != nil {
		var sameRoom bool
		err := tx.GetContext(ctx, &sameRoom,
			`SELECT EXISTS(SELECT 1 FROM messages WHERE id=$1 AND room_id=$2 AND is_deleted = FALSE)`,
			*params.ReplyToID, params.RoomID)
		if err != nil {
			return models.Message{}, err
		}
		if !sameRoom {
			return models.Message{}, ErrReplyWrongRoom
		}
	}

	var msg models.Message
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (room_id, sender_id, content, msg_type, file_ref, reply_to_id, client_msg_id)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING `+messageColumns,
		params.RoomID, params.SenderID, params.Content, params.MsgType, params.FileRef, params.ReplyToID, params.ClientMsgID).
		StructScan(&msg)
	if err != nil {
		return models.Message{}, err
	}

	res, err := tx.ExecContext(ctx, `UPDATE rooms SET updated_at = NOW() WHERE id=$1`, params.RoomID)
	if err != nil {
		return models.Message{}, err
	}
	if count, err := res.RowsAffected(); err != nil {
		return models.Message{}, err
	} else if count == 0 {
		return models.Message{}, ErrRoomNotFound
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListMessages returns one page of non-deleted room messages. The cursor is the
// id of the last message of the previous page; pages walk backwards in time,
// so already-fetched pages stay stable under concurrent inserts. The result is
// reversed to oldest-first for display.
func (r *MessageRepo) ListMessages(ctx context.Context, roomID int, limit int, cursor int) (models.MessagePage, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
        WHERE room_id=$1 AND is_deleted = FALSE
        AND ($2 = 0 OR id < $2)
        ORDER BY created_at DESC, id DESC
        LIMIT $3`
	var msgs []models.Message
	// Fetch one extra row to learn whether an older page exists.
	if err := r.db.SelectContext(ctx, &msgs, query, roomID, cursor, limit+1); err != nil {
		return models.MessagePage{}, err
	}
	return buildMessagePage(msgs, limit), nil
}

// buildMessagePage shapes a newest-first overfetch of up to limit+1 rows into
// the page consumers see: trimmed to limit, HasMore from the extra row, the
// cursor anchored on the oldest returned id, then reversed to oldest-first.
func buildMessagePage(msgs []models.Message, limit int) models.MessagePage {
	page := models.MessagePage{}
	if len(msgs) > limit {
		page.HasMore = true
		msgs = msgs[:limit]
	}
	if page.HasMore && len(msgs) > 0 {
		page.NextCursor = msgs[len(msgs)-1].ID
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	page.Messages = msgs
	return page
}

// EditMessage updates content for the sender and marks the message edited.
// Tombstoned messages are never editable.
func (r *MessageRepo) EditMessage(ctx context.Context, messageID int, senderID int, content string) (models.Message, error) {
	msg, err := r.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.SenderID != senderID {
		return models.Message{}, ErrNotSender
	}
	if msg.IsDeleted {
		return models.Message{}, ErrMessageDeleted
	}

	err = r.db.QueryRowxContext(ctx,
		`UPDATE messages SET content=$1, is_edited=TRUE, updated_at=NOW()
         WHERE id=$2 AND is_deleted = FALSE
         RETURNING `+messageColumns,
		content, messageID).
		StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		// Deleted between the read and the update.
		return models.Message{}, ErrMessageDeleted
	}
	return msg, err
}

// SoftDeleteMessage tombstones a message. The row is kept so replies and
// receipts stay resolvable; content is replaced for display.
func (r *MessageRepo) SoftDeleteMessage(ctx context.Context, messageID int, senderID int) error {
	msg, err := r.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != senderID {
		return ErrNotSender
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE messages SET is_deleted=TRUE, is_pinned=FALSE, content=$1, updated_at=NOW() WHERE id=$2`,
		models.TombstoneContent, messageID)
	return err
}

// SearchMessages ranks trigram-similar matches and falls back to a plain
// substring scan when similarity finds nothing, so exact substrings never
// return an empty result.
func (r *MessageRepo) SearchMessages(ctx context.Context, roomID int, query string, limit int) ([]models.Message, error) {
	ranked := `SELECT ` + messageColumns + ` FROM messages
        WHERE room_id=$1 AND is_deleted = FALSE AND similarity(content, $2) > 0.1
        ORDER BY similarity(content, $2) DESC, created_at DESC
        LIMIT $3`
	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, ranked, roomID, query, limit); err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if len(msgs) > 0 {
		return msgs, nil
	}

	fallback := `SELECT ` + messageColumns + ` FROM messages
        WHERE room_id=$1 AND is_deleted = FALSE AND content ILIKE '%' || $2 || '%'
        ORDER BY created_at DESC
        LIMIT $3`
	if err := r.db.SelectContext(ctx, &msgs, fallback, roomID, query, limit); err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	return msgs, nil
}
