package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"room-chat-service/internal/models"
)

// Toggle outcomes.
const (
	ReactionAdded   = "added"
	ReactionRemoved = "removed"
)

// ReactionRepository manages emoji reactions.
type ReactionRepository interface {
	ToggleReaction(ctx context.Context, messageID int, userID int, emoji string) (string, error)
	GetReactions(ctx context.Context, messageID int) (models.ReactionMap, error)
}

// ReactionRepo is a sqlx implementation of ReactionRepository.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs a ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// ToggleReaction removes the (message,user,emoji) row when present, inserts it
// otherwise. Two racing toggles for the same triple are resolved by the
// primary key: a duplicate insert collapses into "added" without surfacing the
// conflict.
func (r *ReactionRepo) ToggleReaction(ctx context.Context, messageID int, userID int, emoji string) (string, error) {
	var deleted int
	err := r.db.GetContext(ctx, &deleted,
		`DELETE FROM reactions WHERE message_id=$1 AND user_id=$2 AND emoji=$3 RETURNING 1`,
		messageID, userID, emoji)
	if err == nil {
		return ReactionRemoved, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reactions (message_id, user_id, emoji) VALUES ($1, $2, $3)`,
		messageID, userID, emoji)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			// Lost the race against an identical toggle; the row exists.
			return ReactionAdded, nil
		}
		return "", err
	}
	return ReactionAdded, nil
}

// GetReactions returns reactor ids grouped by emoji. Emojis whose last
// reactor removed theirs simply drop out of the map.
func (r *ReactionRepo) GetReactions(ctx context.Context, messageID int) (models.ReactionMap, error) {
	var rows []models.Reaction
	err := r.db.SelectContext(ctx, &rows,
		`SELECT message_id, user_id, emoji, created_at FROM reactions WHERE message_id=$1 ORDER BY created_at ASC`,
		messageID)
	if err != nil {
		return nil, err
	}

	grouped := models.ReactionMap{}
	for _, reaction := range rows {
		grouped[reaction.Emoji] = append(grouped[reaction.Emoji], reaction.UserID)
	}
	return grouped, nil
}
