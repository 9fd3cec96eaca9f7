package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrPinLimitReached = errors.New("pinned message limit reached for room")

// PinRepository manages the pinned state of messages.
type PinRepository interface {
	PinMessage(ctx context.Context, messageID int, roomID int, actorID int, maxPinned int) (time.Time, error)
	UnpinMessage(ctx context.Context, messageID int, roomID int) error
}

// PinRepo is a sqlx implementation of PinRepository.
type PinRepo struct {
	db *sqlx.DB
}

// NewPinRepo constructs a PinRepo.
func NewPinRepo(db *sqlx.DB) *PinRepo {
	return &PinRepo{db: db}
}

// PinMessage marks a message pinned, enforcing the per-room bound. The room
// row is locked for the duration of the count so two concurrent pins cannot
// both squeeze under the limit.
func (r *PinRepo) PinMessage(ctx context.Context, messageID int, roomID int, actorID int, maxPinned int) (time.Time, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return time.Time{}, err
	}
	defer tx.Rollback()

	var lockedRoom int
	if err := tx.GetContext(ctx, &lockedRoom, `SELECT id FROM rooms WHERE id=$1 FOR UPDATE`, roomID); err != nil {
		return time.Time{}, err
	}

	var pinnedCount int
	err = tx.GetContext(ctx, &pinnedCount,
		`SELECT COUNT(*) FROM messages WHERE room_id=$1 AND is_pinned = TRUE AND id <> $2`,
		roomID, messageID)
	if err != nil {
		return time.Time{}, err
	}
	if pinnedCount >= maxPinned {
		return time.Time{}, ErrPinLimitReached
	}

	var pinnedAt time.Time
	err = tx.QueryRowxContext(ctx,
		`UPDATE messages SET is_pinned=TRUE, pinned_at=NOW(), pinned_by=$1
         WHERE id=$2 AND room_id=$3 AND is_deleted = FALSE
         RETURNING pinned_at`,
		actorID, messageID, roomID).Scan(&pinnedAt)
	if err != nil {
		return time.Time{}, ErrMessageNotFound
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, err
	}
	return pinnedAt, nil
}

// UnpinMessage clears the pinned state. Unpinning never fails on the count
// bound and is idempotent for rows that were never pinned; only a missing
// (message, room) row is not found.
func (r *PinRepo) UnpinMessage(ctx context.Context, messageID int, roomID int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET is_pinned=FALSE, pinned_at=NULL, pinned_by=NULL WHERE id=$1 AND room_id=$2`,
		messageID, roomID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
