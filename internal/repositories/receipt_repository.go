package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// uniqueViolation is the postgres error code for unique-constraint conflicts.
const uniqueViolation = pq.ErrorCode("23505")

// receiptRetryBackoff paces the update retries after a lost insert race.
var receiptRetryBackoff = []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}

// execer is the slice of sqlx.DB the receipt upsert needs.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ReceiptRepository records read receipts.
type ReceiptRepository interface {
	MarkAsRead(ctx context.Context, messageID int, userID int) error
	RoomIDForReadableMessage(ctx context.Context, messageID int, userID int) (int, error)
}

// ReceiptRepo is a sqlx implementation of ReceiptRepository.
type ReceiptRepo struct {
	db *sqlx.DB
}

// NewReceiptRepo constructs a ReceiptRepo.
func NewReceiptRepo(db *sqlx.DB) *ReceiptRepo {
	return &ReceiptRepo{db: db}
}

// RoomIDForReadableMessage resolves the room of a message the user may mark as
// read. Existence and membership are checked in one query so the answer cannot
// go stale between a check and the following write.
func (r *ReceiptRepo) RoomIDForReadableMessage(ctx context.Context, messageID int, userID int) (int, error) {
	var roomID int
	err := r.db.GetContext(ctx, &roomID,
		`SELECT m.room_id FROM messages m
         JOIN room_participants rp ON rp.room_id = m.room_id AND rp.user_id = $2
         WHERE m.id = $1`,
		messageID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotParticipant
	}
	return roomID, err
}

// MarkAsRead upserts the (message,user) receipt, refreshing read_at on repeat
// calls.
func (r *ReceiptRepo) MarkAsRead(ctx context.Context, messageID int, userID int) error {
	return upsertReceipt(ctx, r.db, messageID, userID, receiptRetryBackoff)
}

// upsertReceipt tries the update path first, inserts when no row exists, and
// converges concurrent duplicates racing on the primary key by retrying the
// update with short backoff instead of surfacing the conflict. This is the one
// compensating-retry path in the system; keep it.
func upsertReceipt(ctx context.Context, db execer, messageID int, userID int, backoff []time.Duration) error {
	updated, err := updateReceipt(ctx, db, messageID, userID)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO read_receipts (message_id, user_id, read_at) VALUES ($1, $2, NOW())`,
		messageID, userID)
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}

	// A concurrent call inserted the row first; the update must now succeed.
	for _, delay := range backoff {
		time.Sleep(delay)
		updated, retryErr := updateReceipt(ctx, db, messageID, userID)
		if retryErr != nil {
			return retryErr
		}
		if updated {
			return nil
		}
	}
	return err
}

func updateReceipt(ctx context.Context, db execer, messageID int, userID int) (bool, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE read_receipts SET read_at = NOW() WHERE message_id=$1 AND user_id=$2`,
		messageID, userID)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
