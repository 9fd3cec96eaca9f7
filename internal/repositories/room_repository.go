package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"room-chat-service/internal/models"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrNotParticipant = errors.New("user is not a room participant")
	ErrNotAdmin       = errors.New("user is not a room admin")
)

// RoomRepository abstracts room and membership persistence.
type RoomRepository interface {
	GetRoom(ctx context.Context, roomID int) (models.Room, error)
	ListRoomsForUser(ctx context.Context, userID int) ([]models.Room, error)
	IsParticipant(ctx context.Context, roomID int, userID int) (bool, error)
	IsAdmin(ctx context.Context, roomID int, userID int) (bool, error)
	ListParticipants(ctx context.Context, roomID int) ([]models.RoomParticipant, error)
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID int) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT id, name, created_at, updated_at FROM rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// ListRoomsForUser returns the user's rooms ordered by latest activity.
func (r *RoomRepo) ListRoomsForUser(ctx context.Context, userID int) ([]models.Room, error) {
	query := `SELECT rm.id, rm.name, rm.created_at, rm.updated_at FROM rooms rm
        JOIN room_participants rp ON rp.room_id = rm.id
        WHERE rp.user_id=$1
        ORDER BY rm.updated_at DESC`
	var rooms []models.Room
	err := r.db.SelectContext(ctx, &rooms, query, userID)
	return rooms, err
}

// IsParticipant checks whether a user belongs to the room.
func (r *RoomRepo) IsParticipant(ctx context.Context, roomID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM room_participants WHERE room_id=$1 AND user_id=$2)`, roomID, userID)
	return exists, err
}

// IsAdmin checks whether a user is an admin (or the owner) of the room.
func (r *RoomRepo) IsAdmin(ctx context.Context, roomID int, userID int) (bool, error) {
	var isAdmin bool
	err := r.db.GetContext(ctx, &isAdmin, `SELECT EXISTS(SELECT 1 FROM room_participants WHERE room_id=$1 AND user_id=$2 AND (role='admin' OR is_owner))`, roomID, userID)
	return isAdmin, err
}

// ListParticipants returns all members of a room.
func (r *RoomRepo) ListParticipants(ctx context.Context, roomID int) ([]models.RoomParticipant, error) {
	var participants []models.RoomParticipant
	err := r.db.SelectContext(ctx, &participants, `SELECT room_id, user_id, role, is_owner, joined_at FROM room_participants WHERE room_id=$1`, roomID)
	return participants, err
}
