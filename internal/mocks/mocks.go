package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"room-chat-service/internal/models"
	"room-chat-service/internal/repositories"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID int) (models.Room, error) {
	args := m.Called(ctx, roomID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) ListRoomsForUser(ctx context.Context, userID int) ([]models.Room, error) {
	args := m.Called(ctx, userID)
	var rooms []models.Room
	if val := args.Get(0); val != nil {
		rooms = val.([]models.Room)
	}
	return rooms, args.Error(1)
}

func (m *RoomRepositoryMock) IsParticipant(ctx context.Context, roomID int, userID int) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepositoryMock) IsAdmin(ctx context.Context, roomID int, userID int) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepositoryMock) ListParticipants(ctx context.Context, roomID int) ([]models.RoomParticipant, error) {
	args := m.Called(ctx, roomID)
	var participants []models.RoomParticipant
	if val := args.Get(0); val != nil {
		participants = val.([]models.RoomParticipant)
	}
	return participants, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, params repositories.CreateMessageParams) (models.Message, error) {
	args := m.Called(ctx, params)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, roomID int, limit int, cursor int) (models.MessagePage, error) {
	args := m.Called(ctx, roomID, limit, cursor)
	var page models.MessagePage
	if val := args.Get(0); val != nil {
		page = val.(models.MessagePage)
	}
	return page, args.Error(1)
}

func (m *MessageRepositoryMock) EditMessage(ctx context.Context, messageID int, senderID int, content string) (models.Message, error) {
	args := m.Called(ctx, messageID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDeleteMessage(ctx context.Context, messageID int, senderID int) error {
	args := m.Called(ctx, messageID, senderID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) SearchMessages(ctx context.Context, roomID int, query string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, roomID, query, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type ReactionRepositoryMock struct {
	mock.Mock
}

func (m *ReactionRepositoryMock) ToggleReaction(ctx context.Context, messageID int, userID int, emoji string) (string, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	return args.String(0), args.Error(1)
}

func (m *ReactionRepositoryMock) GetReactions(ctx context.Context, messageID int) (models.ReactionMap, error) {
	args := m.Called(ctx, messageID)
	var reactions models.ReactionMap
	if val := args.Get(0); val != nil {
		reactions = val.(models.ReactionMap)
	}
	return reactions, args.Error(1)
}

type ReceiptRepositoryMock struct {
	mock.Mock
}

func (m *ReceiptRepositoryMock) MarkAsRead(ctx context.Context, messageID int, userID int) error {
	args := m.Called(ctx, messageID, userID)
	return args.Error(0)
}

func (m *ReceiptRepositoryMock) RoomIDForReadableMessage(ctx context.Context, messageID int, userID int) (int, error) {
	args := m.Called(ctx, messageID, userID)
	return args.Int(0), args.Error(1)
}

type PinRepositoryMock struct {
	mock.Mock
}

func (m *PinRepositoryMock) PinMessage(ctx context.Context, messageID int, roomID int, actorID int, maxPinned int) (time.Time, error) {
	args := m.Called(ctx, messageID, roomID, actorID, maxPinned)
	var pinnedAt time.Time
	if val := args.Get(0); val != nil {
		pinnedAt = val.(time.Time)
	}
	return pinnedAt, args.Error(1)
}

func (m *PinRepositoryMock) UnpinMessage(ctx context.Context, messageID int, roomID int) error {
	args := m.Called(ctx, messageID, roomID)
	return args.Error(0)
}

var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.ReactionRepository = (*ReactionRepositoryMock)(nil)
var _ repositories.ReceiptRepository = (*ReceiptRepositoryMock)(nil)
var _ repositories.PinRepository = (*PinRepositoryMock)(nil)
