package notifications

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"room-chat-service/internal/mocks"
	"room-chat-service/internal/models"
)

func TestDispatchMessageSkipsSender(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	publisher := new(mocks.PublisherMock)
	dispatcher := NewDispatcher(roomRepo, publisher)

	roomRepo.On("ListParticipants", mock.Anything, 5).Return([]models.RoomParticipant{
		{RoomID: 5, UserID: 1},
		{RoomID: 5, UserID: 2},
		{RoomID: 5, UserID: 3},
	}, nil).Once()
	publisher.On("Publish", mock.Anything, "push.notifications.room.5", mock.MatchedBy(func(p PushPayload) bool {
		return p.RecipientID == 2
	})).Return(nil).Once()
	publisher.On("Publish", mock.Anything, "push.notifications.room.5", mock.MatchedBy(func(p PushPayload) bool {
		return p.RecipientID == 3
	})).Return(nil).Once()

	dispatcher.DispatchMessage(models.Message{ID: 7, RoomID: 5, SenderID: 1, Content: "hi"}, "general")

	roomRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestDispatchMessageIsolatesPerRecipientFailures(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	publisher := new(mocks.PublisherMock)
	dispatcher := NewDispatcher(roomRepo, publisher)

	roomRepo.On("ListParticipants", mock.Anything, 5).Return([]models.RoomParticipant{
		{RoomID: 5, UserID: 2},
		{RoomID: 5, UserID: 3},
	}, nil).Once()
	publisher.On("Publish", mock.Anything, "push.notifications.room.5", mock.MatchedBy(func(p PushPayload) bool {
		return p.RecipientID == 2
	})).Return(assert.AnError).Once()
	// A failed enqueue for one recipient never blocks the next.
	publisher.On("Publish", mock.Anything, "push.notifications.room.5", mock.MatchedBy(func(p PushPayload) bool {
		return p.RecipientID == 3
	})).Return(nil).Once()

	dispatcher.DispatchMessage(models.Message{ID: 7, RoomID: 5, SenderID: 1, Content: "hi"}, "general")

	publisher.AssertExpectations(t)
}

func TestDispatchMessageParticipantLoadError(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	publisher := new(mocks.PublisherMock)
	dispatcher := NewDispatcher(roomRepo, publisher)

	roomRepo.On("ListParticipants", mock.Anything, 5).Return(([]models.RoomParticipant)(nil), assert.AnError).Once()

	dispatcher.DispatchMessage(models.Message{ID: 7, RoomID: 5, SenderID: 1, Content: "hi"}, "general")

	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	roomRepo.AssertExpectations(t)
}

func TestDispatchMessageTruncatesBody(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	publisher := new(mocks.PublisherMock)
	dispatcher := NewDispatcher(roomRepo, publisher)

	roomRepo.On("ListParticipants", mock.Anything, 5).Return([]models.RoomParticipant{
		{RoomID: 5, UserID: 2},
	}, nil).Once()
	publisher.On("Publish", mock.Anything, "push.notifications.room.5", mock.MatchedBy(func(p PushPayload) bool {
		return len([]rune(p.Body)) <= 120
	})).Return(nil).Once()

	long := strings.Repeat("a", 500)
	dispatcher.DispatchMessage(models.Message{ID: 7, RoomID: 5, SenderID: 1, Content: long}, "general")

	publisher.AssertExpectations(t)
}
