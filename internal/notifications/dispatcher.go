package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"room-chat-service/internal/models"
	"room-chat-service/internal/observability"
	"room-chat-service/internal/rabbitmq"
	"room-chat-service/internal/repositories"
)

// PushPayload is the provider-agnostic job handed to the push transport.
type PushPayload struct {
	RecipientID int       `json:"recipient_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	URL         string    `json:"url"`
	Icon        string    `json:"icon"`
	RoomID      int       `json:"room_id"`
	MessageID   int       `json:"message_id"`
	SentAt      time.Time `json:"sent_at"`
}

// Dispatcher fans committed messages out to the offline-push queue.
type Dispatcher struct {
	roomRepo  repositories.RoomRepository
	publisher rabbitmq.Publisher
	timeout   time.Duration
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(roomRepo repositories.RoomRepository, publisher rabbitmq.Publisher) *Dispatcher {
	return &Dispatcher{roomRepo: roomRepo, publisher: publisher, timeout: 5 * time.Second}
}

// DispatchMessage enqueues one push job per recipient (room participants
// minus the sender). It is best-effort: every failure is logged and swallowed,
// and one recipient's failure never blocks the rest. Callers run this after
// commit, off the request path.
func (d *Dispatcher) DispatchMessage(msg models.Message, roomName string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	participants, err := d.roomRepo.ListParticipants(ctx, msg.RoomID)
	if err != nil {
		log.Printf("notification dispatch: load participants for room %d: %v", msg.RoomID, err)
		return
	}

	payload := PushPayload{
		Title:     roomName,
		Body:      truncate(msg.Content, 120),
		URL:       fmt.Sprintf("/rooms/%d", msg.RoomID),
		Icon:      "/icons/chat.png",
		RoomID:    msg.RoomID,
		MessageID: msg.ID,
		SentAt:    time.Now().UTC(),
	}
	routingKey := fmt.Sprintf("push.notifications.room.%d", msg.RoomID)

	for _, participant := range participants {
		if participant.UserID == msg.SenderID {
			continue
		}
		job := payload
		job.RecipientID = participant.UserID
		if err := d.publisher.Publish(ctx, routingKey, job); err != nil {
			log.Printf("notification dispatch: enqueue for user %d failed: %v", participant.UserID, err)
			continue
		}
		observability.IncNotificationEnqueued()
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
