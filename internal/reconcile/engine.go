package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"room-chat-service/internal/models"
)

// Entry status as rendered by a consumer.
const (
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// matchWindow bounds the heuristic fallback match between an optimistic entry
// and an authoritative copy that carries no client token.
const matchWindow = 5 * time.Second

var ErrNoSuchPending = errors.New("no pending entry with that temp id")

// Sender submits a message to the backend. The client token travels with the
// request and is echoed in the broadcast payload.
type Sender interface {
	Send(ctx context.Context, roomID int, content, clientMsgID string) (models.Message, error)
}

// Entry is one row of the local room view: either an authoritative message or
// a speculative optimistic one awaiting its server copy.
type Entry struct {
	TempID      string
	ClientMsgID string
	Content     string
	SenderID    int
	CreatedAt   time.Time
	Status      string
	Message     *models.Message
}

// Engine maintains a client's ordered view of one room. Gateway events are
// applied in arrival order; a per-message-id guard absorbs the at-least-once
// duplicates of reconnect replays. Optimistic sends reconcile against their
// authoritative copies by exact client token, falling back to the
// content/sender/time-window heuristic only for tokenless payloads.
type Engine struct {
	mu      sync.Mutex
	roomID  int
	selfID  int
	sender  Sender
	ack     func(messageID int)
	entries []*Entry
	pending map[string]*Entry
	seen    map[int]struct{}
}

// NewEngine builds an engine for one (room, user) pair. ack, when non-nil, is
// invoked for messages from other participants so the gateway can relay a
// delivery acknowledgment.
func NewEngine(roomID, selfID int, sender Sender, ack func(messageID int)) *Engine {
	return &Engine{
		roomID:  roomID,
		selfID:  selfID,
		sender:  sender,
		ack:     ack,
		pending: make(map[string]*Entry),
		seen:    make(map[int]struct{}),
	}
}

// Submit creates an optimistic entry, renders it immediately, and sends it.
// On failure the entry stays in the view as failed, retryable via Retry.
func (e *Engine) Submit(ctx context.Context, content string) (string, error) {
	entry := &Entry{
		TempID:      uuid.NewString(),
		ClientMsgID: uuid.NewString(),
		Content:     content,
		SenderID:    e.selfID,
		CreatedAt:   time.Now(),
		Status:      StatusSending,
	}

	e.mu.Lock()
	e.entries = append(e.entries, entry)
	e.pending[entry.ClientMsgID] = entry
	e.mu.Unlock()

	return entry.TempID, e.send(ctx, entry)
}

// Retry resubmits a failed entry with the same content and the same client
// token, so a send that actually reached the server cannot duplicate.
func (e *Engine) Retry(ctx context.Context, tempID string) error {
	e.mu.Lock()
	var entry *Entry
	for _, candidate := range e.entries {
		if candidate.TempID == tempID && candidate.Status == StatusFailed {
			entry = candidate
			break
		}
	}
	if entry == nil {
		e.mu.Unlock()
		return ErrNoSuchPending
	}
	entry.Status = StatusSending
	e.pending[entry.ClientMsgID] = entry
	e.mu.Unlock()

	return e.send(ctx, entry)
}

func (e *Engine) send(ctx context.Context, entry *Entry) error {
	msg, err := e.sender.Send(ctx, e.roomID, entry.Content, entry.ClientMsgID)
	if err != nil {
		e.mu.Lock()
		if entry.Status == StatusSending {
			// The entry stays in pending keyed by its token: a send that
			// errored client-side may still have committed server-side, and
			// the committed copy arrives later through the gateway.
			entry.Status = StatusFailed
		}
		e.mu.Unlock()
		return err
	}

	// The gateway usually delivers our own copy first; applying the response
	// here as well is safe behind the id guard.
	e.Apply(msg)
	return nil
}

// Discard removes a failed optimistic entry from the view.
func (e *Engine) Discard(tempID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, entry := range e.entries {
		if entry.TempID == tempID && entry.Status == StatusFailed {
			e.entries = append(e.entries[:i], e.entries[i+1:]...)
			delete(e.pending, entry.ClientMsgID)
			return
		}
	}
}

// Apply folds one authoritative message into the view. It reports whether the
// event changed anything; duplicate deliveries of an already-seen id are
// no-ops.
func (e *Engine) Apply(msg models.Message) bool {
	if msg.RoomID != e.roomID {
		return false
	}

	e.mu.Lock()
	if _, dup := e.seen[msg.ID]; dup {
		e.mu.Unlock()
		return false
	}
	e.seen[msg.ID] = struct{}{}

	if msg.SenderID == e.selfID {
		if entry := e.matchPending(msg); entry != nil {
			// Replace in place so consumer identity (scroll position) holds.
			entry.Message = &msg
			entry.Status = StatusSent
			delete(e.pending, entry.ClientMsgID)
			e.mu.Unlock()
			return true
		}
		// No pending match: a genuinely new message, e.g. sent from another
		// session of the same user.
		e.entries = append(e.entries, authoritativeEntry(msg))
		e.mu.Unlock()
		return true
	}

	e.entries = append(e.entries, authoritativeEntry(msg))
	ack := e.ack
	e.mu.Unlock()

	if ack != nil {
		ack(msg.ID)
	}
	return true
}

func (e *Engine) matchPending(msg models.Message) *Entry {
	// Exact token match covers failed entries too: a timed-out send whose
	// write actually committed reconciles when its echo arrives.
	if msg.ClientMsgID != "" {
		return e.pending[msg.ClientMsgID]
	}
	// Tokenless fallback. Heuristic: two identical messages inside the window
	// can mis-reconcile, which is why senders attach tokens.
	for _, entry := range e.pending {
		if entry.Status != StatusSending {
			continue
		}
		delta := msg.CreatedAt.Sub(entry.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if entry.Content == msg.Content && delta <= matchWindow {
			return entry
		}
	}
	return nil
}

func authoritativeEntry(msg models.Message) *Entry {
	return &Entry{
		Content:   msg.Content,
		SenderID:  msg.SenderID,
		CreatedAt: msg.CreatedAt,
		Status:    StatusSent,
		Message:   &msg,
	}
}

// Entries returns a snapshot of the ordered view.
func (e *Engine) Entries() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	snapshot := make([]Entry, 0, len(e.entries))
	for _, entry := range e.entries {
		snapshot = append(snapshot, *entry)
	}
	return snapshot
}

// Messages returns the authoritative messages currently in the view, in order.
func (e *Engine) Messages() []models.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	msgs := make([]models.Message, 0, len(e.entries))
	for _, entry := range e.entries {
		if entry.Message != nil {
			msgs = append(msgs, *entry.Message)
		}
	}
	return msgs
}
