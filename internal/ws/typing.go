package ws

import (
	"sync"
	"time"
)

type typingKey struct {
	roomID int
	userID int
}

// TypingTracker owns the per-(room,user) typing timers. Each keystroke frame
// resets the user's timer; expiry, an explicit stop, or leaving the room
// clears it. Timer handles are always stopped explicitly, never abandoned.
type TypingTracker struct {
	mu      sync.Mutex
	timeout time.Duration
	timers  map[typingKey]*time.Timer
	expire  func(roomID, userID int, userName string)
}

// NewTypingTracker builds a tracker. expire runs when a user's typing state
// times out without an explicit stop.
func NewTypingTracker(timeout time.Duration, expire func(roomID, userID int, userName string)) *TypingTracker {
	return &TypingTracker{
		timeout: timeout,
		timers:  make(map[typingKey]*time.Timer),
		expire:  expire,
	}
}

// Touch marks the user as typing, resetting the auto-clear timer. It reports
// whether the user was not already typing.
func (t *TypingTracker) Touch(roomID, userID int, userName string) bool {
	key := typingKey{roomID: roomID, userID: userID}

	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[key]; ok {
		timer.Reset(t.timeout)
		return false
	}
	t.timers[key] = time.AfterFunc(t.timeout, func() {
		t.mu.Lock()
		delete(t.timers, key)
		t.mu.Unlock()
		if t.expire != nil {
			t.expire(roomID, userID, userName)
		}
	})
	return true
}

// Stop clears the user's typing state and reports whether it was active.
func (t *TypingTracker) Stop(roomID, userID int) bool {
	key := typingKey{roomID: roomID, userID: userID}

	t.mu.Lock()
	defer t.mu.Unlock()
	timer, ok := t.timers[key]
	if !ok {
		return false
	}
	timer.Stop()
	delete(t.timers, key)
	return true
}

// Active reports whether the user currently counts as typing in the room.
func (t *TypingTracker) Active(roomID, userID int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[typingKey{roomID: roomID, userID: userID}]
	return ok
}

// Close stops every outstanding timer.
func (t *TypingTracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
}
