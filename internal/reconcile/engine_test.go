package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-chat-service/internal/models"
)

type fakeSender struct {
	send func(ctx context.Context, roomID int, content, clientMsgID string) (models.Message, error)
}

func (f *fakeSender) Send(ctx context.Context, roomID int, content, clientMsgID string) (models.Message, error) {
	return f.send(ctx, roomID, content, clientMsgID)
}

func serverMessage(id int, content, clientMsgID string) models.Message {
	return models.Message{
		ID:          id,
		RoomID:      5,
		SenderID:    1,
		Content:     content,
		ClientMsgID: clientMsgID,
		CreatedAt:   time.Now(),
	}
}

func TestSubmitReconcilesWithGatewayEcho(t *testing.T) {
	var sent models.Message
	sender := &fakeSender{send: func(_ context.Context, _ int, content, clientMsgID string) (models.Message, error) {
		sent = serverMessage(42, content, clientMsgID)
		return sent, nil
	}}
	engine := NewEngine(5, 1, sender, nil)

	_, err := engine.Submit(context.Background(), "hello")
	require.NoError(t, err)

	// The gateway delivers the sender's own copy as well; the id guard makes
	// it a no-op instead of a duplicate row.
	assert.False(t, engine.Apply(sent))

	entries := engine.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, StatusSent, entries[0].Status)
	require.NotNil(t, entries[0].Message)
	assert.Equal(t, 42, entries[0].Message.ID)
	assert.Equal(t, []models.Message{sent}, engine.Messages())
}

func TestGatewayEchoBeforeResponse(t *testing.T) {
	var engine *Engine
	sender := &fakeSender{send: func(_ context.Context, _ int, content, clientMsgID string) (models.Message, error) {
		msg := serverMessage(42, content, clientMsgID)
		// Socket delivery wins the race against the HTTP response.
		require.True(t, engine.Apply(msg))
		return msg, nil
	}}
	engine = NewEngine(5, 1, sender, nil)

	_, err := engine.Submit(context.Background(), "hello")
	require.NoError(t, err)

	entries := engine.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, StatusSent, entries[0].Status)
}

func TestTokenlessEchoMatchedByHeuristic(t *testing.T) {
	var engine *Engine
	sender := &fakeSender{send: func(_ context.Context, _ int, content, _ string) (models.Message, error) {
		msg := serverMessage(42, content, "")
		require.True(t, engine.Apply(msg))
		return msg, nil
	}}
	engine = NewEngine(5, 1, sender, nil)

	_, err := engine.Submit(context.Background(), "hello")
	require.NoError(t, err)

	entries := engine.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, StatusSent, entries[0].Status)
}

func TestApplyFromOtherSenderAcksDelivery(t *testing.T) {
	var acked []int
	engine := NewEngine(5, 1, &fakeSender{}, func(messageID int) {
		acked = append(acked, messageID)
	})

	msg := models.Message{ID: 9, RoomID: 5, SenderID: 2, Content: "hey", CreatedAt: time.Now()}
	assert.True(t, engine.Apply(msg))
	assert.False(t, engine.Apply(msg))

	assert.Equal(t, []int{9}, acked)
	require.Len(t, engine.Entries(), 1)
}

func TestApplyWrongRoomIgnored(t *testing.T) {
	engine := NewEngine(5, 1, &fakeSender{}, nil)

	assert.False(t, engine.Apply(models.Message{ID: 9, RoomID: 6, SenderID: 2}))
	assert.Empty(t, engine.Entries())
}

func TestRetryAfterFailureKeepsToken(t *testing.T) {
	var tokens []string
	fail := true
	sender := &fakeSender{send: func(_ context.Context, _ int, content, clientMsgID string) (models.Message, error) {
		tokens = append(tokens, clientMsgID)
		if fail {
			return models.Message{}, assert.AnError
		}
		return serverMessage(42, content, clientMsgID), nil
	}}
	engine := NewEngine(5, 1, sender, nil)

	tempID, err := engine.Submit(context.Background(), "hello")
	require.Error(t, err)

	entries := engine.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, StatusFailed, entries[0].Status)

	fail = false
	require.NoError(t, engine.Retry(context.Background(), tempID))

	// A retry reuses the original token, so a send that actually reached the
	// server cannot produce a second message.
	require.Len(t, tokens, 2)
	assert.Equal(t, tokens[0], tokens[1])

	entries = engine.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, StatusSent, entries[0].Status)
}

func TestLateEchoAfterFailedSendReconciles(t *testing.T) {
	var token string
	sender := &fakeSender{send: func(_ context.Context, _ int, _, clientMsgID string) (models.Message, error) {
		// The write commits but the response is lost (timeout).
		token = clientMsgID
		return models.Message{}, assert.AnError
	}}
	engine := NewEngine(5, 1, sender, nil)

	_, err := engine.Submit(context.Background(), "hello")
	require.Error(t, err)

	// The committed copy arrives through the gateway carrying the token.
	require.True(t, engine.Apply(serverMessage(42, "hello", token)))

	entries := engine.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, StatusSent, entries[0].Status)
	require.NotNil(t, entries[0].Message)
	assert.Equal(t, 42, entries[0].Message.ID)
}

func TestRetryUnknownTempID(t *testing.T) {
	engine := NewEngine(5, 1, &fakeSender{}, nil)

	err := engine.Retry(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNoSuchPending)
}

func TestDiscardRemovesFailedEntry(t *testing.T) {
	sender := &fakeSender{send: func(context.Context, int, string, string) (models.Message, error) {
		return models.Message{}, assert.AnError
	}}
	engine := NewEngine(5, 1, sender, nil)

	tempID, err := engine.Submit(context.Background(), "hello")
	require.Error(t, err)
	require.Len(t, engine.Entries(), 1)

	engine.Discard(tempID)
	assert.Empty(t, engine.Entries())
}

func TestOwnMessageFromAnotherSessionAppends(t *testing.T) {
	engine := NewEngine(5, 1, &fakeSender{}, nil)

	// Same user, no pending entry: sent from a second device.
	msg := serverMessage(42, "from my phone", "other-session-token")
	assert.True(t, engine.Apply(msg))

	entries := engine.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, StatusSent, entries[0].Status)
}
