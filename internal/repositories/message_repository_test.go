package repositories

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-chat-service/internal/models"
)

// descMessages builds a newest-first slice of messages with the given ids.
func descMessages(ids ...int) []models.Message {
	msgs := make([]models.Message, 0, len(ids))
	for _, id := range ids {
		msgs = append(msgs, models.Message{ID: id, RoomID: 5})
	}
	return msgs
}

func pageIDs(page models.MessagePage) []int {
	ids := make([]int, 0, len(page.Messages))
	for _, msg := range page.Messages {
		ids = append(ids, msg.ID)
	}
	return ids
}

func TestBuildMessagePageEmpty(t *testing.T) {
	page := buildMessagePage(nil, 50)

	assert.Empty(t, page.Messages)
	assert.False(t, page.HasMore)
	assert.Zero(t, page.NextCursor)
}

func TestBuildMessagePageExactLimit(t *testing.T) {
	page := buildMessagePage(descMessages(30, 20, 10), 3)

	// No extra row fetched: this is the oldest page.
	assert.False(t, page.HasMore)
	assert.Zero(t, page.NextCursor)
	assert.Equal(t, []int{10, 20, 30}, pageIDs(page))
}

func TestBuildMessagePageOverfetch(t *testing.T) {
	page := buildMessagePage(descMessages(40, 30, 20, 10), 3)

	assert.True(t, page.HasMore)
	// The extra row is dropped and the cursor anchors on the oldest kept id.
	assert.Equal(t, 20, page.NextCursor)
	assert.Equal(t, []int{20, 30, 40}, pageIDs(page))
}

// fetchPage reproduces the list query's predicate against an in-memory store:
// non-deleted room rows with id below the cursor, newest first, limit+1.
func fetchPage(store []int, cursor, limit int) models.MessagePage {
	var ids []int
	for _, id := range store {
		if cursor == 0 || id < cursor {
			ids = append(ids, id)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	if len(ids) > limit+1 {
		ids = ids[:limit+1]
	}
	return buildMessagePage(descMessages(ids...), limit)
}

func TestPaginationWalkVisitsEachMessageOnce(t *testing.T) {
	store := make([]int, 0, 25)
	for id := 1; id <= 25; id++ {
		store = append(store, id)
	}

	seen := map[int]int{}
	cursor := 0
	for pages := 0; ; pages++ {
		require.Less(t, pages, 10, "cursor walk did not terminate")
		page := fetchPage(store, cursor, 7)
		for _, id := range pageIDs(page) {
			seen[id]++
		}
		// New sends land above every cursor already handed out, so pages
		// fetched before and after the insert never shift.
		if pages == 1 {
			store = append(store, 26, 27)
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	require.Len(t, seen, 25)
	for id := 1; id <= 25; id++ {
		assert.Equal(t, 1, seen[id], "message %d", id)
	}
}
