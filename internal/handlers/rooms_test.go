package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"room-chat-service/internal/cache"
	"room-chat-service/internal/mocks"
	"room-chat-service/internal/models"
)

func setupRoomRouter(handler *RoomHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/rooms", handler.ListRooms)
	r.GET("/rooms/:room_id", handler.GetRoom)
	return r
}

func TestListRoomsSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := NewRoomHandler(roomRepo, nil, time.Minute)
	router := setupRoomRouter(handler)

	roomRepo.On("ListRoomsForUser", mock.Anything, 1).Return([]models.Room{{ID: 5, Name: "general"}, {ID: 2, Name: "random"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Rooms []models.Room `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Rooms, 2)
	assert.Equal(t, 5, resp.Rooms[0].ID)
	roomRepo.AssertExpectations(t)
}

func TestListRoomsRepoError(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := NewRoomHandler(roomRepo, nil, time.Minute)
	router := setupRoomRouter(handler)

	roomRepo.On("ListRoomsForUser", mock.Anything, 1).Return(([]models.Room)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestGetRoomServedFromCache(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	store := cache.New()
	defer store.Close()
	handler := NewRoomHandler(roomRepo, store, time.Minute)
	router := setupRoomRouter(handler)

	roomRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Twice()
	roomRepo.On("GetRoom", mock.Anything, 5).Return(models.Room{ID: 5, Name: "general"}, nil).Once()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/rooms/5", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	roomRepo.AssertExpectations(t)
}

func TestGetRoomNotParticipant(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := NewRoomHandler(roomRepo, nil, time.Minute)
	router := setupRoomRouter(handler)

	roomRepo.On("IsParticipant", mock.Anything, 5, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	roomRepo.AssertExpectations(t)
}
