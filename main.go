package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"room-chat-service/internal/cache"
	"room-chat-service/internal/config"
	"room-chat-service/internal/db"
	"room-chat-service/internal/handlers"
	"room-chat-service/internal/middleware"
	"room-chat-service/internal/notifications"
	"room-chat-service/internal/observability"
	"room-chat-service/internal/rabbitmq"
	"room-chat-service/internal/repositories"
	"room-chat-service/internal/telemetry"
	"room-chat-service/internal/ws"
)

const serviceName = "room-chat-service"

func main() {
	cfg := config.Load()

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), serviceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.Exchange)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, "audit.chat", serviceName, cfg.Environment)

	store := cache.New()
	defer store.Close()

	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	reactionRepo := repositories.NewReactionRepo(database)
	receiptRepo := repositories.NewReceiptRepo(database)
	pinRepo := repositories.NewPinRepo(database)

	hub := ws.NewHub()
	verifier := middleware.NewTokenVerifier(cfg.JWTSecret)
	gateway := ws.NewGatewayHandler(hub, roomRepo, verifier, cfg.TypingTimeout)
	defer gateway.Typing().Close()

	dispatcher := notifications.NewDispatcher(roomRepo, publisher)

	messageHandler := handlers.NewMessageHandler(
		roomRepo, messageRepo, store, hub, dispatcher,
		handlers.MessageLimits{MaxContentRunes: cfg.MaxContentRunes, MaxPayloadBytes: cfg.MaxPayloadBytes},
		cfg.MessagePageTTL, cfg.RoomMetaTTL,
	)
	reactionHandler := handlers.NewReactionHandler(roomRepo, messageRepo, reactionRepo, store, hub)
	receiptHandler := handlers.NewReceiptHandler(receiptRepo, hub)
	pinHandler := handlers.NewPinHandler(roomRepo, messageRepo, pinRepo, store, hub, audit, cfg.MaxPinnedPerRoom)
	roomHandler := handlers.NewRoomHandler(roomRepo, store, cfg.RoomMetaTTL)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.GET("/rooms", authMiddleware, roomHandler.ListRooms)
	router.GET("/rooms/:room_id", authMiddleware, roomHandler.GetRoom)
	router.GET("/rooms/:room_id/messages", authMiddleware, messageHandler.GetMessages)
	router.POST("/rooms/:room_id/messages", authMiddleware, messageHandler.SendMessage)
	router.GET("/rooms/:room_id/search", authMiddleware, messageHandler.SearchMessages)
	router.PUT("/rooms/:room_id/messages/:message_id", authMiddleware, messageHandler.EditMessage)
	router.DELETE("/rooms/:room_id/messages/:message_id", authMiddleware, messageHandler.DeleteMessage)
	router.POST("/rooms/:room_id/messages/:message_id/reactions", authMiddleware, reactionHandler.ToggleReaction)
	router.POST("/rooms/:room_id/messages/:message_id/read", authMiddleware, receiptHandler.MarkAsRead)
	router.POST("/rooms/:room_id/read", authMiddleware, receiptHandler.MarkBatchAsRead)
	router.POST("/rooms/:room_id/messages/:message_id/pin", authMiddleware, pinHandler.PinMessage)
	router.DELETE("/rooms/:room_id/messages/:message_id/pin", authMiddleware, pinHandler.UnpinMessage)

	router.GET("/ws", gateway.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
