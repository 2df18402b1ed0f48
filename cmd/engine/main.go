package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"idea-pond/internal/config"
	"idea-pond/internal/database"
	"idea-pond/internal/engine"
	"idea-pond/internal/handlers"
	"idea-pond/internal/middleware"
	"idea-pond/internal/notifications"
	"idea-pond/internal/profiles"
	"idea-pond/internal/utils"
	"idea-pond/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level})))

	db, err := database.NewMongoDB(cfg.Database.URI, cfg.Database.Name)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close(context.Background())

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	metrics := utils.NewMetricsCollector()

	hub := websocket.NewHub()
	go hub.Run()

	throttle := notifications.NewThrottle(notifications.NewRedisDebounceStore(rdb), cfg.Notifier.Window)
	dispatcher := notifications.NewDispatcher(cfg.Notifier.Endpoint, cfg.Notifier.Timeout)
	resolver := profiles.NewResolver(db)

	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, engine.Stores{
		Conversations: db,
		Messages:      db,
	}, hub, resolver, throttle, dispatcher, metrics)

	server := handlers.NewServer(system, system.Root, eng, metrics, db, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.HandleHealth())
	mux.HandleFunc("/auth/register", server.HandleRegister())
	mux.HandleFunc("/auth/login", server.HandleLogin())
	mux.HandleFunc("/messages", server.HandleSendMessage())
	mux.HandleFunc("/conversation", server.HandleConversation())
	mux.HandleFunc("/conversation/read", server.HandleMarkRead())
	mux.HandleFunc("/inbox", server.HandleInbox())
	mux.HandleFunc("/inbox/unread-count", server.HandleUnreadCount())
	mux.HandleFunc("/ws", server.HandleWebSocket())

	cors := middleware.CORSMiddleware(middleware.DefaultCORSConfig(cfg.AllowedOrigins))
	handler := cors(middleware.AuthMiddleware(mux))

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	slog.Info("starting server", "addr", serverAddr)

	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := httpServer.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
