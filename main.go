package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"signalrelay/internal/config"
	"signalrelay/internal/database/db_client"
	"signalrelay/internal/eventarchive"
	"signalrelay/internal/http/http_server"
	"signalrelay/internal/redis/eventstream"
	"signalrelay/internal/redis/redis_client"
	"signalrelay/internal/roomevents"
	"signalrelay/internal/services/turncred"
	"signalrelay/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully",
		zap.Uint16("port", cfg.HttpServerPort),
		zap.Bool("events", cfg.EventsEnabled),
		zap.Bool("archive", cfg.ArchiveEnabled),
	)

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Optional lifecycle event stream (Redis) + archive (Postgres)
	var events roomevents.Sink = roomevents.Nop{}
	if cfg.EventsEnabled {
		redisClient, err := redis_client.NewRedisClient(ctx, cfg.RedisHost, int(cfg.RedisPort))
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()

		publisher := eventstream.NewPublisher(redisClient, cfg.EventsStream, cfg.EventsStreamMaxLen, 4096)
		go publisher.Run(ctx)
		events = publisher

		if cfg.ArchiveEnabled {
			pgDb, err := db_client.Open(ctx, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
			if err != nil {
				Log.Fatal("pg-open", zap.Error(err))
			}
			defer pgDb.Close()

			if err := eventarchive.EnsureSchema(ctx, pgDb); err != nil {
				Log.Fatal("pg-schema", zap.Error(err))
			}
			eventarchive.Run(ctx, redisClient, pgDb, cfg.EventsStream)
		}
	} else if cfg.ArchiveEnabled {
		Log.Warn("ARCHIVE_ENABLED has no effect without EVENTS_ENABLED")
	}

	// 4. TURN credential issuer
	credSvc, err := turncred.NewCredentialService(turncred.Config{
		SecretB64: cfg.TurnSecretB64,
		URIs:      cfg.TurnURIs,
		TTL:       cfg.TurnTTL,
	})
	if err != nil {
		Log.Fatal("Failed to create credential service", zap.Error(err))
	}
	if cfg.TurnSecretB64 == "" {
		Log.Warn("TURN_SECRET_B64 is empty; /credentials will answer 500")
	}

	// 5. Signaling hub + websocket server
	hub := ws.NewHub(ws.HubOptions{
		RoomIDDigits:     cfg.RoomIDDigits,
		RejectCollisions: cfg.RoomIDCollision == config.CollisionReject,
		Events:           events,
	})
	wsSrv := ws.NewWsServer(hub, ws.Options{
		PingInterval:      cfg.WsPingInterval,
		PongTimeout:       cfg.WsPongTimeout,
		WriteWait:         cfg.WsWriteWait,
		MaxMessageBytes:   cfg.WsMaxMessageBytes,
		SendQueue:         cfg.WsSendQueue,
		MessagesPerSecond: cfg.WsMessagesPerSecond,
		MessageBurst:      cfg.WsMessageBurst,
	})

	// 6. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, hub, wsSrv, credSvc)
	go func() {
		<-ctx.Done()
		_ = httpServer.Dispose()
	}()
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
	Log.Info("shutdown complete")
}
