package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"companion-server/services/chat-api/internal/config"
	"companion-server/services/chat-api/internal/domain/chat"
	"companion-server/services/chat-api/internal/infrastructure/auth"
	"companion-server/services/chat-api/internal/infrastructure/database"
	"companion-server/services/chat-api/internal/infrastructure/engine"
	"companion-server/services/chat-api/internal/infrastructure/logger"
	"companion-server/services/chat-api/internal/infrastructure/observability"
	conversationrepo "companion-server/services/chat-api/internal/infrastructure/repository/conversation"
	messagerepo "companion-server/services/chat-api/internal/infrastructure/repository/message"
	"companion-server/services/chat-api/internal/interfaces/httpserver"
	"companion-server/services/chat-api/internal/persist"
)

// @title Chat API
// @version 1.0
// @description Orchestrates conversational turns against an external reasoning engine and streams responses over Server-Sent Events.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}

	conversationRepository := conversationrepo.NewRepository(db)
	messageRepository := messagerepo.NewRepository(db)
	engineClient := engine.NewClient(cfg.EngineURL, cfg.EngineTimeout)

	// Message writes happen off the response path.
	persistQueue := persist.NewQueue(cfg.PersistQueueSize)
	messageWriter := persist.NewWriter(persistQueue, messageRepository, persist.Config{
		WorkerCount: cfg.PersistWorkerCount,
		TaskTimeout: cfg.PersistTaskTimeout,
	}, log)
	messageWriter.Start(ctx)
	defer func() {
		log.Info().Msg("stopping message writer")
		messageWriter.Stop()
	}()

	chatService := chat.NewService(
		conversationRepository,
		messageRepository,
		engineClient,
		messageWriter,
		chat.StreamOptions{
			ChunkSize:  cfg.StreamChunkSize,
			ChunkDelay: cfg.StreamChunkDelay,
		},
		log,
	)

	httpServer := httpserver.New(cfg, log, chatService, authValidator)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
