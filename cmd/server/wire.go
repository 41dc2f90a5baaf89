//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"companion-server/services/chat-api/internal/config"
	"companion-server/services/chat-api/internal/domain/chat"
	"companion-server/services/chat-api/internal/domain/conversation"
	"companion-server/services/chat-api/internal/infrastructure/auth"
	"companion-server/services/chat-api/internal/infrastructure/database"
	"companion-server/services/chat-api/internal/infrastructure/engine"
	"companion-server/services/chat-api/internal/infrastructure/logger"
	conversationrepo "companion-server/services/chat-api/internal/infrastructure/repository/conversation"
	messagerepo "companion-server/services/chat-api/internal/infrastructure/repository/message"
	"companion-server/services/chat-api/internal/interfaces/httpserver"
	"companion-server/services/chat-api/internal/persist"
)

var chatSet = wire.NewSet(
	conversationrepo.NewRepository,
	wire.Bind(new(conversation.Repository), new(*conversationrepo.Repository)),
	messagerepo.NewRepository,
	wire.Bind(new(chat.MessageReader), new(*messagerepo.Repository)),
	wire.Bind(new(persist.Sink), new(*messagerepo.Repository)),
	newEngineClient,
	wire.Bind(new(chat.Engine), new(*engine.Client)),
	newPersistQueue,
	newMessageWriter,
	wire.Bind(new(chat.MessageWriter), new(*persist.Writer)),
	newStreamOptions,
	newChatService,
)

// BuildApplication demonstrates how to assemble the chat service with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newDatabaseConfig,
		newGormDB,
		newAuthValidator,
		chatSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}

func newAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

func newEngineClient(cfg *config.Config) *engine.Client {
	return engine.NewClient(cfg.EngineURL, cfg.EngineTimeout)
}

func newPersistQueue(cfg *config.Config) *persist.Queue {
	return persist.NewQueue(cfg.PersistQueueSize)
}

func newMessageWriter(queue *persist.Queue, sink persist.Sink, cfg *config.Config, log zerolog.Logger) *persist.Writer {
	return persist.NewWriter(queue, sink, persist.Config{
		WorkerCount: cfg.PersistWorkerCount,
		TaskTimeout: cfg.PersistTaskTimeout,
	}, log)
}

func newStreamOptions(cfg *config.Config) chat.StreamOptions {
	return chat.StreamOptions{
		ChunkSize:  cfg.StreamChunkSize,
		ChunkDelay: cfg.StreamChunkDelay,
	}
}

func newChatService(
	conversations conversation.Repository,
	messages chat.MessageReader,
	engineClient chat.Engine,
	writer chat.MessageWriter,
	opts chat.StreamOptions,
	log zerolog.Logger,
) chat.Service {
	return chat.NewService(conversations, messages, engineClient, writer, opts, log)
}
