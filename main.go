package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"messaging-service/internal/cache"
	"messaging-service/internal/config"
	"messaging-service/internal/db"
	"messaging-service/internal/events"
	"messaging-service/internal/handlers"
	"messaging-service/internal/notify"
	"messaging-service/internal/observability"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/repositories"
	"messaging-service/internal/services"
	"messaging-service/internal/ws"
)

const serviceName = "messaging-service"

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, serviceName, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		logger.WithError(err).Fatal("failed to init tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.WithError(err).Warn("tracing shutdown failed")
		}
	}()

	database, err := db.Connect(cfg.DBDSN, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to db")
	}
	defer database.Close()

	store := newCache(cfg, logger)

	registry := repositories.NewRegistry(database)
	bus := events.NewBus(logger)

	chatService := services.NewChatService(registry, store, cfg.CacheTTL, bus, logger)
	messageService := services.NewMessageService(registry, bus, logger)
	contactService := services.NewContactService(registry, store, cfg.CacheTTL, bus, logger)

	hub := ws.NewHub(logger)

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer publisher.Close()
	logger.WithField("mode", rabbitmq.PublisherMode(publisher)).Info("event mirror ready")

	notify.NewListener(hub, publisher, logger).Register(bus)

	router := handlers.NewRouter(serviceName, handlers.Deps{
		Chats:     handlers.NewChatHandler(chatService),
		Messages:  handlers.NewMessageHandler(messageService),
		Contacts:  handlers.NewContactHandler(contactService),
		WS:        ws.NewHandler(hub, registry),
		JWTSecret: cfg.JWTSecret,
	})

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	go func() {
		logger.WithField("addr", cfg.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown failed")
	}
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

// newCache prefers redis and falls back to the in-process cache when no
// address is configured.
func newCache(cfg config.Config, logger *logrus.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		logger.Info("redis not configured, using in-process cache")
		return cache.NewMemoryCache()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	logger.WithField("addr", cfg.RedisAddr).Info("redis cache ready")
	return cache.NewRedisCache(client)
}
