package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lee21-bot/crime-chat/config"
	"github.com/Lee21-bot/crime-chat/internal/domain"
	"github.com/Lee21-bot/crime-chat/internal/identity"
	"github.com/Lee21-bot/crime-chat/internal/pg"
	"github.com/Lee21-bot/crime-chat/internal/postgres"
	"github.com/Lee21-bot/crime-chat/internal/service"
	httpx "github.com/Lee21-bot/crime-chat/internal/transport/http"
	"github.com/Lee21-bot/crime-chat/internal/transport/ws"
	"github.com/Lee21-bot/crime-chat/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting chat-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	pool, err := pg.NewPool(ctx, pg.Config{
		DSN:             cfg.Postgres.DSN,
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		ApplicationName: cfg.Logging.Service,
	})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// --- repos ---
	channelRepo := postgres.NewChannelRepository(pool)
	messageRepo := postgres.NewMessageRepository(pool)
	typingRepo := postgres.NewTypingRepository(pool)
	presenceRepo := postgres.NewPresenceRepository(pool)
	directory := identity.NewPgDirectory(pool, cfg.Auth.AdminEmailDomain)

	// --- services ---
	channelSvc := service.NewChannelService(channelRepo)
	messageSvc := service.NewMessageService(messageRepo, directory)
	messageSvc.SetMaxLen(cfg.Chat.MaxMessageLen)
	messageSvc.SetDefaultStatus(domain.ModerationStatus(cfg.Chat.DefaultModerationStatus))
	typingSvc := service.NewTypingService(typingRepo)
	typingSvc.SetTTL(cfg.Chat.TypingTTLDuration())
	defer typingSvc.Close()
	presenceSvc := service.NewPresenceService(presenceRepo)
	presenceSvc.SetWindow(cfg.Chat.PresenceWindowDuration())

	// --- WS Hub & Server ---
	secret := []byte(cfg.Auth.JWTSecret)
	hub := ws.NewHub()
	wsServer := ws.NewServer(hub, messageSvc, typingSvc, presenceSvc, secret)
	typingSvc.OnChange(wsServer.TypingChanged)

	// --- HTTP ---
	handler := httpx.NewHandler(channelSvc, messageSvc, typingSvc, presenceSvc, directory)
	handler.SetNotifier(wsServer)
	handler.SetRecentLimit(cfg.Chat.RecentLimit)
	router := httpx.NewRouter(handler, presenceSvc, wsServer, httpx.RouterConfig{
		JWTSecret:     secret,
		SendBurst:     cfg.Chat.SendBurst,
		SendPerMinute: cfg.Chat.SendPerMinute,
	})
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
