// Package main runs the tokencast backend: the HTTP API, the websocket chat
// feeds, and the background reconciliation loops (viewer-count sync against
// the room service, market-cap goal refresh against the chain).
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-password/password"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"tokencast/config"
	"tokencast/handlers"
	"tokencast/internal/auth"
	"tokencast/internal/database"
	"tokencast/models"
	"tokencast/services/chain"
	chatsvc "tokencast/services/chat"
	goalsvc "tokencast/services/goals"
	"tokencast/services/pricefeed"
	"tokencast/services/rooms"
	streamsvc "tokencast/services/streams"
	thumbsvc "tokencast/services/thumbnails"
	viewersvc "tokencast/services/viewers"
	wlsvc "tokencast/services/whitelist"
	"tokencast/utils"
)

func main() {
	configPath := flag.String("config", envOr("TOKENCAST_CONFIG", "data/config.yml"), "path to the settings file")
	addr := flag.String("addr", "", "listen address override")
	flag.Parse()

	manager := config.NewManager(*configPath)
	settings, err := manager.Load()
	if err != nil {
		slog.Error("[server] failed to load settings", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		settings.Server.Addr = *addr
	}

	setupLogging(settings)

	// Session tokens need a stable signing secret across restarts; mint one
	// on first boot and persist it.
	if settings.Auth.Secret == "" {
		secret, err := utils.GenerateAPIKey()
		if err != nil {
			slog.Error("[server] failed to generate auth secret", "error", err)
			os.Exit(1)
		}
		settings.Auth.Secret = secret
		if err := manager.Save(settings); err != nil {
			slog.Error("[server] failed to persist settings", "error", err)
			os.Exit(1)
		}
		slog.Info("[server] generated new auth secret", "config", *configPath)
	}

	db, err := database.NewDB(database.Config{DatabasePath: settings.Database.Path})
	if err != nil {
		slog.Error("[server] failed to open database", "path", settings.Database.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := seedOperator(context.Background(), db, settings); err != nil {
		slog.Error("[server] failed to seed operator account", "error", err)
		os.Exit(1)
	}

	// External collaborators.
	roomClient := rooms.NewClient(settings.Rooms.BaseURL, settings.Rooms.APIKey)
	chainClient := chain.NewClient(settings.Chain.RPCEndpoint)
	priceClient := pricefeed.NewClient(settings.PriceFeed.URL, time.Duration(settings.PriceFeed.RevalidateSeconds)*time.Second)

	// Thumbnail content lives on disk under its own root; the afero wrapper
	// keeps the service testable against an in-memory fs.
	if err := os.MkdirAll(settings.Thumbs.Dir, 0755); err != nil {
		slog.Error("[server] failed to create thumbnail directory", "dir", settings.Thumbs.Dir, "error", err)
		os.Exit(1)
	}
	contentFs := afero.NewBasePathFs(afero.NewOsFs(), settings.Thumbs.Dir)
	thumbCache := thumbsvc.NewMemoryStore(time.Duration(settings.Thumbs.CacheTTLMin) * time.Minute)

	hub := chatsvc.NewHub()
	chatService := chatsvc.NewService(db.Chat, hub)
	streamService := streamsvc.NewService(db.Streams, roomClient)
	viewerService := viewersvc.NewService(db.Streams, roomClient)
	thumbService := thumbsvc.NewService(db.Streams, db.Users, thumbCache, contentFs, settings.Server.BaseURL)
	whitelistService := wlsvc.NewService(db.Whitelist, chainClient)
	goalService := goalsvc.NewService(db.Goals, db.Streams, priceClient, chainClient)

	authService := auth.NewService(settings, db.Users)

	streamHandler := handlers.NewStreamHandler(streamService, viewerService, authService)
	chatHandler := handlers.NewChatHandler(chatService, hub, streamService, authService)
	thumbHandler := handlers.NewThumbnailHandler(thumbService, authService, settings.Thumbs.MaxUploadByte)
	goalHandler := handlers.NewGoalHandler(goalService, authService)
	whitelistHandler := handlers.NewWhitelistHandler(whitelistService, authService)
	adminHandler := handlers.NewAdminHandler(db.Streams, hub)

	router := buildRouter(routerDeps{
		auth:      authService,
		streams:   streamHandler,
		chat:      chatHandler,
		thumbs:    thumbHandler,
		goals:     goalHandler,
		whitelist: whitelistHandler,
		admin:     adminHandler,
		contentFs: contentFs,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runScheduler(ctx, "viewer sync", settings.SyncInterval(), func(ctx context.Context) {
		if _, err := viewerService.SyncFromRoomService(ctx); err != nil {
			slog.Warn("[server] viewer sync failed", "error", err)
		}
	})
	go runScheduler(ctx, "goal refresh", settings.GoalRefreshInterval(), func(ctx context.Context) {
		goalService.RefreshLive(ctx)
	})

	server := &http.Server{
		Addr:         settings.Server.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket feeds hold the connection open
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("[server] listening", "addr", settings.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[server] listener failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("[server] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("[server] shutdown incomplete", "error", err)
	}
}

// seedOperator creates the initial admin account on an empty users table and
// prints the generated password once. There is no other way to recover it.
func seedOperator(ctx context.Context, db *database.DB, settings *config.Settings) error {
	count, err := db.Users.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	plain, err := password.Generate(20, 5, 0, false, false)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(plain)
	if err != nil {
		return err
	}

	username := settings.Auth.AdminUsername
	if username == "" {
		username = "operator"
	}
	now := time.Now().UTC()
	operator := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  "Operator",
		PasswordHash: hash,
		Admin:        true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Users.Insert(ctx, operator); err != nil {
		return err
	}

	slog.Info("[server] seeded operator account", "username", username)
	slog.Info("[server] operator password (shown once)", "password", plain)
	return nil
}

// runScheduler fires fn on a fixed interval until ctx is cancelled. The first
// run happens after one interval so startup stays quiet.
func runScheduler(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("[server] scheduler started", "name", name, "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func setupLogging(settings *config.Settings) {
	var w io.Writer = os.Stdout
	if settings.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(settings.Logging.File), 0755); err == nil {
			w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
				Filename:   settings.Logging.File,
				MaxSize:    settings.Logging.MaxSizeMB,
				MaxBackups: settings.Logging.MaxBackups,
				MaxAge:     settings.Logging.MaxAgeDays,
			})
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, nil)))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
