package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"PCHAT/relay/internal/auth"
	"PCHAT/relay/internal/chatbot"
	"PCHAT/relay/internal/config"
)

func main() {
	configPath := pflag.String("config", "config/config.yaml", "path to the YAML config file")
	envPath := pflag.String("env", "config/.env", "path to the dotenv file")
	pflag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath, *envPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	slog.SetDefault(config.NewLogger(os.Stderr, cfg.Log.Level))
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize providers
	providers, cleanup, err := chatbot.NewProviders(ctx, cfg)
	defer cleanup()
	if err != nil {
		slog.Error("Failed to initialize providers", "error", err)
		os.Exit(1)
	}
	if len(providers) == 0 {
		slog.Warn("No provider has credentials; every chat request will fail")
	}
	slog.Info("Providers configured", "providers", providers.Names())

	// Initialize router
	router := gin.New()
	router.Use(gin.Logger(), chatbot.Recovery())

	// Configure CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     cfg.CORS.AllowMethods,
		AllowHeaders:     cfg.CORS.AllowHeaders,
		ExposeHeaders:    cfg.CORS.ExposeHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
	}))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Chat relay
	authService := auth.NewServiceImpl(cfg.JWT)
	if authService.Enabled() {
		slog.Info("Bearer tokens required on chat routes")
	}
	chatService := chatbot.NewChatService(providers, chatbot.RenderPersona(cfg.Persona))
	chatController := chatbot.NewChatController(chatService, cfg.Server.RequestTimeout)

	chat := router.Group("/",
		chatbot.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
		auth.NewMiddlewareImpl(authService).Handler(),
	)
	chatController.RegisterRoutes(chat)

	// Start server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Relay listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Error starting server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
