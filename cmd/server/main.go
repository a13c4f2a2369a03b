package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sunny-backend/internal/config"
	"sunny-backend/internal/database"
	"sunny-backend/internal/handlers"
	"sunny-backend/internal/middleware"
	"sunny-backend/internal/repository"
	"sunny-backend/internal/router"
	"sunny-backend/internal/services"
	"sunny-backend/internal/websocket"
)

func main() {
	log.Println("🚀 Starting SUNNY Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	sessionRepo := repository.NewSessionRepo(pool)
	messageRepo := repository.NewMessageRepo(pool)
	requestRepo := repository.NewRequestRepo(pool)
	knowledgeRepo := repository.NewKnowledgeRepo(pool)
	promoRepo := repository.NewPromoRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	aiService, err := services.NewAIService(cfg.GeminiAPIKey, cfg.AIModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer aiService.Close()
	log.Println("✓ Gemini client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, jwtAuth)
	chatService := services.NewChatService(
		sessionRepo,
		messageRepo,
		requestRepo,
		knowledgeRepo,
		promoRepo,
		aiService,
		redisClients.Cache,
		cfg.FallbackPhone,
	)

	// ──── Step 6: Seed Admin Account ────
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := authService.SeedAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("✗ Admin seed failed: %v", err)
		}
		log.Println("✓ Admin account seeded")
	}

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	chatHandler := handlers.NewChatHandler(chatService)
	requestHandler := handlers.NewRequestHandler(requestRepo)
	knowledgeHandler := handlers.NewKnowledgeHandler(knowledgeRepo)
	promoHandler := handlers.NewPromoHandler(promoRepo)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		chatHandler,
		requestHandler,
		knowledgeHandler,
		promoHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ SUNNY Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
