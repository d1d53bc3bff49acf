package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/sparkslk/sparks-backend/internal/config"
	"github.com/sparkslk/sparks-backend/internal/database"
	"github.com/sparkslk/sparks-backend/internal/handlers"
	"github.com/sparkslk/sparks-backend/internal/middleware"
	"github.com/sparkslk/sparks-backend/internal/routes"
	"github.com/sparkslk/sparks-backend/internal/services"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	// Connect to PostgreSQL
	log.Printf("Connecting to PostgreSQL...")
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		log.Fatal("Failed to connect to PostgreSQL:", err)
	}
	defer database.DisconnectPostgres()

	// Connect to Redis
	log.Printf("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer database.DisconnectRedis()

	// Connect to MongoDB (conversation message history)
	log.Printf("Connecting to MongoDB...")
	if err := database.Connect(cfg.MongoURI); err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer database.Disconnect()

	if err := services.EnsureMessageIndexes(context.Background()); err != nil {
		log.Printf("⚠️  WARNING: failed to ensure MongoDB message indexes: %v", err)
	} else {
		log.Println("✅ MongoDB message indexes ensured")
	}

	// Slot dates are interpreted in the platform timezone (Asia/Colombo by default)
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("⚠️  WARNING: invalid TIMEZONE %q, falling back to UTC: %v", cfg.Timezone, err)
		loc = time.UTC
	}
	handlers.SetSlotLocation(loc)

	// Initialize Cloudinary service (profile images, application documents)
	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		if err := handlers.InitCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret); err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v", err)
			log.Println("File uploads will not be available")
		} else {
			log.Println("✅ Cloudinary service initialized")
		}
	} else {
		log.Println("Warning: Cloudinary credentials not found. File uploads will not be available")
	}

	// Initialize SendGrid (OTP delivery is best-effort; failures are logged, not fatal)
	services.InitEmailService(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName)
	if cfg.SendGridAPIKey == "" {
		log.Println("Warning: SENDGRID_API_KEY not set. OTP emails will not be sent")
	} else {
		log.Println("✅ Email service initialized")
	}

	// Redis Pub/Sub fan-out so messages reach connections on every instance
	services.StartRedisMessageSubscriber(context.Background())
	log.Println("✅ Message subscriber started")

	// Setup router
	r := chi.NewRouter()

	// Custom CORS: set headers and respond to OPTIONS with 200 so preflight never gets 403
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit → LoginRateLimit
	// Non-production: Redis-based rate limit only
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		log.Println("✅ Production security enabled (security headers, host check, per-IP + login rate limiting)")
	} else {
		r.Use(middleware.RateLimitMiddleware)
	}

	// Conversation history endpoints get their own, looser limiter
	r.Use(middleware.MessageHistoryRateLimit)

	// Health check (no rate limit)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Setup routes
	routes.SetupRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 SPARKS backend running on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("✅ Server stopped")
}
