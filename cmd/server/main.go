package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartwaste-backend/internal/accounting"
	"smartwaste-backend/internal/config"
	"smartwaste-backend/internal/database"
	"smartwaste-backend/internal/handlers"
	"smartwaste-backend/internal/ledger"
	"smartwaste-backend/internal/metrics"
	"smartwaste-backend/internal/middleware"
	"smartwaste-backend/internal/services"
	"smartwaste-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 SMART WASTE BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	log.Println("📂 Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Invalid configuration")
		log.Printf("   Error: %v", err)
		log.Println("   Set the missing variables in your environment or .env file")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("✅ Configuration loaded")

	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Printf("   Error: %v", err)
		log.Println("   This is usually caused by:")
		log.Println("   1. Wrong DATABASE_URL format")
		log.Println("   2. PostgreSQL service is down")
		log.Println("   3. Invalid credentials")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer db.Close()
	log.Println("✅ Database connection established")

	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database migrations failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("✅ Database migrations completed")

	if cfg.SeedData {
		log.Println("🌱 Seeding database with initial data...")
		if err := database.SeedBins(db); err != nil {
			log.Fatalf("❌ FATAL ERROR: Bin seeding failed: %v", err)
		}
		if err := database.SeedDemoUser(db); err != nil {
			log.Fatalf("❌ FATAL ERROR: Demo user seeding failed: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	emailService := services.NewEmailService(cfg.Email)
	pushService := initPush(ctx, cfg)
	notifier := services.NewNotifier(emailService, pushService, services.NewDBTokenSource(db))

	svc := accounting.NewService(ledger.NewPostgresStore(db), notifier)

	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)
	log.Println("✅ WebSocket hub started")

	authCfg := handlers.AuthConfig{Secret: cfg.JWTSecret, TTL: cfg.JWTTTL}
	requireAuth := middleware.Auth(cfg.JWTSecret)
	scanLimiter := middleware.NewRateLimiter(cfg.ScanRatePerSecond, cfg.ScanBurst)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", metrics.Handler())

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub, cfg.JWTSecret))

	r.Route("/api", func(r chi.Router) {
		r.Use(metrics.InstrumentHandler)

		r.Get("/health", handlers.Health())
		r.Get("/rewards", handlers.GetRewards())
		r.Get("/email/status", handlers.GetEmailStatus(emailService))

		// Auth
		r.Post("/auth/register", handlers.Register(db, authCfg, notifier))
		r.Post("/auth/login", handlers.Login(db, authCfg))
		r.Post("/auth/forgot", handlers.ForgotPassword(db))
		r.Post("/auth/reset", handlers.ResetPassword(db))
		r.With(requireAuth).Get("/auth/profile", handlers.GetProfile(db))

		// Bins (sensors report without a user session)
		r.Get("/bins", handlers.GetBins(db))
		r.Post("/bins", handlers.CreateBin(db, wsHub))
		r.Get("/bins/status/{value}", handlers.GetBinsByStatus(db))
		r.Get("/bins/type/{value}", handlers.GetBinsByType(db))
		r.Get("/bins/nearby/{lat}/{lng}/{radius}", handlers.GetNearbyBins(db))
		r.Get("/bins/{id}", handlers.GetBin(db))
		r.Put("/bins/{id}", handlers.UpdateBinFill(svc, wsHub, notifier))
		r.Post("/bins/{id}/empty", handlers.EmptyBin(svc, wsHub))
		r.Get("/bins/{id}/readings", handlers.GetBinReadings(db))

		// Users
		r.Get("/users/leaderboard/top", handlers.GetLeaderboard(db))
		r.Get("/users/{id}", handlers.GetUser(db))
		r.Get("/users/{id}/coins", handlers.GetUserCoins(db))
		r.Get("/users/{id}/transactions", handlers.GetUserTransactions(db))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.With(scanLimiter.Handler).Post("/users/{id}/transactions", handlers.RecordDeposit(svc, wsHub))
			r.Post("/users/{id}/redeem", handlers.Redeem(svc, wsHub))
			r.Post("/users/{id}/fcm-token", handlers.RegisterFCMToken(db))
			r.With(scanLimiter.Handler).Post("/scan", handlers.ScanCode(svc, wsHub))
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", cfg.Port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	go func() {
		<-ctx.Done()
		log.Println("🛑 Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️  Graceful shutdown failed: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Server failed to start")
		log.Printf("   Error: %v", err)
		log.Printf("   Port: %s", cfg.Port)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("👋 Server stopped")
}

// initPush prefers base64 credentials (cloud deployments) and falls back to
// a credentials file. Push stays disabled when neither works.
func initPush(ctx context.Context, cfg *config.Config) *services.PushService {
	switch {
	case cfg.FirebaseCredentialsBase64 != "":
		push, err := services.NewPushServiceFromBase64(ctx, cfg.FirebaseCredentialsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			return nil
		}
		log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		return push
	case cfg.FirebaseCredentialsFile != "":
		push, err := services.NewPushService(ctx, cfg.FirebaseCredentialsFile)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
			return nil
		}
		log.Println("✅ Firebase Cloud Messaging initialized from file")
		return push
	default:
		log.Println("⚠️  No Firebase credentials configured (push notifications disabled)")
		return nil
	}
}
