package main

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/madhubanicraft/commerce-backend/internal/config"
	"github.com/madhubanicraft/commerce-backend/internal/modules/auth"
	"github.com/madhubanicraft/commerce-backend/internal/modules/catalog"
	"github.com/madhubanicraft/commerce-backend/internal/modules/fulfillment"
	"github.com/madhubanicraft/commerce-backend/internal/modules/health"
	"github.com/madhubanicraft/commerce-backend/internal/modules/idempotency"
	"github.com/madhubanicraft/commerce-backend/internal/modules/inventory"
	"github.com/madhubanicraft/commerce-backend/internal/modules/order"
	"github.com/madhubanicraft/commerce-backend/internal/modules/payment"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logLevel := slog.LevelDebug
	if cfg.Production() {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})).
		With("service", "madhubani-backend")

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Successfully connected to the database!")

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	guard := auth.NewMiddleware(cfg.AuthJWTSecret, cfg.AdminKeyHash)

	// ── Phase 1: Catalog ────────────────────────────────────
	catalogRepo := catalog.NewPostgresRepository(db)
	catalogService := catalog.NewService(catalogRepo)
	catalog.NewHandler(catalogService).RegisterRoutes(router, guard.RequireAdmin)

	// ── Phase 2: Inventory ──────────────────────────────────
	inventoryRepo := inventory.NewPostgresRepository(db)
	inventoryService := inventory.NewService(inventoryRepo, logger)

	// ── Phase 3: Idempotency ────────────────────────────────
	var idemStore idempotency.Store
	if cfg.RedisAddr != "" {
		idemStore = idempotency.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	} else {
		idemStore = idempotency.NewPostgresStore(db)
	}
	fingerprinter := idempotency.NewFingerprinter(cfg.RequestIDSecret)

	// ── Phase 4: Payment gateway ────────────────────────────
	gateway := payment.NewRazorpayGateway(
		cfg.RazorpayKeyID,
		cfg.RazorpayKeySecret,
		cfg.RazorpayWebhookSecret,
		cfg.RazorpayBaseURL,
	)

	// ── Phase 5: Fulfillment events ─────────────────────────
	publisher := fulfillment.NewNoopPublisher()
	if cfg.AMQPURL != "" {
		conn, ch, err := fulfillment.SetupConn(cfg.AMQPURL)
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()
		publisher = fulfillment.NewRabbitPublisher(ch)
	}

	// ── Phase 6: Orders ─────────────────────────────────────
	orderRepo := order.NewPostgresRepository(db)
	orderService := order.NewService(
		orderRepo, catalogService, inventoryService,
		idemStore, fingerprinter, gateway, publisher, logger,
	)
	order.NewHandler(orderService, cfg.Production()).
		RegisterRoutes(router, guard.RequireBuyer, guard.RequireAdmin)

	// ── Health ──────────────────────────────────────────────
	health.NewHandler(cfg.Environment, cfg.DependencyFlags()).RegisterRoutes(router)

	// ── Start Server ────────────────────────────────────────
	logger.Info("server starting",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"razorpayConfigured", cfg.RazorpayKeyID != "",
		"webhookConfigured", cfg.RazorpayWebhookSecret != "")
	log.Fatal(http.ListenAndServe(":"+cfg.Port, router))
}
