package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"oceanx-economy-service/handlers"
	"oceanx-economy-service/metrics"
	"oceanx-economy-service/models"
	"oceanx-economy-service/ratelimit"
	"oceanx-economy-service/services"
	"oceanx-economy-service/store"
	"oceanx-economy-service/utils"
	"oceanx-economy-service/workers"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // economy payloads are tiny
	})

	// CORS for the game client origins
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Claim{},
		&models.Player{},
		&models.ResourceEvent{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	verifier, err := services.NewSignatureVerifier(
		envOr("CLAIM_DOMAIN_NAME", "OceanX Claims"),
		envOr("CLAIM_DOMAIN_VERSION", "1"),
		envInt64Or("CLAIM_CHAIN_ID", 1),
		mustEnv("CLAIM_VERIFYING_CONTRACT"),
		mustEnv("CLAIM_AUTHORIZED_SIGNER"),
	)
	if err != nil {
		log.Fatal("failed to configure signature verifier: ", err)
	}

	cfg := services.LoadEconomyConfig()
	econStore := store.NewGormStore(db)

	claimLimiter := ratelimit.NewCooldown(cfg.ClaimCooldown)
	saveLimiter := ratelimit.NewCooldown(cfg.SaveCooldown)
	tradeLimiter := ratelimit.NewCooldown(cfg.TradeCooldown)

	claimService := services.NewClaimService(econStore, verifier, claimLimiter)
	miningService := services.NewMiningService(econStore, saveLimiter, cfg)
	tradeService := services.NewTradeService(econStore, tradeLimiter, cfg)

	metrics.Register()

	handlers.SetupEconomyRoutes(app, claimService, miningService, tradeService, econStore)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archiver := workers.NewAuditArchiver(econStore)
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal("failed to create scheduler:", err)
	}
	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			claimLimiter.Sweep()
			saveLimiter.Sweep()
			tradeLimiter.Sweep()
		}),
	)
	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() { archiver.Run(ctx) }),
	)
	sched.Start()
	defer func() { _ = sched.Shutdown() }()

	port := envOr("PORT", "5300")
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Economy service running on http://localhost:%s", port)
	log.Printf("✅ Authorized claim signer: %s", os.Getenv("CLAIM_AUTHORIZED_SIGNER"))
	if utils.R2Enabled() {
		log.Println("✅ Audit archival to R2 enabled (every 10m)")
	} else {
		log.Println("⚠️  Audit archival disabled — R2 not configured")
	}
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("%s environment variable not set", key)
	}
	return v
}

func envInt64Or(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Fatalf("invalid %s=%q: %v", key, raw, err)
	}
	return v
}
