package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"modqueue/backend/internal/api/handler"
	"modqueue/backend/internal/casestore"
	"modqueue/backend/internal/config"
	"modqueue/backend/internal/debounce"
	"modqueue/backend/internal/ledger"
	"modqueue/backend/internal/notify"
	"modqueue/backend/internal/outbox"
	"modqueue/backend/internal/sla"
	"modqueue/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	return db, rdb
}

func main() {
	log.Println("Starting ModQueue Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg := config.Load()

	db, rdb := setupDependencies(cfg)
	store := storage.NewStorageService(db, rdb)
	if err := store.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database and Redis connections established, migrations complete.")

	cases := casestore.NewService(db)
	points := ledger.NewService(db)
	gate := debounce.NewGate(store, cfg.DebounceFailOpen)

	if cfg.BotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is not set!")
	}
	notifier, err := notify.NewService(cfg.BotToken, cases, gate, cfg.ModerationChatID)
	if err != nil {
		log.Fatalf("Failed to start Telegram notifier: %v", err)
	}

	dispatcher := outbox.NewDispatcher(db, notifier, outbox.DefaultDispatcherConfig())
	scheduler := sla.NewScheduler(db, notifier, sla.DefaultSchedulerConfig())

	ctx := context.Background()
	go dispatcher.Run(ctx) // outbox delivery loop
	go scheduler.Run(ctx)  // SLA escalation loop

	r := gin.Default()
	h := handler.NewHandler(store, cases, points, dispatcher, notifier, cfg.JWTSecret)
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
