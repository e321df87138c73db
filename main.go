package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"Cueline/config"
	queue_constants "Cueline/constants/queue"
	"Cueline/services/events"
	"Cueline/services/queue"
	storagepg "Cueline/storage/postgres"
	"Cueline/sync"
)

func main() {
	godotenv.Load()
	log.Println("Setting up table queue core...")

	gormDB, err := config.ConnectGORM()
	if err != nil {
		log.Fatalf("Error connecting to PostgreSQL: %v", err)
	}
	log.Println("GORM Connected")

	// Only migrate in development or during deployment
	if os.Getenv("MIGRATE_POSTGRES") == "true" {
		log.Println("Migrating PostgreSQL database...")
		if err := config.MigrateDatabase(gormDB); err != nil {
			log.Printf("Warning: Database migration failed: %v", err)
			// Continue execution even if migration fails
		} else {
			log.Println("Database migrated successfully")
		}
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatalf("Error reading GORM PostgreSQL instance: %v", err)
	}
	defer sqlDB.Close()

	redisClient, err := config.ConnectRedis()
	if err != nil {
		log.Fatalf("Error connecting to Redis: %v", err)
	}
	defer redisClient.Close()

	policy := queue_constants.FromEnv()
	service := queue.NewService(
		storagepg.NewStore(gormDB),
		events.NewRedisPublisher(redisClient),
		policy,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics endpoint for scrapers; the queue operations themselves are
	// fronted by a separate transport service
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		metricsPort = "9090"
	}
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":"+metricsPort, nil); err != nil {
			log.Printf("Error serving metrics: %v", err)
		}
	}()

	sweeper := sync.NewSweeper(service, queue_constants.DefaultSweepInterval)
	sweeper.Run(ctx)
}
