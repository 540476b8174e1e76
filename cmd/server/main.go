package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/vhoang/stock-guard/internal/adapter/handler"
	"github.com/vhoang/stock-guard/internal/adapter/storage"
	"github.com/vhoang/stock-guard/internal/core/domain"
	"github.com/vhoang/stock-guard/internal/core/service"
)

const (
	defaultHTTPAddr  = ":8080"
	defaultMySQLDSN  = "root:root@tcp(localhost:3306)/stockguard?parseTime=true"
	defaultRedisAddr = "localhost:6379"

	seedRecordID    = "sku-widget-1"
	seedRecordLabel = "widget"
	seedQuantity    = 100
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpAddr := envOr("HTTP_ADDR", defaultHTTPAddr)
	mysqlDSN := envOr("MYSQL_DSN", defaultMySQLDSN)
	redisAddr := envOr("REDIS_ADDR", defaultRedisAddr)

	// Initialize MySQL
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	log.Println("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	log.Println("connected to redis")

	// Initialize adapters
	store := storage.NewMySQLStore(db)
	cache := storage.NewRedisCache(rdb)

	// Ensure the demo record exists
	if err := store.UpsertRecord(ctx, domain.InventoryRecord{
		ID:       seedRecordID,
		Label:    seedRecordLabel,
		Quantity: seedQuantity,
	}); err != nil {
		log.Fatalf("failed to seed record: %v", err)
	}
	if err := cache.SetQuantity(ctx, seedRecordID, seedQuantity); err != nil {
		log.Fatalf("failed to set initial quantity: %v", err)
	}
	log.Printf("seeded record: %s = %d", seedRecordID, seedQuantity)

	// Initialize service
	adjuster := service.NewAdjustmentService(store, cache)

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(adjuster, store, cache)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpHandler.HealthCheck)
	mux.HandleFunc("/api/adjust", httpHandler.Adjust)
	mux.HandleFunc("/api/inventory", httpHandler.Inventory)

	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("HTTP server listening on %s", httpAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	rdb.Close()
	db.Close()
	log.Println("connections closed")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
