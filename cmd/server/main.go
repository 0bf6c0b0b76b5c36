package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soulax-ranjan/ani-ayu-api/internal/cache"
	"github.com/soulax-ranjan/ani-ayu-api/internal/gateway"
	"github.com/soulax-ranjan/ani-ayu-api/internal/httpapi"
	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
	"github.com/soulax-ranjan/ani-ayu-api/internal/publisher"
	"github.com/soulax-ranjan/ani-ayu-api/internal/repository"
	"github.com/soulax-ranjan/ani-ayu-api/internal/service"
	"github.com/soulax-ranjan/ani-ayu-api/internal/webhookstore"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	log.Println("shop backend starting...")
	var wg sync.WaitGroup

	// Configuration
	httpPort := getEnv("HTTP_PORT", "8080")
	jwtSecret := getEnv("JWT_SECRET", "dev-secret")
	razorpayKeyID := getEnv("RAZORPAY_KEY_ID", "")
	razorpayKeySecret := getEnv("RAZORPAY_KEY_SECRET", "")
	razorpayWebhookSecret := getEnv("RAZORPAY_WEBHOOK_SECRET", "")
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	mongoURI := getEnv("MONGODB_URI", "mongodb://localhost:27017")
	mongoDatabase := getEnv("MONGODB_DATABASE", "shop")
	kafkaBrokers := getEnv("KAFKA_BROKERS", "localhost:9092")

	// Database setup
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbName := getEnv("DB_NAME", "shop")
	migrationsPath := getEnv("MIGRATIONS_PATH", "./internal/repository/migrations")

	port, err := strconv.Atoi(dbPort)
	if err != nil {
		log.Fatalf("Invalid DB_PORT: %v", err)
	}

	creds := &repository.Credentials{
		Host:              dbHost,
		Port:              port,
		User:              dbUser,
		Password:          dbPass,
		DBName:            dbName,
		MigrationsDirPath: migrationsPath,
	}

	repo, err := repository.NewRepository(creds)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Redis cart cache
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	cartCache := cache.NewRedisCache(redisClient)

	// MongoDB webhook event log
	mongoCtx, mongoCancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoDB, err := webhookstore.ConnectMongoDB(mongoCtx, mongoURI, mongoDatabase)
	mongoCancel()
	if err != nil {
		log.Fatalf("Failed to connect to mongodb: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoDB.Client().Disconnect(ctx); err != nil {
			log.Printf("Failed to disconnect mongodb: %v", err)
		}
	}()
	eventStore := webhookstore.NewMongoStore(mongoDB)

	// Payment gateway
	razorpayClient := gateway.NewRazorpayClient(razorpayKeyID, razorpayKeySecret)

	// Services
	resolver := identity.NewResolver(jwtSecret)
	cartService := service.NewCartService(repo, cartCache)
	checkoutService := service.NewCheckoutService(repo, cartService, razorpayClient, razorpayKeyID)
	paymentService := service.NewPaymentService(repo, cartService, razorpayClient, razorpayKeySecret)
	webhookService := service.NewWebhookService(repo, paymentService, eventStore, razorpayWebhookSecret)
	orderService := service.NewOrderService(repo)
	addressService := service.NewAddressService(repo)

	// Outbox publisher
	poller := publisher.NewOutboxPoller(repo, strings.Split(kafkaBrokers, ",")...)
	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(pollerCtx)
	}()

	// HTTP server
	router := httpapi.NewRouter(resolver, httpapi.Handlers{
		Cart:      httpapi.NewCartHandler(cartService),
		Checkout:  httpapi.NewCheckoutHandler(checkoutService),
		Payments:  httpapi.NewPaymentsHandler(paymentService, webhookService),
		Orders:    httpapi.NewOrdersHandler(orderService),
		Addresses: httpapi.NewAddressesHandler(addressService),
	})

	server := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on :%s", httpPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	pollerCancel()
	poller.Close()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Println("Outbox publisher stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("Shutdown timed out waiting for outbox publisher")
	}

	log.Println("Server stopped")
}
