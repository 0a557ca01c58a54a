package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/justuche224/swift/internal/auth"
	"github.com/justuche224/swift/internal/cache"
	"github.com/justuche224/swift/internal/cart"
	"github.com/justuche224/swift/internal/catalog"
	"github.com/justuche224/swift/internal/config"
	h "github.com/justuche224/swift/internal/http"
	"github.com/justuche224/swift/internal/repository"
	"github.com/justuche224/swift/internal/revalidate"
	"github.com/justuche224/swift/internal/service"
	"github.com/justuche224/swift/pkg/logger"
	"github.com/justuche224/swift/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.ServiceName, cfg.LogLevel)
	slog.SetDefault(log)
	ctx := context.Background()

	// Order store
	repo, err := repository.NewPostgresRepository(&repository.Credentials{
		Driver:   cfg.DBDriver,
		URL:      cfg.DatabaseURL,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		fatal(log, "failed to connect to database", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(); err != nil {
		fatal(log, "failed to run migrations", err)
	}
	log.Info("database migrations completed")

	gifts, err := catalog.NewGormRepository(repo.DB())
	if err != nil {
		fatal(log, "failed to open gift catalog", err)
	}

	// Redis backs the tracking cache and, by default, carts
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		fatal(log, "redis connection failed", err)
	}
	log.Info("redis ping succeeded", "addr", cfg.RedisAddr)

	storage, closeStorage := cartStorage(ctx, cfg, redisClient, log)
	defer closeStorage()

	// Revalidation fan-out
	orderCache := cache.NewRedisCache(redisClient, cfg.OrderCacheTTL, log)
	hub := revalidate.NewHub(log, allowOrigins(cfg.AllowedOrigins))
	defer hub.Close()
	notifiers := revalidate.Fanout{orderCache, hub}

	// With Kafka, every instance's hub is fed from the topic instead
	var wg sync.WaitGroup
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()
	if brokers := revalidate.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		kafkaNotifier := revalidate.NewKafkaNotifier(brokers, cfg.KafkaTopic, log)
		defer kafkaNotifier.Close()
		notifiers = revalidate.Fanout{orderCache, kafkaNotifier}

		consumer := revalidate.NewConsumer(brokers, cfg.KafkaTopic, consumerGroup(cfg.ServiceName), hub, log)
		defer consumer.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Run(consumerCtx)
		}()
		log.Info("revalidation notices routed through kafka", "brokers", brokers, "topic", cfg.KafkaTopic)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServerMetrics(cfg.ServiceName, reg)

	authz := auth.ContextAuthorizer{}
	orderService := service.NewOrderService(repo, authz, notifiers,
		service.WithOrderCache(orderCache),
		service.WithMetrics(serverMetrics),
		service.WithLogger(log),
	)
	giftService := service.NewGiftService(gifts, authz, notifiers, log)
	cartService := service.NewCartService(storage, giftService, orderService, log)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if cfg.AdminEmail == "" || cfg.AdminPasswordHash == "" {
		log.Warn("ADMIN_EMAIL or ADMIN_PASSWORD_HASH not set; admin login disabled")
	}

	router := h.NewRouter(h.RouterConfig{
		ServiceName:        cfg.ServiceName,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		SecureCookies:      cfg.SecureCookies,
		Carts:              cartService,
		Orders:             orderService,
		Gifts:              giftService,
		Login:              auth.NewAdminLogin(cfg.AdminEmail, cfg.AdminPasswordHash, issuer),
		Tokens:             issuer,
		Hub:                hub,
		Metrics:            serverMetrics,
		Gatherer:           reg,
		Log:                log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("storefront starting", "port", cfg.HTTPPort, "cart_store", cfg.CartStore, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "server error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	consumerCancel()
	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()
	select {
	case <-doneChan:
	case <-shutdownCtx.Done():
		log.Warn("revalidation consumer didn't stop in time")
	}
	log.Info("server exited")
}

// consumerGroup gives each instance its own group so notices fan out to all of them.
func consumerGroup(service string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = uuid.NewString()
	}
	return service + "-revalidate-" + host
}

func cartStorage(ctx context.Context, cfg *config.Config, client *redis.Client, log *slog.Logger) (cart.Storage, func()) {
	switch cfg.CartStore {
	case "mongo":
		db, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			fatal(log, "failed to connect to MongoDB", err)
		}
		store := cart.NewMongoStorage(db, cfg.CartTTL)
		if err := store.CreateIndexes(ctx); err != nil {
			fatal(log, "failed to create cart indexes", err)
		}
		log.Info("carts stored in MongoDB", "database", cfg.MongoDBName)
		return store, func() { db.Client().Disconnect(context.Background()) }
	case "memory":
		log.Warn("carts stored in memory; they will not survive a restart")
		return cart.NewMemoryStorage(), func() {}
	default:
		return cart.NewRedisStorage(client, cfg.CartTTL), func() {}
	}
}

// allowOrigins returns the websocket origin check. With no origins
// configured gorilla's same-origin default applies.
func allowOrigins(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		for _, o := range origins {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
