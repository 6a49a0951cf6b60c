package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/logging"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/repository"
)

func main() {
	configDir := flag.String("config", "./configs", "directory holding base.yaml and <env>.yaml")
	envName := flag.String("env", os.Getenv("STOREFRONT_ENV"), "environment overlay name, e.g. dev")
	flag.Parse()

	if err := run(*configDir, *envName); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

func run(configDir, envName string) error {
	cfg, err := config.Load(configDir, envName)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logging.Init(cfg.App.Name, cfg.App.LogFile, cfg.App.LogLevel)
	log.Info("storefront starting", "env", envName, "addr", cfg.App.HTTPAddr, "cart_backend", cfg.Cart.Backend)

	// Orders + outbox
	creds := &repository.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.Postgres.MigrationsDirPath,
	}
	repo, err := repository.NewRepository(creds)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("database migrations completed")

	// Catalog
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	mongoDB, err := catalog.ConnectMongoDB(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	cancelConnect()
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			log.Warn("mongo disconnect failed", "err", err)
		}
	}()
	lookup := catalog.NewGuarded(catalog.NewMongoCatalog(mongoDB), catalog.BreakerSettings{
		Timeout:      cfg.Catalog.Timeout,
		MaxRequests:  cfg.Catalog.BreakerMaxRequests,
		OpenTimeout:  cfg.Catalog.BreakerOpenTimeout,
		FailureTrips: cfg.Catalog.BreakerFailureTrips,
	})

	// Redis backs the durable cart and checkout idempotency keys.
	var (
		rdb       *redis.Client
		cartStore cart.Store
		idem      checkout.IdempotencyStore
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			if cfg.Cart.Backend == "redis" {
				return fmt.Errorf("connect to redis: %w", err)
			}
			log.Warn("redis unreachable, idempotency keys disabled", "err", err)
			rdb = nil
		}
	}
	if rdb != nil {
		idem = checkout.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
	}
	switch cfg.Cart.Backend {
	case "redis":
		cartStore = cart.NewRedisStore(rdb, cfg.Cart.TTL)
	default:
		cartStore = cart.NewMemoryStore()
	}

	// Services
	cartSvc := cart.NewService(cartStore)
	checkoutSvc := checkout.NewService(repo, lookup, cartSvc, idem)
	ordersSvc := orders.NewService(repo, lookup)

	verifier, err := auth.NewVerifier([]byte(cfg.Security.JWTSecret), cfg.Security.Issuer)
	if err != nil {
		return err
	}

	router := h.NewRouter(
		h.RouterConfig{
			RequestTimeout:     cfg.HTTP.RequestTimeout,
			MaxRequestBodySize: cfg.HTTP.MaxRequestBodySize,
			Logger:             logging.New("http"),
		},
		h.Handlers{
			Cart:     h.NewCartHandler(cartSvc, cfg.HTTP.RequestTimeout),
			Checkout: h.NewCheckoutHandler(checkoutSvc, cartSvc, cfg.HTTP.RequestTimeout),
			Orders:   h.NewOrdersHandler(ordersSvc, cfg.HTTP.RequestTimeout),
			Admin:    h.NewAdminHandler(ordersSvc, cfg.HTTP.RequestTimeout),
		},
		auth.NewResolver(verifier),
	)

	// Outbox publisher
	var wg sync.WaitGroup
	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	defer pollerCancel()
	var poller *publisher.OutboxPoller
	if len(cfg.Kafka.Brokers) > 0 {
		poller = publisher.NewOutboxPoller(repo, cfg.Kafka.Topic, cfg.Kafka.PollInterval, cfg.Kafka.BatchSize, cfg.Kafka.Brokers...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(pollerCtx)
		}()
		log.Info("outbox publisher started", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.App.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "err", err)
	}

	pollerCancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("outbox publisher did not stop in time")
	}
	if poller != nil {
		if err := poller.Close(); err != nil {
			log.Warn("kafka writer close failed", "err", err)
		}
	}

	log.Info("storefront stopped")
	return nil
}
