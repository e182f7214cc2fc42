package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/storefront-cart/internal/config"
	"github.com/nikolayk812/storefront-cart/internal/httpapi"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"github.com/nikolayk812/storefront-cart/internal/repository"
	"github.com/nikolayk812/storefront-cart/internal/session"
	"github.com/sirupsen/logrus"
)

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	configFile := flag.String("config", "", "optional config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := config.Load(*envFile, *configFile)
	if err != nil {
		logrus.WithError(err).Fatal("config.Load failed")
	}

	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("storefront stopped")
	}
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	log.Out = os.Stdout

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.Level = level

	if cfg.LogFormat == "text" {
		log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
		return log
	}

	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	return log
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	unit, err := cfg.Currency()
	if err != nil {
		return err
	}

	storage, catalog, closeStores, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores()

	sessions := session.NewManager(storage, cfg.RemovalDelay,
		session.WithCurrency(unit),
		session.WithLogger(log))
	defer sessions.CloseAll()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewServer(sessions, catalog, log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).WithField("storage", cfg.StorageDriver).Info("storefront listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("srv.ListenAndServe: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("srv.Shutdown: %w", err)
	}

	return nil
}

// openStores connects the cart storage chosen by STORAGE_DRIVER. The product catalog always lives
// in PostgreSQL, so the pool is opened for every driver.
func openStores(ctx context.Context, cfg config.Config, log *logrus.Logger) (port.CartStorage, port.ProductCatalog, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.ConnString())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}
	closers = append(closers, pool.Close)

	if err := pool.Ping(ctx); err != nil {
		closeAll()
		return nil, nil, nil, fmt.Errorf("pool.Ping: %w", err)
	}

	catalog := repository.NewProduct(pool)

	var storage port.CartStorage

	switch cfg.StorageDriver {
	case config.StoragePostgres:
		storage = repository.NewCart(pool)
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.RedisAddr(),
			MinIdleConns: 1,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
		})
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				log.WithError(err).Warn("redis client close failed")
			}
		})

		if err := repository.PingRedis(ctx, client, cfg.Redis.PingAttempts, log); err != nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("repository.PingRedis: %w", err)
		}
		storage = repository.NewRedisCart(client, cfg.Redis.CartTTL)
	case config.StorageMemory:
		log.Warn("carts are kept in memory and are lost on restart")
		storage = repository.NewMemoryCart()
	}

	return storage, catalog, closeAll, nil
}
