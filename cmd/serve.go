package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/config"
	"github.com/jmehdipour/saga-coordinator/internal/db"
	httpSrv "github.com/jmehdipour/saga-coordinator/internal/http"
	"github.com/jmehdipour/saga-coordinator/internal/kafka"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coordinator HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.PoolOptsFrom(cfg.MySQL))
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		chDB, err := db.NewClickHouseConnection(cfg.ClickHouse.DSN, db.PoolOptsFrom(cfg.ClickHouse))
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		defer func() {
			_ = chDB.Close()
		}()

		redisClient := optionalRedis(cfg.Redis, log)
		if redisClient != nil {
			defer func() { _ = redisClient.Close() }()
		}

		producer := kafka.NewProducer(cfg.Kafka)
		defer func() { _ = producer.Close() }()

		server := httpSrv.NewServer(cfg, mysqlDB, chDB, redisClient, producer, log)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- server.Start(cfg.HTTP.Addr) }()

		select {
		case <-ctx.Done():
			log.Info("shutdown requested")
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server exited", zap.Error(err))
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

// optionalRedis returns nil when redis is unreachable; the rate limiter then fails open.
func optionalRedis(rc config.RedisConfig, log *zap.Logger) *redis.Client {
	client, err := db.NewRedisClient(rc)
	if err != nil {
		log.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
		return nil
	}
	return client
}
