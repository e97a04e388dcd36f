package worker

import (
	"fmt"

	"github.com/jmehdipour/saga-coordinator/internal/db"
	"github.com/jmehdipour/saga-coordinator/internal/kafka"
	"github.com/jmehdipour/saga-coordinator/internal/repository"
	"github.com/jmehdipour/saga-coordinator/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var archiverCmd = &cobra.Command{
	Use:   "archiver",
	Short: "Copy relayed events into the ClickHouse archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		chDB, err := db.NewClickHouseConnection(cfg.ClickHouse.DSN, db.PoolOptsFrom(cfg.ClickHouse))
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		defer chDB.Close()

		rc := kafka.ReaderConfigFrom(cfg.Kafka, "archiver")
		consumer := kafka.NewConsumerFromConfig(rc)
		defer consumer.Close()

		w := worker.NewArchiver(consumer, repository.NewCHEventsRepository(chDB), log.Named("archiver"))
		if cfg.Archiver.BatchSize > 0 {
			w.BatchSize = cfg.Archiver.BatchSize
		}
		if cfg.Archiver.BatchWait > 0 {
			w.BatchWait = cfg.Archiver.BatchWait
		}

		log.Info("archiver started",
			zap.String("topic", rc.Topic),
			zap.String("group", rc.GroupID),
			zap.Int("batch_size", w.BatchSize),
			zap.Duration("batch_wait", w.BatchWait))

		return run(log, w.Run)
	},
}
