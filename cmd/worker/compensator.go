package worker

import (
	"fmt"
	"strings"

	"github.com/jmehdipour/saga-coordinator/internal/db"
	"github.com/jmehdipour/saga-coordinator/internal/dispatcher"
	"github.com/jmehdipour/saga-coordinator/internal/kafka"
	"github.com/jmehdipour/saga-coordinator/internal/repository"
	"github.com/jmehdipour/saga-coordinator/internal/service/txconsistent"
	"github.com/jmehdipour/saga-coordinator/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var compensatorCmd = &cobra.Command{
	Use:   "compensator",
	Short: "Dispatch compensations for aborted and timed-out sagas",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.PoolOptsFrom(cfg.MySQL))
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer dbx.Close()

		// participants → dispatcher
		var parts []dispatcher.Participant
		for _, pc := range cfg.Participants {
			if !pc.Enabled || strings.TrimSpace(pc.BaseURL) == "" {
				continue
			}
			pc.BaseURL = strings.TrimRight(pc.BaseURL, "/")
			parts = append(parts, dispatcher.NewHTTPParticipant(pc))
		}
		if len(parts) == 0 {
			return fmt.Errorf("no participants enabled in config")
		}
		disp := dispatcher.NewDispatcher(parts, cfg.Compensator.MaxAttempts)

		// read-only use of the engine: no relay, no metrics hook
		engine := txconsistent.New(
			repository.NewTxEventRepository(dbx),
			nil, nil, nil,
			txconsistent.WithLogger(log.Named("txconsistent")),
		)

		rc := kafka.ReaderConfigFrom(cfg.Kafka, "compensator")
		consumer := kafka.NewConsumerFromConfig(rc)
		defer consumer.Close()

		w := worker.NewCompensator(consumer, engine, disp, log.Named("compensator"))
		if cfg.Compensator.WorkerCount > 0 {
			w.Workers = cfg.Compensator.WorkerCount
		}
		if cfg.Compensator.Rounds > 0 {
			w.Rounds = cfg.Compensator.Rounds
		}
		if cfg.Compensator.RetryBackoff > 0 {
			w.RetryBackoff = cfg.Compensator.RetryBackoff
		}

		log.Info("compensator started",
			zap.String("topic", rc.Topic),
			zap.String("group", rc.GroupID),
			zap.Int("participants", len(parts)),
			zap.Int("workers", w.Workers))

		return run(log, w.Run)
	},
}
