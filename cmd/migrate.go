package cmd

import (
	"fmt"

	"github.com/jmehdipour/saga-coordinator/internal/db"
	"github.com/jmehdipour/saga-coordinator/migrations"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var skipClickHouse bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the event store (MySQL) and archive (ClickHouse) tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.PoolOptsFrom(cfg.MySQL))
		if err != nil {
			return fmt.Errorf("open mysql: %w", err)
		}
		defer sqlDB.Close()

		if err := apply(sqlDB, "001_init.sql"); err != nil {
			return err
		}
		log.Info("mysql migration applied")

		if skipClickHouse {
			return nil
		}
		chDB, err := db.NewClickHouseConnection(cfg.ClickHouse.DSN, db.PoolOptsFrom(cfg.ClickHouse))
		if err != nil {
			return fmt.Errorf("open clickhouse: %w", err)
		}
		defer chDB.Close()

		if err := apply(chDB, "clickhouse/001_archive.sql"); err != nil {
			return err
		}
		log.Info("clickhouse migration applied", zap.String("table", "txle.tx_events"))
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&skipClickHouse, "skip-clickhouse", false, "only migrate MySQL")
}

func apply(dbx *sqlx.DB, file string) error {
	stmts, err := migrations.Statements(file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", file, err)
	}
	for i, s := range stmts {
		if _, err := dbx.Exec(s); err != nil {
			return fmt.Errorf("exec %s statement %d: %w", file, i+1, err)
		}
	}
	return nil
}
