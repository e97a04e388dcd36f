package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/db"
	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/jmehdipour/saga-coordinator/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the global config rows (idempotent)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.PoolOptsFrom(cfg.MySQL))
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		n, err := seedGlobalConfigs(ctx, repository.NewConfigCenterRepository(sqlDB))
		if err != nil {
			return err
		}
		log.Info("seed completed", zap.Int("inserted", n))
		return nil
	},
}

// seedGlobalConfigs adds a global row for every config type that has none. The value
// mirrors the type's built-in default, so seeding alone changes no answer but lets
// instance rows take effect.
func seedGlobalConfigs(ctx context.Context, repo repository.ConfigCenterRepository) (int, error) {
	inserted := 0
	for t := model.ConfigGlobalTx; t <= model.ConfigPauseGlobalTx; t++ {
		rows, err := repo.SelectByType(ctx, "", "", model.ConfigStatusNormal, t)
		if err != nil {
			return inserted, fmt.Errorf("select config type %d: %w", t, err)
		}
		if hasGlobal(rows) {
			continue
		}

		value := model.ConfigDisabled
		if t.DefaultEnabled() {
			value = model.ConfigEnabled
		}
		c := model.ConfigCenter{
			Status:  model.ConfigStatusNormal,
			Ability: model.AbilityYes,
			Type:    t,
			Value:   value,
			Remark:  "seeded global default",
		}
		if err := repo.Create(ctx, &c); err != nil {
			return inserted, fmt.Errorf("insert config type %d: %w", t, err)
		}
		inserted++
	}
	return inserted, nil
}

func hasGlobal(rows []model.ConfigCenter) bool {
	for _, r := range rows {
		if r.IsGlobal() {
			return true
		}
	}
	return false
}
