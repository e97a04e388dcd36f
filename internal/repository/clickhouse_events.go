package repository

import (
	"context"
	"fmt"

	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/jmoiron/sqlx"
)

// CHEventsRepository reads and writes the ClickHouse event archive.
type CHEventsRepository interface {
	InsertBatch(ctx context.Context, rows []model.ArchivedEvent) error
	ListByGlobalTx(ctx context.Context, globalTxID string, eventType string, limit, offset int) ([]model.ArchivedEvent, error)
}

type chEventsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHEventsRepository(ch *sqlx.DB) CHEventsRepository {
	return &chEventsRepository{ch: ch}
}

const chEventColumns = `envelope_id, relayed_at, service_name, instance_id, creation_time, global_tx_id,
	local_tx_id, parent_tx_id, type, compensation_method, retries, category`

// InsertBatch writes rows in one ClickHouse block. The table is a ReplacingMergeTree keyed
// by envelope_id, so a redelivered envelope collapses on merge.
func (r *chEventsRepository) InsertBatch(ctx context.Context, rows []model.ArchivedEvent) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO txle.tx_events (`+chEventColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare archive batch: %w", err)
	}
	defer stmt.Close()

	for _, e := range rows {
		if _, err := stmt.ExecContext(ctx,
			e.EnvelopeID, e.RelayedAt, e.ServiceName, e.InstanceID, e.CreationTime, e.GlobalTxID,
			e.LocalTxID, e.ParentTxID, e.Type, e.CompensationMethod, e.Retries, e.Category,
		); err != nil {
			return fmt.Errorf("append archive row %s: %w", e.EnvelopeID, err)
		}
	}
	return tx.Commit()
}

func (r *chEventsRepository) ListByGlobalTx(ctx context.Context, globalTxID string, eventType string, limit, offset int) ([]model.ArchivedEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + chEventColumns + ` FROM txle.tx_events FINAL WHERE global_tx_id = ?`
	args := []any{globalTxID}

	if eventType != "" {
		q += " AND type = ?"
		args = append(args, eventType)
	}

	q += " ORDER BY creation_time ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.ArchivedEvent
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
