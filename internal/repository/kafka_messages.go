package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/jmoiron/sqlx"
)

// KafkaMessageRepository persists manual-compensation notifications.
type KafkaMessageRepository interface {
	Save(ctx context.Context, m *model.KafkaMessage) error
}

type KafkaMessageRepositoryImpl struct {
	db *sqlx.DB
}

func NewKafkaMessageRepository(db *sqlx.DB) *KafkaMessageRepositoryImpl {
	return &KafkaMessageRepositoryImpl{db: db}
}

var _ KafkaMessageRepository = (*KafkaMessageRepositoryImpl)(nil)

func (r *KafkaMessageRepositoryImpl) Save(ctx context.Context, m *model.KafkaMessage) error {
	if m.CreationTime.IsZero() {
		m.CreationTime = time.Now().UTC()
	}
	const q = `
		INSERT INTO kafka_message
		    (global_tx_id, local_tx_id, status, db_driver_name, db_url, db_user_name, table_name, operation, ids, creation_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, q,
		m.GlobalTxID, m.LocalTxID, m.Status, m.DBDriverName, m.DBURL, m.DBUserName,
		m.TableName, m.Operation, m.IDs, m.CreationTime,
	)
	if err != nil {
		return fmt.Errorf("insert kafka_message: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		m.ID = id
	}
	return nil
}
