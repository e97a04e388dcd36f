package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/jmoiron/sqlx"
)

// TxEventRepository is the append-only event log. Reads are ordered by surrogate_id,
// which is the insertion order.
type TxEventRepository interface {
	Save(ctx context.Context, e *model.TxEvent) error
	FindTransactions(ctx context.Context, globalTxID string, typ model.EventType) ([]model.TxEvent, error)
	CheckIsExistsTxCompensatedEvent(ctx context.Context, typ model.EventType, localTxID string) (bool, error)
	CheckIsRetriedEvent(ctx context.Context, globalTxID string) (bool, error)
	SelectPausedAndContinueEvent(ctx context.Context, globalTxID string) ([]model.TxEvent, error)
	SelectEndedGlobalTx(ctx context.Context, localTxIDs []string) (map[string]struct{}, error)
}

type TxEventRepositoryImpl struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewTxEventRepository(db *sqlx.DB) *TxEventRepositoryImpl {
	return &TxEventRepositoryImpl{db: db, now: time.Now}
}

var _ TxEventRepository = (*TxEventRepositoryImpl)(nil)

const txEventColumns = `surrogate_id, service_name, instance_id, creation_time, global_tx_id, local_tx_id,
	parent_tx_id, type, compensation_method, expiry_time, retry_method, retries, category, payloads`

// Save appends one event and fills in SurrogateID (and CreationTime when unset).
func (r *TxEventRepositoryImpl) Save(ctx context.Context, e *model.TxEvent) error {
	if e.CreationTime.IsZero() {
		e.CreationTime = r.now().UTC()
	}
	const q = `
		INSERT INTO tx_event
		    (service_name, instance_id, creation_time, global_tx_id, local_tx_id, parent_tx_id,
		     type, compensation_method, expiry_time, retry_method, retries, category, payloads)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, q,
		e.ServiceName, e.InstanceID, e.CreationTime, e.GlobalTxID, e.LocalTxID, e.ParentTxID,
		e.Type.String(), e.CompensationMethod, e.ExpiryTime, e.RetryMethod, e.Retries, e.Category, e.Payloads,
	)
	if err != nil {
		return fmt.Errorf("insert tx_event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("tx_event last insert id: %w", err)
	}
	e.SurrogateID = id
	return nil
}

func (r *TxEventRepositoryImpl) FindTransactions(ctx context.Context, globalTxID string, typ model.EventType) ([]model.TxEvent, error) {
	q := `SELECT ` + txEventColumns + `
		FROM tx_event
		WHERE global_tx_id = ? AND type = ?
		ORDER BY surrogate_id ASC`

	var rows []model.TxEvent
	if err := r.db.SelectContext(ctx, &rows, q, globalTxID, typ.String()); err != nil {
		return nil, err
	}
	return rows, nil
}

// CheckIsExistsTxCompensatedEvent is the de-duplication guard for (type, localTxId).
func (r *TxEventRepositoryImpl) CheckIsExistsTxCompensatedEvent(ctx context.Context, typ model.EventType, localTxID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(1) FROM tx_event WHERE local_tx_id = ? AND type = ?`, localTxID, typ.String())
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CheckIsRetriedEvent reports whether any sub-transaction of the saga was started more than once.
func (r *TxEventRepositoryImpl) CheckIsRetriedEvent(ctx context.Context, globalTxID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(1) FROM (
			SELECT local_tx_id
			  FROM tx_event
			 WHERE global_tx_id = ? AND type = ?
			 GROUP BY local_tx_id
			HAVING COUNT(1) > 1
		) retried
	`, globalTxID, model.TxStartedEvent.String())
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *TxEventRepositoryImpl) SelectPausedAndContinueEvent(ctx context.Context, globalTxID string) ([]model.TxEvent, error) {
	types := make([]string, 0, len(model.PauseClassEventTypes))
	for _, t := range model.PauseClassEventTypes {
		types = append(types, t.String())
	}
	query, args, err := sqlx.In(`SELECT `+txEventColumns+`
		FROM tx_event
		WHERE global_tx_id = ? AND type IN (?)
		ORDER BY surrogate_id ASC`, globalTxID, types)
	if err != nil {
		return nil, err
	}

	var rows []model.TxEvent
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// SelectEndedGlobalTx returns the subset of localTxIDs whose saga already has a SagaEndedEvent.
func (r *TxEventRepositoryImpl) SelectEndedGlobalTx(ctx context.Context, localTxIDs []string) (map[string]struct{}, error) {
	ended := make(map[string]struct{})
	if len(localTxIDs) == 0 {
		return ended, nil
	}
	query, args, err := sqlx.In(`
		SELECT DISTINCT e.local_tx_id
		  FROM tx_event e
		 WHERE e.local_tx_id IN (?)
		   AND EXISTS (
		       SELECT 1 FROM tx_event s
		        WHERE s.global_tx_id = e.global_tx_id AND s.type = ?
		   )
	`, localTxIDs, model.SagaEndedEvent.String())
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, id := range ids {
		ended[id] = struct{}{}
	}
	return ended, nil
}
