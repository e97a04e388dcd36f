package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var txEventCols = []string{
	"surrogate_id", "service_name", "instance_id", "creation_time", "global_tx_id", "local_tx_id",
	"parent_tx_id", "type", "compensation_method", "expiry_time", "retry_method", "retries", "category", "payloads",
}

func TestTxEventSaveAssignsSurrogateID(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewTxEventRepository(db)
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	ev := &model.TxEvent{
		ServiceName: "order",
		InstanceID:  "order-1",
		GlobalTxID:  "g1",
		LocalTxID:   "l1",
		ParentTxID:  sql.NullString{String: "g1", Valid: true},
		Type:        model.TxStartedEvent,
		Payloads:    []byte("args"),
	}

	mock.ExpectExec("INSERT INTO tx_event").
		WithArgs("order", "order-1", fixed, "g1", "l1", sqlmock.AnyArg(),
			"TxStartedEvent", "", sqlmock.AnyArg(), "", 0, "", []byte("args")).
		WillReturnResult(sqlmock.NewResult(42, 1))

	require.NoError(t, repo.Save(context.Background(), ev))
	assert.Equal(t, int64(42), ev.SurrogateID)
	assert.Equal(t, fixed, ev.CreationTime)
}

func TestTxEventSaveWrapsError(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewTxEventRepository(db)

	mock.ExpectExec("INSERT INTO tx_event").WillReturnError(errors.New("deadlock"))

	err := repo.Save(context.Background(), &model.TxEvent{GlobalTxID: "g", LocalTxID: "l", Type: model.TxEndedEvent})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert tx_event")
}

func TestFindTransactionsScansRows(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewTxEventRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(txEventCols).
		AddRow(1, "order", "order-1", now, "g1", "l1", nil, "TxAbortedEvent", "", nil, "", 0, "", []byte(nil))
	mock.ExpectQuery("FROM tx_event").WithArgs("g1", "TxAbortedEvent").WillReturnRows(rows)

	got, err := repo.FindTransactions(context.Background(), "g1", model.TxAbortedEvent)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.TxAbortedEvent, got[0].Type)
	assert.False(t, got[0].ParentTxID.Valid)
	assert.False(t, got[0].HasExpiry())
}

func TestCheckIsExistsTxCompensatedEvent(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewTxEventRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(1\\) FROM tx_event WHERE local_tx_id = \\? AND type = \\?").
		WithArgs("l1", "TxCompensatedEvent").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery("SELECT COUNT\\(1\\) FROM tx_event WHERE local_tx_id = \\? AND type = \\?").
		WithArgs("l2", "TxCompensatedEvent").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))

	exists, err := repo.CheckIsExistsTxCompensatedEvent(context.Background(), model.TxCompensatedEvent, "l1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.CheckIsExistsTxCompensatedEvent(context.Background(), model.TxCompensatedEvent, "l2")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCheckIsRetriedEvent(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewTxEventRepository(db)

	mock.ExpectQuery("HAVING COUNT\\(1\\) > 1").
		WithArgs("g1", "TxStartedEvent").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))

	retried, err := repo.CheckIsRetriedEvent(context.Background(), "g1")
	require.NoError(t, err)
	assert.True(t, retried)
}

func TestSelectPausedAndContinueEventExpandsTypes(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewTxEventRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(txEventCols).
		AddRow(1, "order", "order-1", now, "g1", "g1", nil, "SagaPausedEvent", "", now.Add(time.Minute), "", 0, "", []byte(nil)).
		AddRow(2, "order", "order-1", now, "g1", "g1", nil, "SagaContinuedEvent", "", nil, "", 0, "", []byte(nil))
	mock.ExpectQuery("type IN \\(\\?, \\?, \\?\\)").
		WithArgs("g1", "SagaPausedEvent", "SagaContinuedEvent", "SagaAutoContinuedEvent").
		WillReturnRows(rows)

	got, err := repo.SelectPausedAndContinueEvent(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].HasExpiry())
	assert.Equal(t, model.SagaContinuedEvent, got[1].Type)
}

func TestSelectEndedGlobalTx(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewTxEventRepository(db)

	mock.ExpectQuery("SELECT DISTINCT e.local_tx_id").
		WithArgs("a", "b", "c", "SagaEndedEvent").
		WillReturnRows(sqlmock.NewRows([]string{"local_tx_id"}).AddRow("a").AddRow("c"))

	got, err := repo.SelectEndedGlobalTx(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "c": {}}, got)
}

func TestSelectEndedGlobalTxEmptyInputSkipsQuery(t *testing.T) {
	db, _ := mockDB(t)
	repo := NewTxEventRepository(db)

	got, err := repo.SelectEndedGlobalTx(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
