package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCenterUpdateMissingRow(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewConfigCenterRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM config_center WHERE id = \\? FOR UPDATE").
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	ok, err := repo.Update(context.Background(), &model.ConfigCenter{ID: 9})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConfigCenterUpdateExistingRow(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewConfigCenterRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM config_center WHERE id = \\? FOR UPDATE").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("UPDATE config_center").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.Update(context.Background(), &model.ConfigCenter{ID: 3, Type: model.ConfigPauseGlobalTx, Value: model.ConfigEnabled})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConfigCenterGetNotFound(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewConfigCenterRepository(db)

	mock.ExpectQuery("FROM config_center WHERE id = \\?").WithArgs(int64(1)).WillReturnError(sql.ErrNoRows)

	c, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestConfigCenterCreate(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewConfigCenterRepository(db)

	mock.ExpectExec("INSERT INTO config_center").WillReturnResult(sqlmock.NewResult(17, 1))

	c := &model.ConfigCenter{Type: model.ConfigGlobalTx, Ability: model.AbilityYes, Value: model.ConfigEnabled}
	require.NoError(t, repo.Create(context.Background(), c))
	assert.Equal(t, int64(17), c.ID)
	assert.False(t, c.UpdateTime.IsZero())
}

func TestKafkaMessageSave(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewKafkaMessageRepository(db)

	mock.ExpectExec("INSERT INTO kafka_message").WillReturnResult(sqlmock.NewResult(5, 1))

	m := &model.KafkaMessage{GlobalTxID: "g", LocalTxID: "l", TableName: "orders", Operation: "update", IDs: "1,2"}
	require.NoError(t, repo.Save(context.Background(), m))
	assert.Equal(t, int64(5), m.ID)
}

func TestConfigCenterSelectByTypeTreatsBlankInstanceAsGlobal(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewConfigCenterRepository(db)

	cols := []string{"id", "service_name", "instance_id", "category", "status", "ability", "type", "value", "remark", "update_time"}
	mock.ExpectQuery(`TRIM\(instance_id\) = ''`).
		WithArgs(model.ConfigStatusNormal, model.ConfigCompensation, "i1", "c").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "", " ", "", 0, 1, int(model.ConfigCompensation), model.ConfigDisabled, "", time.Unix(0, 0)))

	rows, err := repo.SelectByType(context.Background(), "i1", "c", model.ConfigStatusNormal, model.ConfigCompensation)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsGlobal())
	require.NoError(t, mock.ExpectationsWereMet())
}
