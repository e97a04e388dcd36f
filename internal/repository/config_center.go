package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/jmoiron/sqlx"
)

type ConfigCenterRepository interface {
	SelectByType(ctx context.Context, instanceID, category string, status model.ConfigStatus, typ model.ConfigType) ([]model.ConfigCenter, error)
	Get(ctx context.Context, id int64) (*model.ConfigCenter, error)
	List(ctx context.Context, limit, offset int, search string) ([]model.ConfigCenter, error)
	Count(ctx context.Context, search string) (int64, error)
	Create(ctx context.Context, c *model.ConfigCenter) error
	Update(ctx context.Context, c *model.ConfigCenter) (bool, error)
	Delete(ctx context.Context, id int64) error
}

type ConfigCenterRepositoryImpl struct {
	db *sqlx.DB
}

func NewConfigCenterRepository(db *sqlx.DB) *ConfigCenterRepositoryImpl {
	return &ConfigCenterRepositoryImpl{db: db}
}

var _ ConfigCenterRepository = (*ConfigCenterRepositoryImpl)(nil)

const configColumns = `id, service_name, instance_id, category, status, ability, type, value, remark, update_time`

// withTx runs fn in the provided tx, or starts a new transaction when tx is nil.
func (r *ConfigCenterRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}

	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}

	return t.Commit()
}

// SelectByType returns the global row(s) of a type plus the rows owned by instanceID,
// ordered by id.
func (r *ConfigCenterRepositoryImpl) SelectByType(ctx context.Context, instanceID, category string, status model.ConfigStatus, typ model.ConfigType) ([]model.ConfigCenter, error) {
	q := `SELECT ` + configColumns + `
		FROM config_center
		WHERE status = ? AND type = ?
		  AND (TRIM(instance_id) = '' OR (instance_id = ? AND (TRIM(category) = '' OR category = ?)))
		ORDER BY id ASC`

	var rows []model.ConfigCenter
	if err := r.db.SelectContext(ctx, &rows, q, status, typ, instanceID, category); err != nil {
		return nil, err
	}
	return rows, nil
}

// Get returns nil, nil when the row does not exist.
func (r *ConfigCenterRepositoryImpl) Get(ctx context.Context, id int64) (*model.ConfigCenter, error) {
	var c model.ConfigCenter
	err := r.db.GetContext(ctx, &c, `SELECT `+configColumns+` FROM config_center WHERE id = ? LIMIT 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConfigCenterRepositoryImpl) List(ctx context.Context, limit, offset int, search string) ([]model.ConfigCenter, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + configColumns + ` FROM config_center WHERE status = ?`
	args := []any{model.ConfigStatusNormal}
	if search != "" {
		q += " AND (service_name LIKE ? OR instance_id LIKE ? OR category LIKE ? OR value LIKE ?)"
		like := "%" + search + "%"
		args = append(args, like, like, like, like)
	}
	q += " ORDER BY update_time DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.ConfigCenter
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ConfigCenterRepositoryImpl) Count(ctx context.Context, search string) (int64, error) {
	q := `SELECT COUNT(1) FROM config_center WHERE status = ?`
	args := []any{model.ConfigStatusNormal}
	if search != "" {
		q += " AND (service_name LIKE ? OR instance_id LIKE ? OR category LIKE ? OR value LIKE ?)"
		like := "%" + search + "%"
		args = append(args, like, like, like, like)
	}
	var n int64
	if err := r.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *ConfigCenterRepositoryImpl) Create(ctx context.Context, c *model.ConfigCenter) error {
	c.UpdateTime = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO config_center (service_name, instance_id, category, status, ability, type, value, remark, update_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ServiceName, c.InstanceID, c.Category, c.Status, c.Ability, c.Type, c.Value, c.Remark, c.UpdateTime)
	if err != nil {
		return fmt.Errorf("insert config_center: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// Update returns false when no row with c.ID exists.
func (r *ConfigCenterRepositoryImpl) Update(ctx context.Context, c *model.ConfigCenter) (bool, error) {
	found := false
	err := r.withTx(ctx, nil, func(tx *sqlx.Tx) error {
		var one int
		err := tx.QueryRowxContext(ctx, `SELECT 1 FROM config_center WHERE id = ? FOR UPDATE`, c.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		c.UpdateTime = time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			UPDATE config_center
			   SET service_name = ?, instance_id = ?, category = ?, status = ?, ability = ?,
			       type = ?, value = ?, remark = ?, update_time = ?
			 WHERE id = ?
		`, c.ServiceName, c.InstanceID, c.Category, c.Status, c.Ability, c.Type, c.Value, c.Remark, c.UpdateTime, c.ID)
		return err
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (r *ConfigCenterRepositoryImpl) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM config_center WHERE id = ?`, id)
	return err
}
