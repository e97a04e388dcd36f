package configcenter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/jmehdipour/saga-coordinator/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrNotFound    = errors.New("config not found")
	ErrInvalidType = errors.New("invalid config type")
)

// Service answers "is feature X enabled for this omega instance" and owns the config
// CRUD, so every write invalidates the answer cache.
type Service struct {
	repo  repository.ConfigCenterRepository
	cache *enabledCache
	log   *zap.Logger
}

func New(repo repository.ConfigCenterRepository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, cache: newEnabledCache(), log: log}
}

func cacheKey(instanceID, category string, typ model.ConfigType) string {
	return instanceID + "_" + category + "_" + typ.String()
}

// IsEnabledTx resolves a config type for (instanceID, category).
// A global row is required for any row to apply; a disabled global row wins outright.
// Otherwise an instance+category row overrides the global value, falling back to an
// instance-only row. Without a global row the type's default applies.
func (s *Service) IsEnabledTx(ctx context.Context, instanceID, category string, typ model.ConfigType) (bool, error) {
	if !typ.Valid() {
		return false, fmt.Errorf("%w: %d", ErrInvalidType, typ)
	}
	key := cacheKey(instanceID, category, typ)
	v, ok, version := s.cache.Lookup(key)
	if ok {
		return v, nil
	}

	rows, err := s.repo.SelectByType(ctx, instanceID, category, model.ConfigStatusNormal, typ)
	if err != nil {
		return false, fmt.Errorf("select config by type: %w", err)
	}
	enabled := resolve(rows, typ)

	if !s.cache.Store(key, enabled, version) {
		s.log.Debug("config cache invalidated during load, answer not cached", zap.String("key", key))
	}
	return enabled, nil
}

func resolve(rows []model.ConfigCenter, typ model.ConfigType) bool {
	var global *model.ConfigCenter
	for i := range rows {
		if rows[i].IsGlobal() {
			global = &rows[i]
			break
		}
	}
	if global == nil {
		return typ.DefaultEnabled()
	}
	if global.Ability == model.AbilityNo {
		return false
	}
	value := global.Value

	if specific := firstInstanceRow(rows, true); specific != nil {
		if specific.Ability == model.AbilityYes {
			value = specific.Value
		}
	} else if fallback := firstInstanceRow(rows, false); fallback != nil {
		if fallback.Ability == model.AbilityYes {
			value = fallback.Value
		}
	}
	return value == model.ConfigEnabled
}

// firstInstanceRow finds the first instance-owned row with (withCategory) or without a category.
func firstInstanceRow(rows []model.ConfigCenter, withCategory bool) *model.ConfigCenter {
	for i := range rows {
		r := &rows[i]
		if r.IsGlobal() {
			continue
		}
		hasCategory := strings.TrimSpace(r.Category) != ""
		if hasCategory == withCategory {
			return r
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, c *model.ConfigCenter) error {
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidType, c.Type)
	}
	defer s.cache.Invalidate()
	return s.repo.Create(ctx, c)
}

func (s *Service) Update(ctx context.Context, c *model.ConfigCenter) error {
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidType, c.Type)
	}
	defer s.cache.Invalidate()
	ok, err := s.repo.Update(ctx, c)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	defer s.cache.Invalidate()
	return s.repo.Delete(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*model.ConfigCenter, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

type Page struct {
	Total   int64                `json:"total"`
	Results []model.ConfigCenter `json:"results"`
}

func (s *Service) List(ctx context.Context, limit, offset int, search string) (Page, error) {
	search = strings.TrimSpace(search)
	rows, err := s.repo.List(ctx, limit, offset, search)
	if err != nil {
		return Page{}, err
	}
	total, err := s.repo.Count(ctx, search)
	if err != nil {
		return Page{}, err
	}
	return Page{Total: total, Results: rows}, nil
}
