package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/jmehdipour/saga-coordinator/internal/service/configcenter"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// ConfigService is the surface of configcenter.Service used by the handlers.
type ConfigService interface {
	IsEnabledTx(ctx context.Context, instanceID, category string, typ model.ConfigType) (bool, error)
	Get(ctx context.Context, id int64) (*model.ConfigCenter, error)
	List(ctx context.Context, limit, offset int, search string) (configcenter.Page, error)
	Create(ctx context.Context, c *model.ConfigCenter) error
	Update(ctx context.Context, c *model.ConfigCenter) error
	Delete(ctx context.Context, id int64) error
}

func configEnabledHandler(configs ConfigService) echo.HandlerFunc {
	return func(c echo.Context) error {
		instanceID := strings.TrimSpace(c.QueryParam("instanceId"))
		category := strings.TrimSpace(c.QueryParam("category"))
		n, err := strconv.Atoi(c.QueryParam("type"))
		if err != nil || !model.ConfigType(n).Valid() {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid type"})
		}

		enabled, err := configs.IsEnabledTx(c.Request().Context(), instanceID, category, model.ConfigType(n))
		if err != nil {
			log.Errorf("config lookup failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		return c.JSON(http.StatusOK, map[string]any{"type": n, "enabled": enabled})
	}
}

func pathID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func configErr(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, configcenter.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, configcenter.ErrInvalidType):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid type"})
	}
	log.Errorf("config %s failed: %v", op, err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
}

func listConfigsHandler(configs ConfigService) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset := pageParams(c)
		page, err := configs.List(c.Request().Context(), limit, offset, c.QueryParam("search"))
		if err != nil {
			return configErr(c, "list", err)
		}
		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"total":   page.Total,
			"results": page.Results,
		})
	}
}

func getConfigHandler(configs ConfigService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad id"})
		}
		cfg, err := configs.Get(c.Request().Context(), id)
		if err != nil {
			return configErr(c, "get", err)
		}
		return c.JSON(http.StatusOK, cfg)
	}
}

func bindConfig(c echo.Context) (model.ConfigCenter, bool) {
	var cfg model.ConfigCenter
	if err := c.Bind(&cfg); err != nil {
		return cfg, false
	}
	cfg.InstanceID = strings.TrimSpace(cfg.InstanceID)
	cfg.Category = strings.TrimSpace(cfg.Category)
	cfg.Value = strings.TrimSpace(cfg.Value)
	if cfg.Ability != model.AbilityNo && cfg.Ability != model.AbilityYes {
		return cfg, false
	}
	if cfg.Status != model.ConfigStatusNormal && cfg.Status != model.ConfigStatusHistorical {
		return cfg, false
	}
	return cfg, cfg.Value != ""
}

func createConfigHandler(configs ConfigService) echo.HandlerFunc {
	return func(c echo.Context) error {
		cfg, ok := bindConfig(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		cfg.ID = 0
		if err := configs.Create(c.Request().Context(), &cfg); err != nil {
			return configErr(c, "create", err)
		}
		return c.JSON(http.StatusCreated, cfg)
	}
}

func updateConfigHandler(configs ConfigService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad id"})
		}
		cfg, ok := bindConfig(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		cfg.ID = id
		if err := configs.Update(c.Request().Context(), &cfg); err != nil {
			return configErr(c, "update", err)
		}
		return c.JSON(http.StatusOK, cfg)
	}
}

func deleteConfigHandler(configs ConfigService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad id"})
		}
		if err := configs.Delete(c.Request().Context(), id); err != nil {
			return configErr(c, "delete", err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
