package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/config"
	"github.com/jmehdipour/saga-coordinator/internal/http/middleware"
	"github.com/jmehdipour/saga-coordinator/internal/metrics"
	"github.com/jmehdipour/saga-coordinator/internal/omega"
	"github.com/jmehdipour/saga-coordinator/internal/repository"
	"github.com/jmehdipour/saga-coordinator/internal/service/configcenter"
	"github.com/jmehdipour/saga-coordinator/internal/service/txconsistent"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

// Handlers groups what the routes need; NewServer builds it from live connections.
type Handlers struct {
	Engine  TxEngine
	Configs ConfigService
	Reports repository.CHEventsRepository
}

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client, relay txconsistent.Relay, log *zap.Logger) *Server {
	// repos (MySQL)
	txEventsRepo := repository.NewTxEventRepository(mysqlDB)
	kafkaMessagesRepo := repository.NewKafkaMessageRepository(mysqlDB)
	configRepo := repository.NewConfigCenterRepository(mysqlDB)

	// repos (ClickHouse)
	chEventsRepo := repository.NewCHEventsRepository(clickhouseDB)

	// services
	engine := txconsistent.New(
		txEventsRepo,
		kafkaMessagesRepo,
		metrics.NewTxMetrics(),
		relay,
		txconsistent.WithLogger(log.Named("txconsistent")),
	)
	configSvc := configcenter.New(configRepo, log.Named("configcenter"))

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e := newRouter(cfg, rds, log, Handlers{Engine: engine, Configs: configSvc, Reports: chEventsRepo})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &Server{e: e, log: log}
}

func newRouter(cfg config.Config, rds *redis.Client, log *zap.Logger, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMid.Recover(), omega.Middleware(), middleware.RequestLogger(log.Named("http")))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:inst:",
		Window:         time.Second,
		RetryAfterHint: true,
	})
	adminMW := middleware.AdminKeyMiddleware(cfg.HTTP.AdminKey)

	// participant routes
	v1 := e.Group("/v1", rlMW)
	v1.POST("/events", handleEventHandler(h.Engine))
	v1.POST("/events/pausable", handlePausableEventHandler(h.Engine))
	v1.GET("/sagas/:globalTxId/paused", sagaPausedHandler(h.Engine))
	v1.POST("/sagas/ended", endedSagasHandler(h.Engine))
	v1.POST("/kafka-messages", saveKafkaMessageHandler(h.Engine))
	v1.GET("/configs/enabled", configEnabledHandler(h.Configs))

	// operator routes
	e.GET("/v1/reports/events", listEventsHandler(h.Reports))

	admin := e.Group("/v1/admin", adminMW)
	admin.GET("/configs", listConfigsHandler(h.Configs))
	admin.POST("/configs", createConfigHandler(h.Configs))
	admin.GET("/configs/:id", getConfigHandler(h.Configs))
	admin.PUT("/configs/:id", updateConfigHandler(h.Configs))
	admin.DELETE("/configs/:id", deleteConfigHandler(h.Configs))

	return e
}

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
