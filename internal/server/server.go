package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"armsdash/internal/api"
	"armsdash/internal/config"
	"armsdash/internal/engine"
	"armsdash/internal/logging"
	"armsdash/internal/metrics"
	"armsdash/internal/report"
	"armsdash/internal/web"
)

type Server struct {
	Echo    *echo.Echo
	Handler *api.Handler
	Metrics *metrics.Metrics
	cfg     *config.Config
}

// New wires echo with the dashboard API, the page, the report and /metrics.
// The API answers 503 until Load (or SetData) completes.
func New(cfg *config.Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(logging.EchoLevel())
	e.JSONSerializer = api.JSONSerializer{}
	e.Renderer = web.NewRenderer()

	m := metrics.New()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.CORS())
	e.Use(logging.RequestLogger())
	e.Use(m.Middleware())
	if cfg.Server.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.RateLimit))))
	}

	h := api.NewHandler(nil, api.Options{
		CacheTTL:  cfg.Cache.TTL,
		Tolerance: cfg.Reconcile.Tolerance,
		Metrics:   m,
	})
	h.RegisterRoutes(e)
	web.RegisterRoutes(e)
	report.NewHandler(cfg.Report.Dir).RegisterRoutes(e)
	e.GET("/metrics", m.Handler())

	return &Server{Echo: e, Handler: h, Metrics: m, cfg: cfg}
}

// Load reads both Parquet files and publishes them to the API.
func (s *Server) Load(ctx context.Context) error {
	log.Info("BACKGROUND: loading dataset...")
	t0 := time.Now()

	ds, err := engine.Load(ctx, s.cfg.Data.Transfers, s.cfg.Data.Ranks)
	if err != nil {
		s.Metrics.LoadErrors.Inc()
		s.Handler.SetError(err)
		return err
	}
	s.Metrics.ObserveLoad(time.Since(t0), ds.Transfers.Len(), len(ds.Ranks.Rows))
	s.Handler.SetData(ds)

	log.WithField("took", time.Since(t0)).Info("BACKGROUND: dataset loaded, API is fully ready")
	return nil
}

func (s *Server) Start() error {
	return s.Echo.Start(s.cfg.Server.Address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
