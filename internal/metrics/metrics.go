package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the dashboard collectors on their own registry.
type Metrics struct {
	Registry     *prometheus.Registry
	LoadDuration prometheus.Histogram
	LoadedRows   *prometheus.GaugeVec
	LoadErrors   prometheus.Counter
	Cache        *prometheus.CounterVec
	Requests     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "armsdash",
			Name:      "load_duration_seconds",
			Help:      "Time spent loading the Parquet inputs.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		LoadedRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "armsdash",
			Name:      "loaded_rows",
			Help:      "Rows loaded per input table.",
		}, []string{"table"}),
		LoadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "armsdash",
			Name:      "load_errors_total",
			Help:      "Failed dataset loads.",
		}),
		Cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "armsdash",
			Name:      "aggregate_cache_total",
			Help:      "Per-period aggregate cache lookups by result.",
		}, []string{"result"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "armsdash",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
	}
	m.Registry.MustRegister(m.LoadDuration, m.LoadedRows, m.LoadErrors, m.Cache, m.Requests)
	return m
}

func (m *Metrics) ObserveLoad(took time.Duration, transfers, ranks int) {
	m.LoadDuration.Observe(took.Seconds())
	m.LoadedRows.WithLabelValues("trade_register").Set(float64(transfers))
	m.LoadedRows.WithLabelValues("importer_rank").Set(float64(ranks))
}

func (m *Metrics) CacheHit()  { m.Cache.WithLabelValues("hit").Inc() }
func (m *Metrics) CacheMiss() { m.Cache.WithLabelValues("miss").Inc() }

// Middleware counts requests by matched route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			return err
		}
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}
