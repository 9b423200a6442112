package api

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"armsdash/internal/engine"
	"armsdash/internal/metrics"
	"armsdash/internal/models"
)

type Options struct {
	// CacheTTL of per-period aggregates; 0 keeps them forever.
	CacheTTL  time.Duration
	Tolerance float64
	Metrics   *metrics.Metrics
}

// loadState is swapped atomically once the background load finishes.
type loadState struct {
	data *engine.Dataset
	err  error
}

type Handler struct {
	state     atomic.Pointer[loadState]
	cache     *cache.Cache
	metrics   *metrics.Metrics
	tolerance float64
}

// NewHandler accepts a nil dataset: data endpoints answer 503 until SetData.
func NewHandler(data *engine.Dataset, opts Options) *Handler {
	ttl, cleanup := cache.NoExpiration, time.Duration(0)
	if opts.CacheTTL > 0 {
		ttl, cleanup = opts.CacheTTL, 2*opts.CacheTTL
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	h := &Handler{
		cache:     cache.New(ttl, cleanup),
		metrics:   m,
		tolerance: opts.Tolerance,
	}
	if data != nil {
		h.SetData(data)
	}
	return h
}

func (h *Handler) SetData(data *engine.Dataset) {
	h.cache.Flush()
	h.state.Store(&loadState{data: data})
}

func (h *Handler) SetError(err error) {
	h.state.Store(&loadState{err: err})
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/ready", h.Ready)

	api := e.Group("/api")
	api.GET("/periods", h.GetPeriods)
	api.GET("/dashboard", h.GetDashboard)
	api.GET("/metrics", h.GetMetrics)
	api.GET("/map", h.GetMap)
	api.GET("/charts/suppliers", h.GetSupplierChart)
	api.GET("/charts/categories", h.GetCategoryChart)
	api.GET("/charts/tiv", h.GetTIVChart)
	api.GET("/transfers", h.GetTransfers)
	api.GET("/ranks", h.GetRanks)
	api.GET("/reconcile", h.GetReconcile)
	api.GET("/schema", h.GetSchema)
}

// --- HELPERS ---

func (h *Handler) dataset() (*engine.Dataset, error) {
	st := h.state.Load()
	switch {
	case st == nil:
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "data is loading")
	case st.err != nil:
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "data failed to load: "+st.err.Error())
	}
	return st.data, nil
}

func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func period(c echo.Context) (engine.Period, error) {
	p, err := engine.ParsePeriod(c.QueryParam("period"))
	if err != nil {
		return engine.Period{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return p, nil
}

// dashboard returns the cached aggregate for the period. The cached supplier
// chart holds every supplier; handlers cut it down per request.
func (h *Handler) dashboard(c echo.Context) (*models.DashboardData, error) {
	ds, err := h.dataset()
	if err != nil {
		return nil, err
	}
	p, err := period(c)
	if err != nil {
		return nil, err
	}

	key := "dashboard:" + p.Name
	if v, ok := h.cache.Get(key); ok {
		h.metrics.CacheHit()
		return v.(*models.DashboardData), nil
	}
	h.metrics.CacheMiss()

	opts := engine.DefaultAggregateOptions()
	opts.TopSuppliers = max(len(ds.Transfers.SupplierDict), 1)
	data := ds.Dashboard(p, opts)
	h.cache.SetDefault(key, data)
	return data, nil
}

// withStyle copies the cached map and applies the requested style.
func withStyle(fm models.FlowMap, c echo.Context) models.FlowMap {
	fm.Style = engine.NormalizeMapStyle(c.QueryParam("map_style"))
	return fm
}

// --- HANDLERS ---

func (h *Handler) Healthz(c echo.Context) error {
	status := "ok"
	if st := h.state.Load(); st == nil {
		status = "loading"
	} else if st.err != nil {
		status = "failed"
	}
	return c.JSON(http.StatusOK, map[string]string{"status": status})
}

func (h *Handler) Ready(c echo.Context) error {
	if _, err := h.dataset(); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) GetPeriods(c echo.Context) error {
	options := make([]models.PeriodInfo, len(engine.Periods))
	for i, p := range engine.Periods {
		options[i] = p.Info()
	}
	return respond(c, map[string]interface{}{
		"options": options,
		"default": engine.PeriodAll.Name,
	})
}

func (h *Handler) GetDashboard(c echo.Context) error {
	data, err := h.dashboard(c)
	if err != nil {
		return err
	}
	out := *data
	out.Suppliers = engine.TopSuppliers(data.Suppliers.Items, engine.DefaultTopSuppliers)
	out.Map = withStyle(out.Map, c)
	return respond(c, out)
}

func (h *Handler) GetMetrics(c echo.Context) error {
	data, err := h.dashboard(c)
	if err != nil {
		return err
	}
	return respond(c, data.Metrics)
}

func (h *Handler) GetMap(c echo.Context) error {
	data, err := h.dashboard(c)
	if err != nil {
		return err
	}
	return respond(c, withStyle(data.Map, c))
}

// returns the top suppliers by delivered weapons, 10 unless limit is given
func (h *Handler) GetSupplierChart(c echo.Context) error {
	limit, _ := getPaginationParams(c, engine.DefaultTopSuppliers)
	data, err := h.dashboard(c)
	if err != nil {
		return err
	}
	return respond(c, engine.TopSuppliers(data.Suppliers.Items, limit))
}

func (h *Handler) GetCategoryChart(c echo.Context) error {
	data, err := h.dashboard(c)
	if err != nil {
		return err
	}
	return respond(c, data.Categories)
}

func (h *Handler) GetTIVChart(c echo.Context) error {
	data, err := h.dashboard(c)
	if err != nil {
		return err
	}
	return respond(c, data.TIV)
}

func (h *Handler) GetTransfers(c echo.Context) error {
	ds, err := h.dataset()
	if err != nil {
		return err
	}
	p, err := period(c)
	if err != nil {
		return err
	}

	sel := ds.Transfers.Filter(p)
	total := len(sel)
	limit, offset := getPaginationParams(c, total)

	page := models.Page[models.TransferRow]{
		Data:   []models.TransferRow{},
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	if offset < total {
		end := total
		if limit < total-offset {
			end = offset + limit
		}
		page.Data = ds.Transfers.Rows(sel[offset:end])
	}
	return respond(c, page)
}

func (h *Handler) GetRanks(c echo.Context) error {
	ds, err := h.dataset()
	if err != nil {
		return err
	}
	return respond(c, ds.Ranks.Rows)
}

func (h *Handler) GetReconcile(c echo.Context) error {
	ds, err := h.dataset()
	if err != nil {
		return err
	}
	return respond(c, ds.Reconcile(h.tolerance))
}

func (h *Handler) GetSchema(c echo.Context) error {
	ds, err := h.dataset()
	if err != nil {
		return err
	}
	return respond(c, []models.TableSchema{ds.Transfers.Schema(), ds.Ranks.Schema()})
}
