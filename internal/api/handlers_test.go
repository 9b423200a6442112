package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"armsdash/internal/engine"
	"armsdash/internal/metrics"
	"armsdash/internal/models"
	"armsdash/internal/testutil"
)

func sampleDataset(t *testing.T) *engine.Dataset {
	t.Helper()
	ds, err := engine.Load(context.Background(),
		testutil.WriteTransfers(t, testutil.SampleTransfers()),
		testutil.WriteRanks(t, testutil.SampleRanks()),
	)
	require.NoError(t, err)
	return ds
}

func newTestServer(t *testing.T, ds *engine.Dataset) (*echo.Echo, *Handler, *metrics.Metrics) {
	t.Helper()
	e := echo.New()
	e.JSONSerializer = JSONSerializer{}
	m := metrics.New()
	h := NewHandler(ds, Options{Tolerance: engine.DefaultTolerance, Metrics: m})
	h.RegisterRoutes(e)
	return e, h, m
}

func get(e *echo.Echo, target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestLoadingReturns503(t *testing.T) {
	e, h, _ := newTestServer(t, nil)

	for _, path := range []string{"/api/dashboard", "/api/metrics", "/api/transfers", "/api/ranks", "/ready"} {
		rec := get(e, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
	assert.Contains(t, get(e, "/api/metrics").Body.String(), "data is loading")

	// Periods need no data.
	assert.Equal(t, http.StatusOK, get(e, "/api/periods").Code)
	assert.Equal(t, "loading", decode[map[string]string](t, get(e, "/healthz"))["status"])

	h.SetError(errors.New("open parquet: no such file"))
	rec := get(e, "/api/metrics")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "no such file")
	assert.Equal(t, "failed", decode[map[string]string](t, get(e, "/healthz"))["status"])

	h.SetData(sampleDataset(t))
	assert.Equal(t, http.StatusOK, get(e, "/api/metrics").Code)
	assert.Equal(t, http.StatusOK, get(e, "/ready").Code)
}

func TestGetDashboard(t *testing.T) {
	e, _, _ := newTestServer(t, sampleDataset(t))

	rec := get(e, "/api/dashboard?period=2022-2024&map_style=dark")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decode[models.DashboardData](t, rec)
	assert.Equal(t, "2022-2024", data.Period)
	assert.Equal(t, 3, data.Metrics.Countries)
	require.NotNil(t, data.Metrics.Rank)
	assert.Equal(t, 1, *data.Metrics.Rank)
	assert.Equal(t, "dark", data.Map.Style)
	assert.Len(t, data.Map.Arcs, 3)

	// Style does not leak into the cached aggregate.
	m := decode[models.FlowMap](t, get(e, "/api/map?period=2022-2024"))
	assert.Equal(t, "light", m.Style)
}

func TestGetMetricsPeriods(t *testing.T) {
	e, _, _ := newTestServer(t, sampleDataset(t))

	all := decode[models.Metrics](t, get(e, "/api/metrics"))
	assert.Equal(t, 4, all.Countries)
	assert.Equal(t, int64(477), all.WeaponsDelivered)
	assert.Nil(t, all.Rank)

	pre := decode[models.Metrics](t, get(e, "/api/metrics?period=2014-2021"))
	assert.Equal(t, int64(115), pre.WeaponsDelivered)
	assert.Equal(t, "0.1%", pre.ShareFmt)

	rec := get(e, "/api/metrics?period=1990")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown period")
}

func TestGetCharts(t *testing.T) {
	e, _, _ := newTestServer(t, sampleDataset(t))

	sup := decode[models.BarChart](t, get(e, "/api/charts/suppliers?limit=2"))
	require.Len(t, sup.Items, 2)
	assert.Equal(t, "Poland", sup.Items[1].Label)

	sup = decode[models.BarChart](t, get(e, "/api/charts/suppliers"))
	assert.Len(t, sup.Items, 4)

	cat := decode[models.BarChart](t, get(e, "/api/charts/categories?period=2014-2021"))
	assert.Len(t, cat.Items, 3)

	tiv := decode[models.BarChart](t, get(e, "/api/charts/tiv?period=2022-2024"))
	require.NotEmpty(t, tiv.Items)
	last := tiv.Items[len(tiv.Items)-1]
	assert.Equal(t, "Armoured vehicles", last.Label)
	assert.Equal(t, 550.0, last.Value)
}

func TestGetTransfersPagination(t *testing.T) {
	e, _, _ := newTestServer(t, sampleDataset(t))

	page := decode[models.Page[models.TransferRow]](t, get(e, "/api/transfers"))
	assert.Equal(t, 8, page.Total)
	assert.Len(t, page.Data, 8)
	assert.Equal(t, "Germany", page.Data[0].Supplier)

	page = decode[models.Page[models.TransferRow]](t, get(e, "/api/transfers?period=2022-2024&limit=2&offset=4"))
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "M1A1 Abrams", page.Data[0].WeaponDesignation)

	page = decode[models.Page[models.TransferRow]](t, get(e, "/api/transfers?offset=100"))
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)

	// offset+limit would overflow int
	rec := get(e, "/api/transfers?limit=9223372036854775807&offset=1")
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[models.Page[models.TransferRow]](t, rec)
	assert.Len(t, page.Data, 7)
}

func TestSupplierLimitSharesCache(t *testing.T) {
	e, h, _ := newTestServer(t, sampleDataset(t))

	for limit := 1; limit <= 50; limit++ {
		rec := get(e, fmt.Sprintf("/api/charts/suppliers?limit=%d", limit))
		require.Equal(t, http.StatusOK, rec.Code)
		chart := decode[models.BarChart](t, rec)
		assert.Len(t, chart.Items, min(limit, 4))
		assert.Equal(t, fmt.Sprintf("Delivered Weapons by Country (Top %d)", limit), chart.Title)
	}
	for _, p := range []string{"All", "2014-2021", "2022-2024"} {
		get(e, "/api/dashboard?period="+p)
		get(e, "/api/charts/suppliers?limit=3&period="+p)
	}
	assert.LessOrEqual(t, h.cache.ItemCount(), 3)

	// The dashboard still shows the default top list.
	data := decode[models.DashboardData](t, get(e, "/api/dashboard"))
	assert.Equal(t, "Delivered Weapons by Country (Top 10)", data.Suppliers.Title)
	assert.Len(t, data.Suppliers.Items, 4)
}

func TestGetRanksReconcileSchema(t *testing.T) {
	e, _, _ := newTestServer(t, sampleDataset(t))

	ranks := decode[[]models.RankRow](t, get(e, "/api/ranks"))
	assert.Len(t, ranks, 2)

	results := decode[[]models.ReconcileResult](t, get(e, "/api/reconcile"))
	require.Len(t, results, 2)
	assert.True(t, results[0].OK)
	assert.True(t, results[1].OK)

	schemas := decode[[]models.TableSchema](t, get(e, "/api/schema"))
	require.Len(t, schemas, 2)
	assert.Equal(t, 8, schemas[0].Rows)
	assert.Len(t, schemas[0].Columns, 13)
	assert.Equal(t, 2, schemas[1].Rows)
	assert.Len(t, schemas[1].Columns, 5)
}

func TestETagAndCache(t *testing.T) {
	e, _, m := newTestServer(t, sampleDataset(t))

	first := get(e, "/api/charts/categories")
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	second := get(e, "/api/charts/categories", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, second.Code)
	assert.Empty(t, second.Body.Bytes())

	assert.Equal(t, 1.0, promtest.ToFloat64(m.Cache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Cache.WithLabelValues("hit")))

	other := get(e, "/api/charts/categories?period=2014-2021")
	assert.NotEqual(t, etag, other.Header().Get("ETag"))
}

func TestETagMatchForms(t *testing.T) {
	e, _, _ := newTestServer(t, sampleDataset(t))

	etag := get(e, "/api/charts/tiv").Header().Get("ETag")
	require.NotEmpty(t, etag)

	tests := []struct {
		header string
		want   int
	}{
		{etag, http.StatusNotModified},
		{"W/" + etag, http.StatusNotModified},
		{`"0000000000000000", ` + etag, http.StatusNotModified},
		{"*", http.StatusNotModified},
		{`"0000000000000000"`, http.StatusOK},
		{"", http.StatusOK},
	}
	for _, tt := range tests {
		rec := get(e, "/api/charts/tiv", "If-None-Match", tt.header)
		assert.Equal(t, tt.want, rec.Code, tt.header)
	}
}

func TestGetPeriods(t *testing.T) {
	e, _, _ := newTestServer(t, nil)

	var body struct {
		Options []models.PeriodInfo `json:"options"`
		Default string              `json:"default"`
	}
	require.NoError(t, json.Unmarshal(get(e, "/api/periods").Body.Bytes(), &body))
	assert.Equal(t, "All", body.Default)
	require.Len(t, body.Options, 3)
	assert.Equal(t, models.PeriodInfo{Name: "2014-2021", From: 2014, To: 2021}, body.Options[1])
}
