package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate-market/models"
	"realestate-market/scheduler"
	"realestate-market/services"
	"realestate-market/storage"
	"realestate-market/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeListings struct {
	raw []*models.RawListing
	err error
}

func (f *fakeListings) Name() string { return "proimobil_api" }
func (f *fakeListings) URL() string  { return "https://api.example.test/properties" }
func (f *fakeListings) FetchListings(context.Context) ([]*models.RawListing, error) {
	return f.raw, f.err
}

type fakePrices struct {
	name   string
	prices []float64
	err    error
}

func (f *fakePrices) Name() string { return f.name }
func (f *fakePrices) URL() string  { return "https://" + f.name + ".example.test" }
func (f *fakePrices) FetchPrices(context.Context) ([]float64, error) {
	return f.prices, f.err
}

type busyRefresher struct{}

func (busyRefresher) TriggerRefreshNow(context.Context) (*models.RefreshReport, bool) {
	return nil, false
}

func (busyRefresher) Status() models.SchedulerStatus {
	return models.SchedulerStatus{IsRunning: true, RefreshInProgress: true}
}

var now = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func testListings() []*models.RawListing {
	return []*models.RawListing{
		{ID: "b1", Sector: "Botanica", PriceEUR: 60000, SurfaceSqm: 50, Rooms: 2, Views: 30, CreatedAt: "2024-06-20T10:00:00Z", UpdatedAt: "2024-06-25T10:00:00Z"},
		{ID: "b2", Sector: "Botanica", PriceEUR: 65000, SurfaceSqm: 52, Rooms: 2, Views: 10, CreatedAt: "2024-06-01T10:00:00Z", UpdatedAt: "2024-06-10T10:00:00Z", Deal: true},
		{ID: "c1", Sector: "Centru", PriceEUR: 110000, SurfaceSqm: 55, Rooms: 3, Views: 50, CreatedAt: "2024-05-01T10:00:00Z", UpdatedAt: "2024-06-01T10:00:00Z"},
	}
}

type fixture struct {
	router   *gin.Engine
	cache    *storage.MarketDataCache
	listings *fakeListings
	acces    *fakePrices
}

func newFixture(t *testing.T, refresher Refresher) *fixture {
	t.Helper()
	log := utils.NewSilentLogger()
	f := &fixture{
		cache:    storage.NewMarketDataCache(30*time.Minute, log),
		listings: &fakeListings{raw: testListings()},
		acces:    &fakePrices{name: "accesimobil", prices: []float64{1500, 1600, 1700, 1800}},
	}
	svc := services.NewMarketService(f.cache, services.Sources{Proimobil: f.listings, Accesimobil: f.acces}, log)
	svc.SetClock(func() time.Time { return now })

	if refresher == nil {
		refresher = scheduler.New(scheduler.MarketTasks(svc), 30*time.Minute, log)
	}
	f.router = NewRouter(Deps{
		Market:      svc,
		Cache:       f.cache,
		Scheduler:   refresher,
		Logger:      log,
		CORSOrigins: []string{"https://app.example.test"},
		Version:     "test",
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/health")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestProimobilStatsCacheAside(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/v1/market/proimobil-api")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	data := body["data"].(map[string]any)
	assert.Equal(t, 3.0, data["total_ads"])
	assert.Equal(t, services.SourceAPIRequest, body["cache"].(map[string]any)["source"])

	_, info, ok := f.cache.Get(services.KeyProimobilStats)
	require.True(t, ok)
	assert.False(t, info.IsStale)
}

func TestListingsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/api/v1/market/proimobil-api/listings")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, 3.0, body["total"])
	assert.Len(t, body["listings"], 3)
}

func TestUpstreamFailureIsBadGateway(t *testing.T) {
	f := newFixture(t, nil)
	f.acces.err = errors.New("connection reset")

	w := f.do(t, http.MethodGet, "/api/v1/market/accesimobil")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decode(t, w)["error"], "connection reset")
}

func TestMD999Disabled(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/api/v1/market/999md")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, false, decode(t, w)["enabled"])
}

func TestQuartilesEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/api/v1/market/quartiles")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, 7.0, body["total_ads"])
}

func TestInsightsNoListingsIsNotFound(t *testing.T) {
	f := newFixture(t, nil)
	f.listings.raw = nil

	w := f.do(t, http.MethodGet, "/api/v1/market/analytics/insights")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScoreEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/v1/market/analytics/score/b1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b1", decode(t, w)["listing_id"])

	w = f.do(t, http.MethodGet, "/api/v1/market/analytics/score/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPredictPriceValidation(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/v1/market/analytics/predict-price")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/market/analytics/predict-price?surface=-3")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/market/analytics/predict-price?surface=50&sector=Botanica")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSimilarAndTrendsBounds(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/v1/market/analytics/similar/b1?limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b1", decode(t, w)["reference_id"])

	w = f.do(t, http.MethodGet, "/api/v1/market/analytics/similar/b1?limit=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/market/analytics/trends?days=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/market/analytics/trends?days=7")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7.0, decode(t, w)["window_days"])
}

func TestAnalyticsEndpoints(t *testing.T) {
	f := newFixture(t, nil)
	paths := []string{
		"/api/v1/market/analytics/listing",
		"/api/v1/market/analytics/deals",
		"/api/v1/market/analytics/price-analysis",
		"/api/v1/market/analytics/investment",
		"/api/v1/market/analytics/health",
		"/api/v1/market/analytics/time-to-sell",
		"/api/v1/market/distribution",
	}
	for _, p := range paths {
		w := f.do(t, http.MethodGet, p)
		assert.Equal(t, http.StatusOK, w.Code, p)
	}
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/api/v1/market/export.csv")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 4)
}

func TestExportCSVFetchError(t *testing.T) {
	f := newFixture(t, nil)
	f.listings.err = errors.New("api down")

	w := f.do(t, http.MethodGet, "/api/v1/market/export.csv")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCacheLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/v1/cache/accesimobil")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/cache/refresh")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = f.do(t, http.MethodGet, "/api/v1/cache/accesimobil")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.SourceScheduler, decode(t, w)["cache"].(map[string]any)["source"])

	w = f.do(t, http.MethodGet, "/api/v1/cache/status")
	require.Equal(t, http.StatusOK, w.Code)
	status := decode(t, w)
	assert.Equal(t, 3.0, status["cache"].(map[string]any)["total_entries"])
	assert.Equal(t, false, status["scheduler"].(map[string]any)["is_running"])

	w = f.do(t, http.MethodDelete, "/api/v1/cache/accesimobil")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["removed"])

	w = f.do(t, http.MethodPost, "/api/v1/cache/clear")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, decode(t, w)["removed"])
}

func TestRefreshInProgressConflict(t *testing.T) {
	f := newFixture(t, busyRefresher{})
	w := f.do(t, http.MethodPost, "/api/v1/cache/refresh")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

// ctxRefresher records the context error seen by the refresh pass.
type ctxRefresher struct {
	err error
}

func (r *ctxRefresher) TriggerRefreshNow(ctx context.Context) (*models.RefreshReport, bool) {
	r.err = ctx.Err()
	return &models.RefreshReport{RunID: "run-1", Trigger: scheduler.TriggerManual}, true
}

func (r *ctxRefresher) Status() models.SchedulerStatus { return models.SchedulerStatus{} }

func TestRefreshSurvivesClientDisconnect(t *testing.T) {
	refresher := &ctxRefresher{}
	f := newFixture(t, refresher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cache/refresh", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, refresher.err)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/market/quartiles", nil)
	req.Header.Set("Origin", "https://app.example.test")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.test", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.test")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDPropagates(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}
