package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/sims/internal/config"
	"github.com/Simplici0/sims/internal/db"
	"github.com/Simplici0/sims/internal/httpx"
	"github.com/Simplici0/sims/internal/metrics"
	"github.com/Simplici0/sims/internal/migrations"
	"github.com/Simplici0/sims/internal/store"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "server-test.db"))
	require.NoError(t, err, "open sqlite database")
	t.Cleanup(func() { database.Close() })
	require.NoError(t, migrations.Up(database), "run migrations")

	srv := &server{
		store:   store.New(database),
		log:     zerolog.Nop(),
		metrics: metrics.New(),
	}
	return srv.routes(config.Config{
		AppEnv:             "test",
		RateLimitPerMinute: 10000,
		RequestTimeout:     5 * time.Second,
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func mustStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, "body: %s", rec.Body.String())
}

func putSettings(t *testing.T, h http.Handler, overrides map[string]string) {
	t.Helper()
	body := map[string]string{
		"hourly_rate":           "0",
		"wear_tear_markup":      "0",
		"platform_fees":         "0",
		"filament_spool_price":  "18",
		"desired_profit_margin": "0",
		"packaging_cost":        "0",
		"spool_weight":          "1000",
		"filament_markup":       "20",
	}
	for k, v := range overrides {
		body[k] = v
	}
	mustStatus(t, do(t, h, http.MethodPut, "/api/settings", body), http.StatusOK)
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	mustStatus(t, rec, http.StatusOK)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestSettings_DefaultsThenZeroRoundTrip(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/api/settings", nil)
	mustStatus(t, rec, http.StatusOK)
	got := decode[map[string]any](t, rec)
	assert.Equal(t, "18", got["filament_spool_price"])
	assert.Equal(t, "0", got["hourly_rate"])
	assert.Equal(t, true, got["pricable"])

	putSettings(t, h, map[string]string{"filament_spool_price": "0", "spool_weight": "0", "filament_markup": "0"})

	got = decode[map[string]any](t, do(t, h, http.MethodGet, "/api/settings", nil))
	for _, key := range []string{"hourly_rate", "filament_spool_price", "spool_weight", "filament_markup", "packaging_cost"} {
		assert.Equal(t, "0", got[key], key)
	}
}

func TestSettings_AcceptsNumbersAndFlagsUnpricable(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPut, "/api/settings", `{
		"hourly_rate": 20, "wear_tear_markup": 5, "platform_fees": 40,
		"filament_spool_price": 18, "desired_profit_margin": 60,
		"packaging_cost": 0.5, "spool_weight": 1000, "filament_markup": 20
	}`)
	mustStatus(t, rec, http.StatusOK)
	got := decode[map[string]any](t, rec)
	assert.Equal(t, "0.5", got["packaging_cost"])
	assert.Equal(t, false, got["pricable"])
}

func TestSettings_Rejections(t *testing.T) {
	h := newTestHandler(t)

	t.Run("negative value", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/api/settings", map[string]string{
			"hourly_rate": "-1", "wear_tear_markup": "0", "platform_fees": "0",
			"filament_spool_price": "0", "desired_profit_margin": "0",
			"packaging_cost": "0", "spool_weight": "0", "filament_markup": "0",
		})
		mustStatus(t, rec, http.StatusBadRequest)
		assert.Contains(t, rec.Body.String(), "hourly_rate")
	})

	t.Run("missing field", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/api/settings", map[string]string{"hourly_rate": "1"})
		mustStatus(t, rec, http.StatusBadRequest)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		problem := decode[httpx.ProblemDetail](t, rec)
		assert.Equal(t, "required", problem.Fields["packaging_cost"])
	})

	t.Run("overflowing value is not stored", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/api/settings", map[string]string{
			"hourly_rate": "1e400", "wear_tear_markup": "0", "platform_fees": "0",
			"filament_spool_price": "0", "desired_profit_margin": "0",
			"packaging_cost": "0", "spool_weight": "0", "filament_markup": "0",
		})
		mustStatus(t, rec, http.StatusBadRequest)
		assert.Contains(t, rec.Body.String(), "hourly_rate")

		rec = do(t, h, http.MethodGet, "/api/settings", nil)
		mustStatus(t, rec, http.StatusOK)
		assert.Equal(t, "0", decode[map[string]any](t, rec)["hourly_rate"])
	})

	t.Run("empty body", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/api/settings", "")
		mustStatus(t, rec, http.StatusBadRequest)
	})
}

func TestErrorMapping(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown filament", http.MethodGet, "/api/filaments/999", nil, http.StatusNotFound},
		{"unknown product", http.MethodGet, "/api/products/999", nil, http.StatusNotFound},
		{"non-numeric id", http.MethodGet, "/api/parts/abc", nil, http.StatusBadRequest},
		{"bad material", http.MethodPost, "/api/filaments", map[string]any{"name": "x", "material": "WOOD", "color": "#ffffff"}, http.StatusBadRequest},
		{"bad business", http.MethodPost, "/api/products", map[string]any{"name": "x", "business": "Nope"}, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/printers", "{", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, tc.body)
			mustStatus(t, rec, tc.want)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}

	mustStatus(t, do(t, h, http.MethodPost, "/api/printers", map[string]string{"name": "Voron"}), http.StatusCreated)
	rec := do(t, h, http.MethodPost, "/api/printers", map[string]string{"name": "Voron"})
	mustStatus(t, rec, http.StatusConflict)
}

func TestMetricsEndpointExposesGauges(t *testing.T) {
	h := newTestHandler(t)

	mustStatus(t, do(t, h, http.MethodGet, "/api/filaments", nil), http.StatusOK)

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	mustStatus(t, rec, http.StatusOK)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "sims_low_stock_items"), "metrics output missing low stock gauge")
	assert.Contains(t, body, "sims_http_requests_total")
}
