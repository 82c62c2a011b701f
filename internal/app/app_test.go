package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iqccli/internal/config"
	"iqccli/internal/infrastructure"
)

func newTestApplication(t *testing.T) *Application {
	t.Helper()

	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.ReportsDir = filepath.Join(base, "reports")
	cfg.Paths.ExportDir = filepath.Join(base, "exports")
	cfg.Server.RateLimitRPS = 1000
	cfg.Server.RateLimitBurst = 1000

	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.TraceExporter = "none"
	providers, err := infrastructure.InitializeOTel(otelCfg,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	app := &Application{
		Config:        &cfg,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		OTelProviders: providers,
	}
	require.NoError(t, app.initializeServices())
	app.setupRouter()
	return app
}

func TestRouterAnalysisRoundTrip(t *testing.T) {
	app := newTestApplication(t)

	body, _ := json.Marshal(map[string]interface{}{
		"batch": map[string]string{"part_name": "Housing Cover"},
		"dimensions": []map[string]interface{}{
			{
				"name":          "outer diameter",
				"specification": "27.80+0.10-0.00",
				"measurements": []string{
					"27.85", "27.83", "27.86", "27.84", "27.85",
					"27.82", "27.84", "27.83", "27.85", "27.84",
				},
			},
		},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analysis", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	app.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var report struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))

	// The report must be visible through the archive endpoint.
	rec = httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/"+report.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouterNotFoundIsProblemJSON(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")

	// The problem document must correlate with the request ID the
	// middleware handed out.
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, rec.Header().Get("X-Request-ID"), body["trace_id"])
	assert.NotEmpty(t, body["trace_id"])
}
