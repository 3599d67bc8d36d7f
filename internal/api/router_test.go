package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/krxscan/internal/api/handlers"
	"github.com/wonny/krxscan/internal/contracts"
	"github.com/wonny/krxscan/internal/pipeline"
	"github.com/wonny/krxscan/internal/report"
	"github.com/wonny/krxscan/internal/screening"
	"github.com/wonny/krxscan/internal/strategyconfig"
	"github.com/wonny/krxscan/pkg/config"
	"github.com/wonny/krxscan/pkg/logger"
)

type fakeRunner struct {
	mu      sync.Mutex
	release chan struct{}
	ran     []string
	ids     []string
	last    *pipeline.Result
}

func (f *fakeRunner) Run(ctx context.Context, preset strategyconfig.Preset) (*pipeline.Result, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, preset.Name)
	f.ids = append(f.ids, pipeline.RunIDFrom(ctx))
	f.last = &pipeline.Result{
		Summary: report.Summary{
			RunID:      pipeline.RunIDFrom(ctx),
			Preset:     preset.Name,
			Universe:   2,
			Duration:   1500 * time.Millisecond,
			Outcomes:   map[contracts.OutcomeKind]int{contracts.OutcomeQualified: 1, contracts.OutcomeRejected: 1},
			Rejections: map[string]int{"disparity_max": 1},
		},
		Selection: screening.Selection{Qualified: []contracts.ScreeningResult{
			{Instrument: contracts.Instrument{Code: "005930", Name: "삼성전자"}},
		}},
	}
	return f.last, errors.New("ignored by handler")
}

func (f *fakeRunner) Last() *pipeline.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func setup(t *testing.T, runner *fakeRunner) (http.Handler, *handlers.ScanHandler) {
	t.Helper()
	h := handlers.NewScanHandler(context.Background(), runner, strategyconfig.Default(), "cafebabe", logger.Nop())
	return NewRouter(h, logger.Nop()), h
}

func do(t *testing.T, router http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestHealth(t *testing.T) {
	router, _ := setup(t, &fakeRunner{})

	rec, body := do(t, router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestGetPresets(t *testing.T) {
	router, _ := setup(t, &fakeRunner{})

	rec, body := do(t, router, http.MethodGet, "/api/presets")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cafebabe", body["config_hash"])

	presets, ok := body["presets"].([]interface{})
	require.True(t, ok)
	assert.Len(t, presets, 3)
}

func TestTriggerScan(t *testing.T) {
	runner := &fakeRunner{}
	router, h := setup(t, runner)

	rec, body := do(t, router, http.MethodPost, "/api/scans/disparity")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	runID, _ := body["run_id"].(string)
	assert.NotEmpty(t, runID)
	assert.Equal(t, "disparity", body["preset"])

	h.Wait()
	assert.Equal(t, []string{"disparity"}, runner.ran)
	assert.Equal(t, []string{runID}, runner.ids)

	rec, body = do(t, router, http.MethodGet, "/api/scans/last")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, runID, body["run_id"])
	assert.Equal(t, float64(1500), body["duration_ms"])
	assert.Equal(t, []interface{}{"005930"}, body["qualified"])
	assert.Equal(t, map[string]interface{}{"qualified": float64(1), "rejected": float64(1)}, body["outcomes"])
	assert.Equal(t, false, body["running"])
}

func TestTriggerScan_UnknownPreset(t *testing.T) {
	router, _ := setup(t, &fakeRunner{})

	rec, body := do(t, router, http.MethodPost, "/api/scans/momentum")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, body["error"], "momentum")
}

func TestTriggerScan_Conflict(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	router, h := setup(t, runner)

	rec, _ := do(t, router, http.MethodPost, "/api/scans/disparity")
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec, _ = do(t, router, http.MethodPost, "/api/scans/oversold")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body := do(t, router, http.MethodGet, "/api/scans/last")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["running"])

	close(runner.release)
	h.Wait()
	assert.Equal(t, []string{"disparity"}, runner.ran)
}

func TestGetLastScan_NoneYet(t *testing.T) {
	router, _ := setup(t, &fakeRunner{})

	rec, _ := do(t, router, http.MethodGet, "/api/scans/last")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggerScan_MethodNotAllowed(t *testing.T) {
	router, _ := setup(t, &fakeRunner{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scans/disparity", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_Addr(t *testing.T) {
	cfg := &config.Config{Port: "8089", Env: "development"}
	srv := New(cfg, logger.Nop(), http.NotFoundHandler())
	assert.Equal(t, ":8089", srv.Addr())
	assert.NoError(t, srv.Shutdown(context.Background()))
}
