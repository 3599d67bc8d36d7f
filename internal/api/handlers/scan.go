package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wonny/krxscan/internal/contracts"
	"github.com/wonny/krxscan/internal/pipeline"
	"github.com/wonny/krxscan/internal/strategyconfig"
	"github.com/wonny/krxscan/pkg/logger"
)

// ScanRunner is the part of pipeline.Runner the handlers need
type ScanRunner interface {
	Run(ctx context.Context, preset strategyconfig.Preset) (*pipeline.Result, error)
	Last() *pipeline.Result
}

// ScanHandler handles preset listing and scan triggers
// ⭐ SSOT: 스캔 API 핸들러는 이 구조체에서만
type ScanHandler struct {
	runner     ScanRunner
	strategy   *strategyconfig.Config
	configHash string
	logger     *logger.Logger

	// 비동기 실행은 요청 컨텍스트와 분리
	baseCtx context.Context

	mu      sync.Mutex
	running string // 실행 중인 run id ("" = 유휴)
	wg      sync.WaitGroup
}

// NewScanHandler creates a new scan handler
func NewScanHandler(ctx context.Context, runner ScanRunner, strategy *strategyconfig.Config, configHash string, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		runner:     runner,
		strategy:   strategy,
		configHash: configHash,
		logger:     log,
		baseCtx:    ctx,
	}
}

// PresetsResponse lists the configured presets
type PresetsResponse struct {
	ConfigHash string                  `json:"config_hash"`
	Presets    []strategyconfig.Preset `json:"presets"`
}

// GetPresets returns all presets with their thresholds
// GET /api/presets
func (h *ScanHandler) GetPresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, PresetsResponse{
		ConfigHash: h.configHash,
		Presets:    h.strategy.Presets,
	})
}

// TriggerResponse is returned for an accepted scan
type TriggerResponse struct {
	RunID  string `json:"run_id"`
	Preset string `json:"preset"`
	Status string `json:"status"`
}

// TriggerScan starts a scan in the background
// POST /api/scans/{preset}
func (h *ScanHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["preset"]

	preset, ok := h.strategy.Preset(name)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown preset: "+name)
		return
	}

	h.mu.Lock()
	if h.running != "" {
		running := h.running
		h.mu.Unlock()
		respondError(w, http.StatusConflict, "scan already running: "+running)
		return
	}
	runID := uuid.NewString()
	h.running = runID
	h.wg.Add(1)
	h.mu.Unlock()

	go h.run(runID, preset)

	respondJSON(w, http.StatusAccepted, TriggerResponse{
		RunID:  runID,
		Preset: preset.Name,
		Status: "accepted",
	})
}

func (h *ScanHandler) run(runID string, preset strategyconfig.Preset) {
	defer h.wg.Done()
	defer func() {
		h.mu.Lock()
		h.running = ""
		h.mu.Unlock()
	}()

	log := h.logger.WithRunID(runID).WithField("preset", preset.Name)
	log.Info("Scan triggered via API")

	if _, err := h.runner.Run(pipeline.WithRunID(h.baseCtx, runID), preset); err != nil {
		log.WithError(err).Error("Scan failed")
	}
}

// Wait blocks until background scans finish
func (h *ScanHandler) Wait() {
	h.wg.Wait()
}

// LastScanResponse summarizes the most recent run
type LastScanResponse struct {
	RunID        string                           `json:"run_id"`
	Preset       string                           `json:"preset"`
	StartedAt    time.Time                        `json:"started_at"`
	DurationMS   int64                            `json:"duration_ms"`
	Universe     int                              `json:"universe"`
	Outcomes     map[contracts.OutcomeKind]int    `json:"outcomes"`
	FetchErrors  map[contracts.FetchErrorKind]int `json:"fetch_errors,omitempty"`
	Rejections   map[string]int                   `json:"rejections,omitempty"`
	Qualified    []string                         `json:"qualified"`
	DualBuying   []string                         `json:"dual_buying,omitempty"`
	ConfigHash   string                           `json:"config_hash"`
	Error        string                           `json:"error,omitempty"`
	Running      bool                             `json:"running"`
	RunningRunID string                           `json:"running_run_id,omitempty"`
}

// GetLastScan returns the summary of the most recent run
// GET /api/scans/last
func (h *ScanHandler) GetLastScan(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	running := h.running
	h.mu.Unlock()

	last := h.runner.Last()
	if last == nil {
		if running != "" {
			respondJSON(w, http.StatusOK, LastScanResponse{Running: true, RunningRunID: running})
			return
		}
		respondError(w, http.StatusNotFound, "no scan has completed yet")
		return
	}

	s := last.Summary
	resp := LastScanResponse{
		RunID:        s.RunID,
		Preset:       s.Preset,
		StartedAt:    s.StartedAt,
		DurationMS:   s.Duration.Milliseconds(),
		Universe:     s.Universe,
		Outcomes:     s.Outcomes,
		FetchErrors:  s.FetchErrors,
		Rejections:   s.Rejections,
		Qualified:    make([]string, 0, len(last.Selection.Qualified)),
		ConfigHash:   s.ConfigHash,
		Error:        s.Error,
		Running:      running != "",
		RunningRunID: running,
	}
	for _, res := range last.Selection.Qualified {
		resp.Qualified = append(resp.Qualified, res.Instrument.Code)
	}
	for _, res := range last.Selection.DualBuying {
		resp.DualBuying = append(resp.DualBuying, res.Instrument.Code)
	}

	respondJSON(w, http.StatusOK, resp)
}

var _ ScanRunner = (*pipeline.Runner)(nil)
