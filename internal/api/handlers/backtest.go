package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/2Arong/BITA-Active-ETF/internal/backtest"
	"github.com/2Arong/BITA-Active-ETF/internal/calendar"
	"github.com/2Arong/BITA-Active-ETF/internal/metrics"
	"github.com/2Arong/BITA-Active-ETF/pkg/logger"
)

// BacktestService is what the handlers need from backtest.Service
type BacktestService interface {
	Result(ctx context.Context, method string) (*backtest.Result, error)
	Refresh(ctx context.Context, method string, progress backtest.ProgressFunc) (*backtest.Result, error)
	Holdings(ctx context.Context, method, group string) (*backtest.HoldingsDetail, error)
	Sectors(ctx context.Context, method, group, scheme string, top int) ([]backtest.SectorWeight, error)
	Calendar() *calendar.Calendar
}

// BacktestHandler handles backtest API endpoints
// ⭐ SSOT: 백테스트 API 핸들러는 이 구조체에서만
type BacktestHandler struct {
	service BacktestService
	logger  *logger.Logger
}

// NewBacktestHandler creates a new backtest handler
func NewBacktestHandler(service BacktestService, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{
		service: service,
		logger:  log,
	}
}

// CalendarGroup is one row of GET /api/calendar
type CalendarGroup struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Start       string `json:"start"`
	End         string `json:"end"`
	InvestGroup string `json:"invest_group,omitempty"` // 마지막 그룹은 없음
}

// GetCalendar returns the rebalancing groups
// GET /api/calendar
func (h *BacktestHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	cal := h.service.Calendar()

	groups := make([]CalendarGroup, 0, cal.Len())
	for _, g := range cal.Groups() {
		row := CalendarGroup{
			ID:    g.ID,
			Label: g.Label(),
			Start: g.Start.Format(calendar.DateLayout),
			End:   g.End.Format(calendar.DateLayout),
		}
		if invest, ok := cal.InvestPeriodFor(g.ID); ok {
			row.InvestGroup = invest.ID
		}
		groups = append(groups, row)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"groups": groups,
		"count":  len(groups),
	})
}

// GetResult returns the full backtest result
// GET /api/backtest?method=close
func (h *BacktestHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Result(r.Context(), r.URL.Query().Get("method"))
	if err != nil {
		h.respondServiceError(w, err, "Failed to run backtest")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// WindowResponse is one horizon tab of the dashboard
type WindowResponse struct {
	backtest.Window
	Returns map[string]float64 `json:"returns"`
}

// GetWindows returns trailing returns per horizon
// GET /api/backtest/windows?method=close
func (h *BacktestHandler) GetWindows(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Result(r.Context(), r.URL.Query().Get("method"))
	if err != nil {
		h.respondServiceError(w, err, "Failed to run backtest")
		return
	}

	windows := make([]WindowResponse, 0, len(backtest.DefaultWindows))
	for _, win := range backtest.DefaultWindows {
		windows = append(windows, WindowResponse{Window: win, Returns: result.WindowReturns(win)})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"benchmark": result.PrimaryBenchmark(),
		"windows":   windows,
	})
}

// GetHoldings returns the per-security detail of an investment group
// GET /api/backtest/holdings/{group}  (group=latest 이면 마지막 기간)
func (h *BacktestHandler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	group := mux.Vars(r)["group"]

	detail, err := h.service.Holdings(r.Context(), r.URL.Query().Get("method"), group)
	if err != nil {
		h.respondServiceError(w, err, "Failed to get holdings")
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

// GetSectors returns the top sector weights of an investment group
// GET /api/backtest/sectors/{group}?scheme=equal&top=5
func (h *BacktestHandler) GetSectors(w http.ResponseWriter, r *http.Request) {
	group := mux.Vars(r)["group"]
	q := r.URL.Query()

	top := 5
	if s := q.Get("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "Invalid 'top' (expected a non-negative integer)")
			return
		}
		top = n
	}

	sectors, err := h.service.Sectors(r.Context(), q.Get("method"), group, q.Get("scheme"), top)
	if err != nil {
		h.respondServiceError(w, err, "Failed to get sectors")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"group":   group,
		"sectors": sectors,
	})
}

// RefreshResponse represents a refresh response
type RefreshResponse struct {
	Status    string                     `json:"status"`
	Periods   int                        `json:"periods"`
	Warnings  int                        `json:"warnings"`
	Summaries map[string]metrics.Summary `json:"summaries"`
}

// Refresh drops the cached result and runs the backtest again
// POST /api/backtest/refresh?method=close
func (h *BacktestHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Query().Get("method")
	if r.ContentLength > 0 {
		var body struct {
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if body.Method != "" {
			method = body.Method
		}
	}

	result, err := h.service.Refresh(r.Context(), method, nil)
	if err != nil {
		h.respondServiceError(w, err, "Failed to refresh backtest")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"method":   result.PriceMethod,
		"periods":  len(result.Periods),
		"warnings": len(result.Warnings),
	}).Info("Backtest refreshed")

	respondJSON(w, http.StatusOK, RefreshResponse{
		Status:    "ok",
		Periods:   len(result.Periods),
		Warnings:  len(result.Warnings),
		Summaries: result.Summaries,
	})
}

func (h *BacktestHandler) respondServiceError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, backtest.ErrInvalidConfiguration):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, backtest.ErrHoldingsNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, backtest.ErrSectorsUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.WithError(err).Error(message)
		respondError(w, http.StatusInternalServerError, message)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
