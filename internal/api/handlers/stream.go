package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/2Arong/BITA-Active-ETF/internal/metrics"
	"github.com/2Arong/BITA-Active-ETF/pkg/logger"
)

const writeWait = 10 * time.Second

// StreamMessage is one frame of /ws/backtest
type StreamMessage struct {
	Type      string                     `json:"type"` // progress | result | error
	Done      int                        `json:"done,omitempty"`
	Total     int                        `json:"total,omitempty"`
	Message   string                     `json:"message,omitempty"`
	Summaries map[string]metrics.Summary `json:"summaries,omitempty"`
	Warnings  int                        `json:"warnings,omitempty"`
	Error     string                     `json:"error,omitempty"`
}

// StreamHandler runs a backtest and streams its progress over a WebSocket
type StreamHandler struct {
	service  BacktestService
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(service BacktestService, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log,
	}
}

// ServeBacktest refreshes the backtest, one progress frame per period then a result frame
// GET /ws/backtest?method=close
func (h *StreamHandler) ServeBacktest(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	send := func(msg StreamMessage) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}

	ctx := r.Context()
	result, err := h.service.Refresh(ctx, r.URL.Query().Get("method"), func(done, total int, message string) {
		if err := send(StreamMessage{Type: "progress", Done: done, Total: total, Message: message}); err != nil {
			h.logger.WithError(err).Debug("progress frame dropped")
		}
	})
	if err != nil {
		_ = send(StreamMessage{Type: "error", Error: err.Error()})
		return
	}

	if err := send(StreamMessage{Type: "result", Summaries: result.Summaries, Warnings: len(result.Warnings)}); err != nil {
		h.logger.WithError(err).Warn("result frame failed")
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
}
