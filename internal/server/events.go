package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/howard-nolan/hive/internal/loop"
)

// loopEventPollInterval is how often a connected /events client receives a
// fresh snapshot of its loop's state.
const loopEventPollInterval = 500 * time.Millisecond

// loopEvent is one snapshot pushed down a loop's WebSocket event feed.
type loopEvent struct {
	Status     loop.Status `json:"status"`
	Iteration  int         `json:"iteration"`
	TotalCost  float64     `json:"total_cost"`
	LastOutput string      `json:"last_output"`
}

// handleLoopEvents upgrades to a WebSocket and streams status snapshots for
// one loop until it reaches a terminal status or the client disconnects.
// It exists alongside the plain-JSON GET /v1/loop/{id} poll endpoint for
// callers that want push updates instead of re-polling.
func (s *Server) handleLoopEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, ok := s.loops.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown loop id")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", zap.String("loop_id", id), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	ticker := time.NewTicker(loopEventPollInterval)
	defer ticker.Stop()

	var lastIteration = -1
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "request context done")
			return
		case <-ticker.C:
			cp := l.Checkpoint()
			if cp.Iteration == lastIteration && l.Status != loop.StatusRunning && l.Status != loop.StatusPaused {
				// Nothing new and the loop has already stopped; one more
				// send already carried the terminal status, so exit.
				_ = conn.Close(websocket.StatusNormalClosure, "loop finished")
				return
			}
			lastIteration = cp.Iteration

			event := loopEvent{
				Status:     l.Status,
				Iteration:  cp.Iteration,
				TotalCost:  cp.TotalCost,
				LastOutput: cp.LastOutput,
			}
			data, err := json.Marshal(event)
			if err != nil {
				s.log.Warn("marshaling loop event", zap.Error(err))
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
			if l.Status != loop.StatusRunning && l.Status != loop.StatusPaused {
				_ = conn.Close(websocket.StatusNormalClosure, "loop finished")
				return
			}
		}
	}
}
