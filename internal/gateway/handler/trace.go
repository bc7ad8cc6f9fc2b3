package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"pwabuilder/internal/gateway/run"
)

// TraceReader is implemented by the generation service.
type TraceReader interface {
	Trace(runID string) ([]run.TraceEntry, error)
}

type TraceHandler struct {
	traces TraceReader
}

func NewTraceHandler(traces TraceReader) *TraceHandler {
	return &TraceHandler{traces: traces}
}

// HandleRunLogs serves GET /debug/run-logs?run_id=.
func (h *TraceHandler) HandleRunLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}
	entries, err := h.traces.Trace(runID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"run_id": runID,
		"events": entries,
	})
}

// HandleHealth answers liveness probes.
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
