package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

// LatencyResponse carries the retained retrieve latencies, oldest first.
type LatencyResponse struct {
	Samples []domain.LatencySample `json:"samples"`
	Count   int                    `json:"count"`
	Mean    time.Duration          `json:"mean_ns"`
	Max     time.Duration          `json:"max_ns"`
}

func (h *Handler) HandleLatency(w http.ResponseWriter, r *http.Request) {
	samples, err := h.store.LatencySnapshot(mux.Vars(r)["coll"])
	if err != nil {
		h.writeStoreError(w, "latency", err)
		return
	}

	resp := LatencyResponse{Samples: samples, Count: len(samples)}
	var total time.Duration
	for _, s := range samples {
		total += s.Duration
		if s.Duration > resp.Max {
			resp.Max = s.Duration
		}
	}
	if len(samples) > 0 {
		resp.Mean = total / time.Duration(len(samples))
	}

	writeJSON(w, http.StatusOK, resp)
}
