package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleCompact rewrites a persistent collection's log down to its live
// documents. In-memory collections answer 404.
func (h *Handler) HandleCompact(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	if err := h.store.Compact(collName); err != nil {
		h.writeStoreError(w, "compact", err)
		return
	}

	h.logger.Info().Str("collection", collName).Msg("Compaction requested over HTTP finished")
	w.WriteHeader(http.StatusNoContent)
}
