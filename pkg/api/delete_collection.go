package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleDeleteCollection unregisters a collection; its log stays on disk
func (h *Handler) HandleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	if err := h.store.DeleteCollection(collName); err != nil {
		h.writeStoreError(w, "delete_collection", err)
		return
	}

	h.logger.Info().Str("collection", collName).Msg("Collection deleted")
	w.WriteHeader(http.StatusNoContent)
}

// HandleReset drops every collection
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.store.Reset()
	h.logger.Info().Msg("All collections dropped")
	w.WriteHeader(http.StatusNoContent)
}
