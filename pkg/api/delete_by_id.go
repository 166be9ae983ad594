package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleDeleteById removes a document and returns the removed version
func (h *Handler) HandleDeleteById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	removed, err := h.store.Delete(collName, docId)
	if err != nil {
		h.writeStoreError(w, "delete", err)
		return
	}

	h.logger.Debug().Str("collection", collName).Str("id", docId).Msg("Document deleted")
	writeJSON(w, http.StatusOK, removed)
}
