package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleFindByIndex returns every document whose indexed field equals key
func (h *Handler) HandleFindByIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	docs, err := h.store.RetrieveByIndex(vars["coll"], vars["index"], vars["key"])
	if err != nil {
		h.writeStoreError(w, "retrieve_by_index", err)
		return
	}

	writeJSON(w, http.StatusOK, ItemsResponse{Items: docs})
}
