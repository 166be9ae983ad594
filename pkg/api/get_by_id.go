package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleGetById handles GET requests to retrieve a specific document by ID
func (h *Handler) HandleGetById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	doc, err := h.store.Retrieve(collName, docId)
	if err != nil {
		h.writeStoreError(w, "retrieve", err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}
