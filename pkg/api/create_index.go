package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

// CreateIndexRequest names the top-level field an index projects.
type CreateIndexRequest struct {
	Key string `json:"key"`
}

// HandleCreateIndex declares an index on a live collection. Documents that
// already exist are not indexed.
func (h *Handler) HandleCreateIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	indexName := vars["index"]

	var req CreateIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Key == "" {
		WriteJSONError(w, http.StatusBadRequest, "key is required")
		return
	}

	spec := domain.IndexSpec{Name: indexName, Key: req.Key}
	if err := h.store.CreateIndex(collName, spec); err != nil {
		h.writeStoreError(w, "create_index", err)
		return
	}

	writeJSON(w, http.StatusCreated, spec)
}
