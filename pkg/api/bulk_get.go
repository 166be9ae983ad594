package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

// BulkGetRequest lists the ids to fetch.
type BulkGetRequest struct {
	IDs []string `json:"ids"`
}

// ItemsResponse wraps document lists. Bulk results hold null for ids that
// are not present.
type ItemsResponse struct {
	Items []domain.Value `json:"items"`
}

// HandleBulkGet returns one entry per requested id, in request order
func (h *Handler) HandleBulkGet(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	var req BulkGetRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBytes)).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	docs, err := h.store.RetrieveBulk(collName, req.IDs)
	if err != nil {
		h.writeStoreError(w, "retrieve_bulk", err)
		return
	}

	writeJSON(w, http.StatusOK, ItemsResponse{Items: docs})
}
