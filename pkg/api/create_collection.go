package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

// CreateCollectionRequest is the optional body of POST /collections/{coll}.
// An empty body creates an in-memory collection without indexes.
type CreateCollectionRequest struct {
	File    string             `json:"file"`
	Indexes []domain.IndexSpec `json:"indexes"`
}

// HandleCreateCollection registers a collection, replaying its log if one is named
func (h *Handler) HandleCreateCollection(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	var req CreateCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	spec := domain.CollectionSpec{Name: collName, File: req.File, Indexes: req.Indexes}
	if err := h.store.CreateCollection(spec); err != nil {
		h.writeStoreError(w, "create_collection", err)
		return
	}

	h.logger.Info().Str("collection", collName).Str("file", req.File).Msg("Collection created")
	writeJSON(w, http.StatusCreated, spec)
}
