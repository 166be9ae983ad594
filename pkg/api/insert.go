package api

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

// maxDocumentBytes caps a single request body.
const maxDocumentBytes = 16 << 20

// HandleInsert stores the request body under the id in the path, replacing
// any previous version
func (h *Handler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	doc, err := domain.Parse(body)
	if err != nil {
		h.writeStoreError(w, "insert", err)
		return
	}

	stored, err := h.store.Insert(collName, docId, doc)
	if err != nil {
		h.writeStoreError(w, "insert", err)
		return
	}

	h.logger.Debug().Str("collection", collName).Str("id", docId).Msg("Document stored")
	writeJSON(w, http.StatusCreated, stored)
}
