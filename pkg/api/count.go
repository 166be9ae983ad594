package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Count(mux.Vars(r)["coll"])
	if err != nil {
		h.writeStoreError(w, "count", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}
