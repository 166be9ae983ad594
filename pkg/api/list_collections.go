package api

import (
	"net/http"
	"strconv"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

// CollectionSummary describes one collection in GET /collections.
type CollectionSummary struct {
	Name      string                  `json:"name"`
	File      string                  `json:"file,omitempty"`
	Indexes   []domain.IndexSpec      `json:"indexes"`
	Count     int                     `json:"count"`
	Documents map[string]domain.Value `json:"documents,omitempty"`
}

// HandleListCollections lists every collection. With ?documents=true the
// full contents are included.
func (h *Handler) HandleListCollections(w http.ResponseWriter, r *http.Request) {
	withDocs, _ := strconv.ParseBool(r.URL.Query().Get("documents"))

	snaps := h.store.ListCollections()
	summaries := make([]CollectionSummary, 0, len(snaps))
	for _, snap := range snaps {
		summary := CollectionSummary{
			Name:    snap.Name,
			File:    snap.File,
			Indexes: snap.Indexes,
			Count:   len(snap.Documents),
		}
		if withDocs {
			summary.Documents = snap.Documents
		}
		summaries = append(summaries, summary)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"collections": summaries,
	})
}
