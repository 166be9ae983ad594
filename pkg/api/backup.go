package api

import (
	"net/http"
)

// HandleBackup writes a snapshot of every collection to the configured
// backup file
func (h *Handler) HandleBackup(w http.ResponseWriter, r *http.Request) {
	if h.backupFile == "" {
		WriteJSONError(w, http.StatusNotFound, "no backup file configured")
		return
	}

	if err := h.store.Backup(h.backupFile); err != nil {
		h.writeStoreError(w, "backup", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"file": h.backupFile})
}
