package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.HandleVersion).Methods("GET")
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")

	// Collection operations
	router.HandleFunc("/collections", h.HandleListCollections).Methods("GET")
	router.HandleFunc("/collections", h.HandleReset).Methods("DELETE")
	router.HandleFunc("/collections/{coll}", h.HandleCreateCollection).Methods("POST")
	router.HandleFunc("/collections/{coll}", h.HandleDeleteCollection).Methods("DELETE")
	router.HandleFunc("/collections/{coll}/count", h.HandleCount).Methods("GET")
	router.HandleFunc("/collections/{coll}/compact", h.HandleCompact).Methods("POST")
	router.HandleFunc("/collections/{coll}/latency", h.HandleLatency).Methods("GET")

	// Document operations (by ID)
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleInsert).Methods("POST", "PUT")
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleGetById).Methods("GET")
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleDeleteById).Methods("DELETE")
	router.HandleFunc("/collections/{coll}/bulk", h.HandleBulkGet).Methods("POST")

	// Index operations
	router.HandleFunc("/collections/{coll}/indexes", h.HandleGetIndexes).Methods("GET")
	router.HandleFunc("/collections/{coll}/indexes/{index}", h.HandleCreateIndex).Methods("POST")
	router.HandleFunc("/collections/{coll}/indexes/{index}/{key}", h.HandleFindByIndex).Methods("GET")

	router.HandleFunc("/admin/backup", h.HandleBackup).Methods("POST")
}
