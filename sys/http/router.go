package http

import (
	"log"
	"net/http"

	"pawsitter-api/res/scheduling"
	"pawsitter-api/res/store"
	"pawsitter-api/sys/http/middleware"

	"github.com/gorilla/mux"
)

type Config struct {
	Logger       *log.Logger
	Store        store.Store
	Orchestrator *scheduling.Orchestrator
}

// New builds the REST surface for series creation and the batch approval
// pipeline.
func New(cfg *Config) http.Handler {
	seriesHandler := &SeriesHandler{Logger: cfg.Logger, Store: cfg.Store, Orchestrator: cfg.Orchestrator}
	batchHandler := &BatchHandler{Logger: cfg.Logger, Store: cfg.Store, Orchestrator: cfg.Orchestrator}

	r := mux.NewRouter()

	r.HandleFunc("/api/series", seriesHandler.Create).Methods("POST")
	r.HandleFunc("/api/series/{id}", seriesHandler.Get).Methods("GET")
	r.HandleFunc("/api/series/{id}/sitter", seriesHandler.AssignSitter).Methods("POST")
	r.HandleFunc("/api/series/{id}/cancel", seriesHandler.Cancel).Methods("POST")

	r.HandleFunc("/api/batches", batchHandler.List).Methods("GET")
	r.HandleFunc("/api/batches/bulk-approve", batchHandler.BulkApprove).Methods("POST")
	r.HandleFunc("/api/batches/{id}", batchHandler.Get).Methods("GET")
	r.HandleFunc("/api/batches/{id}/approve", batchHandler.Approve).Methods("POST")
	r.HandleFunc("/api/batches/{id}/reject", batchHandler.Reject).Methods("POST")
	r.HandleFunc("/api/batches/{id}/snooze", batchHandler.Snooze).Methods("POST")

	var handler http.Handler = r
	handler = middleware.CORSMiddleware()(handler)
	handler = middleware.RequestLogging(cfg.Logger)(handler)
	return handler
}
