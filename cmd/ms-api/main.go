package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"MemSpectra/internal/config"
	"MemSpectra/internal/query"
)

// APIHandler serves the snapshot query endpoints.
type APIHandler struct {
	querier query.Querier
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if !cfg.Importer.Writer.Enabled || cfg.Importer.Writer.Type != "clickhouse" {
		log.Fatalf("No enabled ClickHouse writer found in config. API server cannot start.")
	}

	querier, err := query.NewClickHouseQuerier(cfg.Importer.Writer.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to create querier: %v", err)
	}

	// Initialize router
	r := mux.NewRouter()

	apiHandler := &APIHandler{querier: querier}

	r.HandleFunc("/api/v1/snapshots", apiHandler.listSnapshotsHandler).Methods("GET")
	r.HandleFunc("/api/v1/snapshots/{id}/nodes", apiHandler.snapshotNodesHandler).Methods("GET")

	// Start HTTP server
	server := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: r,
	}

	go func() {
		log.Printf("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("API server stopped.")
}

func (h *APIHandler) listSnapshotsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = v
	}

	snapshots, err := h.querier.ListSnapshots(r.Context(), limit)
	if err != nil {
		log.Printf("Error listing snapshots: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, snapshots)
}

func (h *APIHandler) snapshotNodesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		http.Error(w, "invalid snapshot id", http.StatusBadRequest)
		return
	}

	nodes, err := h.querier.SnapshotNodes(r.Context(), uint32(id))
	if err != nil {
		log.Printf("Error fetching nodes for snapshot %d: %v", id, err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, nodes)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
