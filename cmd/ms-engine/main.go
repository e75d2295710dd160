package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"MemSpectra/internal/config"
	"MemSpectra/internal/export"
	"MemSpectra/internal/graph"
	"MemSpectra/internal/importer"
	"MemSpectra/internal/model"
	"MemSpectra/internal/probe"
	"MemSpectra/internal/storage"
)

func main() {
	log.Println("Starting ms-engine...")

	// 1. Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Build the importer and its collaborators
	store := storage.NewStore()

	var writer model.Writer
	if cfg.Importer.Writer.Enabled {
		switch cfg.Importer.Writer.Type {
		case "clickhouse":
			writer, err = export.NewClickHouseWriter(cfg.Importer.Writer.ClickHouse)
			if err != nil {
				log.Fatalf("Failed to create ClickHouse writer: %v", err)
			}
		default:
			log.Printf("Warning: unknown writer type '%s' in config, snapshots are kept in memory only.", cfg.Importer.Writer.Type)
		}
	}

	imp := importer.NewImporter(store, graph.NewBuilder(), writer)

	// 3. Subscribe to the chunk feed
	sub, err := probe.NewSubscriber(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}

	err = sub.Start(func(ts int64, payload []byte) {
		if err := imp.Parse(ts, payload); err != nil {
			log.Printf("Error parsing chunk at ts=%d: %v", ts, err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	// 4. Wait for a shutdown signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	log.Println("Shutdown signal received, finalizing...")
	sub.Close()
	if err := imp.NotifyEndOfStream(); err != nil {
		log.Printf("Error finalizing last snapshot: %v", err)
	}
	log.Printf("Shutdown complete. %d snapshots imported, %d parser failures.",
		store.SnapshotCount(), store.ParserFailures())
}
