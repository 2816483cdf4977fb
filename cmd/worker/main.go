// Standalone receipt OCR worker. With the in-memory queue it owns its own
// job channel, so it is only useful for dedicated worker deployments once
// the queue interfaces are backed by a real broker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dvloznov/tx-extractor/internal/blobstore"
	"github.com/dvloznov/tx-extractor/internal/config"
	jobsinmemory "github.com/dvloznov/tx-extractor/internal/jobs/inmemory"
	"github.com/dvloznov/tx-extractor/internal/logger"
	"github.com/dvloznov/tx-extractor/internal/ocr"
	"github.com/dvloznov/tx-extractor/internal/receipts"
	"github.com/dvloznov/tx-extractor/internal/store"
	storebq "github.com/dvloznov/tx-extractor/internal/store/bigquery"
	storeinmemory "github.com/dvloznov/tx-extractor/internal/store/inmemory"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.GeminiAPIKey == "" {
		log.Fatal().Msg("TXX_GEMINI_API_KEY is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ocrProvider, err := ocr.NewGemini(ctx, cfg.GeminiAPIKey, cfg.VisionModel, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create OCR provider")
	}

	var receiptRepo store.ReceiptRepository
	if cfg.GCPProject != "" {
		repo, err := storebq.NewRepository(ctx, cfg.GCPProject, cfg.BQDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()
		receiptRepo = repo
	} else {
		log.Warn().Msg("No GCP project configured, using in-memory store")
		receiptRepo = storeinmemory.New()
	}

	var blobs blobstore.Store
	if cfg.GCSBucket != "" {
		gcs, err := blobstore.NewGCS(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS blob store")
		}
		defer gcs.Close()
		blobs = gcs
	} else {
		log.Warn().Msg("No GCS bucket configured, using in-memory blob store")
		blobs = blobstore.NewInMemory()
	}

	jobStore := jobsinmemory.NewStore()
	jobQueue := jobsinmemory.NewQueue(cfg.QueueSize, cfg.WorkerCount, jobStore)

	receiptService := receipts.NewService(blobs, receiptRepo, jobQueue, ocrProvider, log)

	log.Info().Int("workers", cfg.WorkerCount).Msg("Starting worker service")

	if err := jobQueue.Start(ctx, receiptService.ProcessJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
