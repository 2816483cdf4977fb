package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dvloznov/tx-extractor/internal/ai"
	"github.com/dvloznov/tx-extractor/internal/api/handlers"
	"github.com/dvloznov/tx-extractor/internal/api/middleware"
	"github.com/dvloznov/tx-extractor/internal/blobstore"
	"github.com/dvloznov/tx-extractor/internal/config"
	"github.com/dvloznov/tx-extractor/internal/dedup"
	"github.com/dvloznov/tx-extractor/internal/extract"
	jobsinmemory "github.com/dvloznov/tx-extractor/internal/jobs/inmemory"
	"github.com/dvloznov/tx-extractor/internal/logger"
	"github.com/dvloznov/tx-extractor/internal/ocr"
	"github.com/dvloznov/tx-extractor/internal/ratelimit"
	"github.com/dvloznov/tx-extractor/internal/receipts"
	"github.com/dvloznov/tx-extractor/internal/resolve"
	"github.com/dvloznov/tx-extractor/internal/store"
	storebq "github.com/dvloznov/tx-extractor/internal/store/bigquery"
	storeinmemory "github.com/dvloznov/tx-extractor/internal/store/inmemory"
	"github.com/dvloznov/tx-extractor/internal/textacq"
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

	ctx := context.Background()

	// AI completion adapter plus the OCR provider, both backed by Gemini.
	completionClient, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.CompletionModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create completion client")
	}
	aiExtractor := ai.NewExtractor(completionClient, log, ai.Options{
		Temperature:        cfg.Temperature,
		MessageMaxTokens:   int32(cfg.MessageMaxTokens),
		StatementMaxTokens: int32(cfg.StatementMaxTokens),
	})

	ocrProvider, err := ocr.NewGemini(ctx, cfg.GeminiAPIKey, cfg.VisionModel, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create OCR provider")
	}

	// Persistence: BigQuery when a project is configured, in-memory otherwise.
	var (
		accountRepo     store.AccountRepository
		transactionRepo store.TransactionRepository
		receiptRepo     store.ReceiptRepository
	)
	if cfg.GCPProject != "" {
		repo, err := storebq.NewRepository(ctx, cfg.GCPProject, cfg.BQDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()
		accountRepo, transactionRepo, receiptRepo = repo, repo, repo
	} else {
		log.Warn().Msg("No GCP project configured, using in-memory store")
		mem := storeinmemory.New()
		accountRepo, transactionRepo, receiptRepo = mem, mem, mem
	}

	// Blob storage for receipt uploads.
	var blobs blobstore.Store
	if cfg.GCSBucket != "" {
		gcs, err := blobstore.NewGCS(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS blob store")
		}
		defer gcs.Close()
		blobs = gcs
	} else {
		log.Warn().Msg("No GCS bucket configured, receipt blobs held in memory")
		blobs = blobstore.NewInMemory()
	}

	// Background OCR jobs.
	jobStore := jobsinmemory.NewStore()
	jobQueue := jobsinmemory.NewQueue(cfg.QueueSize, cfg.WorkerCount, jobStore)

	receiptService := receipts.NewService(blobs, receiptRepo, jobQueue, ocrProvider, log)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	go func() {
		log.Info().Int("workers", cfg.WorkerCount).Msg("Starting receipt OCR workers")
		if err := jobQueue.Start(workerCtx, receiptService.ProcessJob); err != nil {
			log.Error().Err(err).Msg("Receipt OCR workers stopped with error")
		}
	}()

	// Extraction pipeline.
	extractService := extract.NewService(
		textacq.New(ocrProvider, log),
		aiExtractor,
		resolve.NewResolver(accountRepo, log),
		dedup.NewDetector(transactionRepo, log),
		transactionRepo,
		ratelimit.New(cfg.UserRateLimit, cfg.UserRateWindow),
		log,
	)

	extractHandler := handlers.NewExtractHandler(extractService, log)
	receiptsHandler := handlers.NewReceiptsHandler(receiptService, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/extract/message", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			extractHandler.ExtractMessage(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/statements/import", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			extractHandler.ImportStatement(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/receipts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			receiptsHandler.Upload(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/receipts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			receiptID := strings.TrimPrefix(r.URL.Path, "/api/receipts/")
			if receiptID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Receipt ID is required")
				return
			}
			receiptsHandler.Get(w, r, receiptID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
