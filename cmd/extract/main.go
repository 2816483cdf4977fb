// One-shot extraction CLI for local runs: feed it a message or a statement
// file and it prints what the pipeline would record. State lives in memory
// and is discarded on exit.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/dvloznov/tx-extractor/internal/ai"
	"github.com/dvloznov/tx-extractor/internal/config"
	"github.com/dvloznov/tx-extractor/internal/dedup"
	"github.com/dvloznov/tx-extractor/internal/domain"
	"github.com/dvloznov/tx-extractor/internal/extract"
	"github.com/dvloznov/tx-extractor/internal/logger"
	"github.com/dvloznov/tx-extractor/internal/ocr"
	"github.com/dvloznov/tx-extractor/internal/ratelimit"
	"github.com/dvloznov/tx-extractor/internal/resolve"
	storeinmemory "github.com/dvloznov/tx-extractor/internal/store/inmemory"
	"github.com/dvloznov/tx-extractor/internal/textacq"
)

const cliUser = "cli"

// disabledClient stands in when no API key is configured; the orchestrator
// falls back to the deterministic stages.
type disabledClient struct{}

func (disabledClient) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	return nil, errors.New("completion disabled: no API key configured")
}

func main() {
	var (
		text     = flag.String("text", "", "bank message text to extract from")
		file     = flag.String("file", "", "statement file to import (.csv or .pdf)")
		last4    = flag.String("card-last4", "1234", "card suffix of the seeded account")
		currency = flag.String("currency", "USD", "currency of the seeded account")
	)
	flag.Parse()

	if (*text == "") == (*file == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -text or -file is required")
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	var completionClient ai.CompletionClient = disabledClient{}
	var ocrProvider ocr.Provider
	if cfg.GeminiAPIKey != "" {
		completionClient, err = ai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.CompletionModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create completion client")
		}
		ocrProvider, err = ocr.NewGemini(ctx, cfg.GeminiAPIKey, cfg.VisionModel, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create OCR provider")
		}
	} else {
		log.Warn().Msg("No API key configured, model stages disabled")
	}

	mem := storeinmemory.New()
	mem.AddAccount(&domain.BankAccount{
		ID:            "cli-account",
		UserID:        cliUser,
		Name:          "CLI account",
		AccountNumber: "0000" + *last4,
		Currency:      *currency,
		Active:        true,
	})

	service := extract.NewService(
		textacq.New(ocrProvider, log),
		ai.NewExtractor(completionClient, log, ai.Options{
			Temperature:        cfg.Temperature,
			MessageMaxTokens:   int32(cfg.MessageMaxTokens),
			StatementMaxTokens: int32(cfg.StatementMaxTokens),
		}),
		resolve.NewResolver(mem, log),
		dedup.NewDetector(mem, log),
		mem,
		ratelimit.New(cfg.UserRateLimit, cfg.UserRateWindow),
		log,
	)

	if *text != "" {
		result, err := service.ExtractFromMessage(ctx, cliUser, *text, extract.MessageHint{AccountID: "cli-account"})
		if err != nil {
			log.Fatal().Err(err).Msg("Extraction failed")
		}
		printJSON(map[string]interface{}{
			"strategy":    string(result.Strategy),
			"transaction": result.Transaction,
		})
		return
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to read file")
	}
	result, err := service.ExtractFromFile(ctx, cliUser, "cli-account", filepath.Base(*file), data)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}
	printJSON(map[string]interface{}{
		"format":       string(result.ImportFormat),
		"accepted":     result.Accepted,
		"duplicates":   result.Duplicates,
		"skipped":      result.Skipped,
		"transactions": mem.Transactions(),
	})
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
