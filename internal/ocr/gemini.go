package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/dvloznov/tx-extractor/internal/ai"
)

// ocrPrompt asks the vision model for the full recognized text plus a few
// best-effort structured fields. If the JSON contract is violated we still
// keep whatever text came back.
const ocrPrompt = `Read the attached document and output STRICT JSON only, a single object:
- "full_text": string, every piece of text you can read, in reading order
- "amount": number, the total amount if this is a receipt, or null
- "date": string "YYYY-MM-DD" or null
- "merchant": string, the merchant or issuer name, or null
- "line_items": array of strings, one per purchased item line, or null
Return null for anything you cannot read. Do not invent text. Output JSON only.`

// Gemini implements Provider using Gemini vision over inline document bytes.
type Gemini struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewGemini builds a Gemini OCR provider. An empty apiKey falls back to the
// SDK's ambient credentials.
func NewGemini(ctx context.Context, apiKey, model string, log zerolog.Logger) (*Gemini, error) {
	cc := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	}
	if apiKey != "" {
		cc.APIKey = apiKey
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("ocr: create genai client: %w", err)
	}
	return &Gemini{client: client, model: model, log: log}, nil
}

// RecognizeImage runs OCR over a JPEG/PNG/WEBP image.
func (g *Gemini) RecognizeImage(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	return g.recognize(ctx, data, mimeType)
}

// RecognizePDF runs OCR over a scanned (image-only) PDF.
func (g *Gemini) RecognizePDF(ctx context.Context, data []byte) (*Result, error) {
	return g.recognize(ctx, data, "application/pdf")
}

func (g *Gemini) recognize(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: ocrPrompt},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
			},
		},
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1),
		ResponseMIMEType: "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("ocr: generate content: %w", err)
	}

	raw := resp.Text()
	result := &Result{Provider: "gemini"}

	var obj map[string]interface{}
	if jerr := json.Unmarshal([]byte(ai.CleanModelJSON(raw)), &obj); jerr != nil {
		// Contract violation: keep the raw text, drop the structured fields.
		g.log.Warn().Err(jerr).Msg("ocr response is not valid JSON, keeping raw text")
		result.FullText = raw
		return result, nil
	}

	result.FullText = ai.OptionalString(obj, "full_text")
	result.Merchant = ai.OptionalString(obj, "merchant")
	result.LineItems = ai.OptionalStringSlice(obj, "line_items")
	if v, ok := ai.OptionalFloat(obj, "amount"); ok && v > 0 {
		d := decimal.NewFromFloat(v)
		result.Amount = &d
	}
	if s := ai.OptionalString(obj, "date"); s != "" {
		if t, perr := time.Parse("2006-01-02", s); perr == nil {
			result.Date = &t
		}
	}
	return result, nil
}
