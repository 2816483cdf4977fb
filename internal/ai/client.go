package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/dvloznov/tx-extractor/internal/domain"
)

// CompletionRequest is the provider-agnostic completion contract.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int32
	JSONMode     bool
}

// CompletionResponse carries the raw model content plus token accounting.
type CompletionResponse struct {
	Content    string
	TokensUsed int32
}

// CompletionClient abstracts the LLM endpoint so the extractor can be
// tested without network access.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// GeminiClient implements CompletionClient against the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini completion client. An empty apiKey falls
// back to the SDK's ambient credentials (GOOGLE_API_KEY / ADC).
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	}
	if apiKey != "" {
		cc.APIKey = apiKey
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("ai: create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Complete performs one completion call. Non-success responses come back as
// *domain.ProviderError (or a 429-coded one, which callers may retry).
func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: req.MaxTokens,
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	if req.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: req.UserPrompt}},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, providerError("gemini", err)
	}

	out := &CompletionResponse{Content: resp.Text()}
	if resp.UsageMetadata != nil {
		out.TokensUsed = resp.UsageMetadata.TotalTokenCount
	}
	return out, nil
}

// providerError normalizes an SDK error into the domain taxonomy, keeping
// the HTTP status and a truncated body for logging.
func providerError(provider string, err error) error {
	status := StatusFromError(err)
	body := err.Error()
	const maxBody = 500
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return &domain.ProviderError{Provider: provider, StatusCode: status, Body: body}
}

// StatusFromError digs the HTTP status code out of a provider error chain.
// Returns 0 when no status is attached.
func StatusFromError(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	var aerr genai.APIError
	if errors.As(err, &aerr) {
		return aerr.Code
	}
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return perr.StatusCode
	}
	return 0
}

// IsRateLimited reports whether err is a rate-limit response.
func IsRateLimited(err error) bool {
	return StatusFromError(err) == http.StatusTooManyRequests
}
