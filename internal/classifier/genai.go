package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/internal/taxonomy"
)

type genaiClassifier struct {
	client    *genai.Client
	model     string
	tax       *taxonomy.Taxonomy
	maxTokens int32
}

// GenAIOptions configures the Gemini provider.
type GenAIOptions struct {
	APIKey    string
	BaseURL   string
	MaxTokens int32
}

// NewGenAI creates a classifier backed by the Gemini API.
func NewGenAI(ctx context.Context, opts GenAIOptions, model string, tax *taxonomy.Taxonomy) (Classifier, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		return nil, ErrEmptyModel
	}

	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &genaiClassifier{client: client, model: model, tax: tax, maxTokens: opts.MaxTokens}, nil
}

func (c *genaiClassifier) Name() string {
	return c.model
}

func (c *genaiClassifier) Classify(ctx context.Context, sentence string) (ledger.Value, error) {
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0),
		SystemInstruction: genai.NewContentFromText(c.tax.Prompt(), genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}
	if c.maxTokens > 0 {
		config.MaxOutputTokens = c.maxTokens
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(sentence, genai.RoleUser)},
		config,
	)
	if err != nil {
		return ledger.Failure, fmt.Errorf("generate content: %w", err)
	}

	return ParseClass(resp.Text(), c.tax)
}

// retryableStatus reports whether a Gemini API error is worth retrying.
func retryableStatus(err error) (retry, known bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false, false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError, true
}
