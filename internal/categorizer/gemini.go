package categorizer

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.0-flash"

// GeminiConfig selects the backend. An API key uses the Gemini API; a
// project uses Vertex AI; with neither, the client reads the standard
// GOOGLE_* environment variables.
type GeminiConfig struct {
	Project  string
	Location string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiOracle classifies with a Gemini model. The underlying client is
// created once and reused across calls.
type GeminiOracle struct {
	models  contentGenerator
	model   string
	timeout time.Duration
}

var _ Oracle = (*GeminiOracle)(nil)

// NewGeminiOracle creates the genai client for cfg.
func NewGeminiOracle(ctx context.Context, cfg GeminiConfig) (*GeminiOracle, error) {
	cc := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	}
	switch {
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.Project != "":
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("NewGeminiOracle: create genai client: %w", err)
	}
	return newGeminiOracle(client.Models, cfg.Model, cfg.Timeout), nil
}

func newGeminiOracle(models contentGenerator, model string, timeout time.Duration) *GeminiOracle {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiOracle{models: models, model: model, timeout: timeout}
}

// Classify sends prompt and returns the raw reply text.
func (o *GeminiOracle) Classify(ctx context.Context, prompt string) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	resp, err := o.models.GenerateContent(ctx, o.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("GeminiOracle.Classify: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("GeminiOracle.Classify: empty response from model")
	}
	return text, nil
}
