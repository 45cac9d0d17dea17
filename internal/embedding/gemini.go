package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "text-embedding-004"

// Gemini embeds text through the Google Generative AI API.
type Gemini struct {
	client *genai.Client
	model  *genai.EmbeddingModel
}

// NewGemini opens a genai client. Close releases its connections.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	em := client.EmbeddingModel(model)
	em.TaskType = genai.TaskTypeRetrievalDocument
	return &Gemini{client: client, model: em}, nil
}

// Embed returns the embedding values for text.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := g.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, errors.New("gemini returned no embedding")
	}
	return res.Embedding.Values, nil
}

// Close shuts down the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

var _ Provider = (*Gemini)(nil)
