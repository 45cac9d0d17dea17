package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaBaseURL = "http://127.0.0.1:11434"
	defaultOllamaModel   = "nomic-embed-text"
)

// Ollama calls the Ollama HTTP API, falling back to the legacy endpoint on
// servers that predate /api/embed.
type Ollama struct {
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
	maxRetries int
}

// NewOllama constructs a client with the provided base URL and model.
func NewOllama(baseURL, model string, dimensions int, timeout time.Duration) *Ollama {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = defaultOllamaModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Ollama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: defaultMaxRetries,
	}
}

// Embed generates an embedding for the input text.
func (c *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	return withRetry(ctx, c.maxRetries, func() ([]float32, error) {
		return c.once(ctx, text)
	})
}

func (c *Ollama) once(ctx context.Context, text string) ([]float32, error) {
	reqBody := ollamaEmbedRequest{Model: c.model, Input: text}
	if c.dimensions > 0 {
		reqBody.Dimensions = c.dimensions
	}

	var resp ollamaEmbedResponse
	status, err := c.doJSON(ctx, "/api/embed", reqBody, &resp)
	if err != nil {
		if status == http.StatusNotFound || status == http.StatusMethodNotAllowed {
			return c.embedLegacy(ctx, text)
		}
		return nil, err
	}
	if len(resp.Embeddings) > 0 && len(resp.Embeddings[0]) > 0 {
		return resp.Embeddings[0], nil
	}
	if len(resp.Embedding) > 0 {
		return resp.Embedding, nil
	}
	return nil, fmt.Errorf("ollama embed response missing embeddings")
}

func (c *Ollama) embedLegacy(ctx context.Context, text string) ([]float32, error) {
	var resp ollamaLegacyEmbedResponse
	if _, err := c.doJSON(ctx, "/api/embeddings", ollamaLegacyEmbedRequest{Model: c.model, Prompt: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama embedding response missing embedding")
	}
	return resp.Embedding, nil
}

func (c *Ollama) doJSON(ctx context.Context, path string, payload any, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, errRetryable{err: fmt.Errorf("ollama request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp ollamaErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := resp.Status
		if errResp.Error != "" {
			msg = errResp.Error
		}
		apiErr := fmt.Errorf("ollama api error: %s", msg)
		if isRetryableStatus(resp.StatusCode) {
			return resp.StatusCode, errRetryable{err: apiErr, retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
		}
		return resp.StatusCode, apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}

type ollamaEmbedRequest struct {
	Model      string `json:"model"`
	Input      any    `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Embedding  []float32   `json:"embedding"`
}

type ollamaLegacyEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaLegacyEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type ollamaErrorResponse struct {
	Error string `json:"error"`
}

var _ Provider = (*Ollama)(nil)
