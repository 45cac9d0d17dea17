package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "text-embedding-ada-002"
	DefaultDimensions    = 1536
)

// OpenAI is an OpenAI-compatible /embeddings client.
type OpenAI struct {
	baseURL    string
	apiKey     string
	model      string
	client     *http.Client
	maxRetries int
}

// NewOpenAI creates a client. An empty baseURL targets api.openai.com.
func NewOpenAI(apiKey, baseURL, model string, timeout time.Duration) (*OpenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultOpenAIModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		client:     &http.Client{Timeout: timeout},
		maxRetries: defaultMaxRetries,
	}, nil
}

type openAIRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type openAIResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed calls POST {baseURL}/embeddings with retries on 429 and 5xx.
func (c *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(openAIRequest{Input: text, Model: c.model})
	if err != nil {
		return nil, err
	}
	return withRetry(ctx, c.maxRetries, func() ([]float32, error) {
		return c.once(ctx, payload)
	})
}

func (c *OpenAI) once(ctx context.Context, payload []byte) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errRetryable{err: fmt.Errorf("openai embeddings request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, errRetryable{err: fmt.Errorf("read openai response: %w", err)}
	}
	if isRetryableStatus(resp.StatusCode) {
		return nil, errRetryable{
			err:        fmt.Errorf("openai embeddings failed: %s", resp.Status),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var out openAIResponse
	decodeErr := json.Unmarshal(body, &out)
	if resp.StatusCode >= 300 {
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			return nil, fmt.Errorf("openai embeddings failed: %s: %s", resp.Status, out.Error.Message)
		}
		return nil, fmt.Errorf("openai embeddings failed: %s", resp.Status)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode openai response: %w", decodeErr)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return out.Data[0].Embedding, nil
}

var _ Provider = (*OpenAI)(nil)
