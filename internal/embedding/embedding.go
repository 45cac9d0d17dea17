package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/BilalEnesS/doc-panel/internal/shared/metrics"
	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
)

// MaxInputChars caps the text sent to a provider; longer input is cut to this prefix.
const MaxInputChars = 30000

// Provider produces one vector for one text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator wraps a Provider with the soft-failure contract used by the
// pipeline and search: Embed returns nil instead of an error.
type Generator struct {
	provider   Provider
	name       string
	dimensions int
	timeout    time.Duration
}

// NewGenerator returns a Generator. A nil provider yields an unavailable generator.
// dimensions <= 0 disables the length check.
func NewGenerator(name string, provider Provider, dimensions int, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Generator{provider: provider, name: name, dimensions: dimensions, timeout: timeout}
}

// Available reports whether embeddings can be produced at all.
func (g *Generator) Available() bool {
	return g != nil && g.provider != nil
}

// Dimensions is the expected vector length, 0 when unchecked.
func (g *Generator) Dimensions() int {
	if g == nil {
		return 0
	}
	return g.dimensions
}

// Embed returns the vector for text, or nil when the generator is unavailable,
// the text is blank, or the provider fails in any way.
func (g *Generator) Embed(ctx context.Context, text string) []float32 {
	if !g.Available() || text == "" {
		return nil
	}
	text = truncateRunes(text, MaxInputChars)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	vec, err := g.provider.Embed(callCtx, text)
	if err == nil && len(vec) == 0 {
		err = fmt.Errorf("empty embedding returned")
	}
	if err == nil && g.dimensions > 0 && len(vec) != g.dimensions {
		err = fmt.Errorf("embedding dimension mismatch: got %d want %d", len(vec), g.dimensions)
	}
	if err != nil {
		metrics.IncEmbedding("failed")
		telemetry.Warn("embedding.failed", map[string]any{
			"provider":   g.name,
			"error":      err,
			"text_chars": len(text),
		})
		return nil
	}
	metrics.IncEmbedding("ok")
	return vec
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
