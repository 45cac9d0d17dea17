package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
)

// TextExtractor turns raw bytes of a known kind into text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, kind Kind, language string) (string, error)
}

// Extractor is the production TextExtractor. Text layers are read directly;
// anything without one goes through OCR.
type Extractor struct {
	OCR        OCR
	Rasterizer Rasterizer
	// PageConcurrency bounds parallel OCR of pages within one PDF.
	PageConcurrency int

	openPDF func(data []byte) (pageSource, error)
}

// New builds an Extractor with the ledongthuc/pdf text layer reader.
func New(ocr OCR, rasterizer Rasterizer, pageConcurrency int) *Extractor {
	if ocr == nil {
		ocr = Unavailable{}
	}
	if rasterizer == nil {
		rasterizer = noRasterizer{}
	}
	if pageConcurrency <= 0 {
		pageConcurrency = 1
	}
	return &Extractor{
		OCR:             ocr,
		Rasterizer:      rasterizer,
		PageConcurrency: pageConcurrency,
		openPDF:         openLedongthuc,
	}
}

// Extract never returns an empty string with a nil error: when nothing is
// readable it returns one of the NoText* results instead.
func (e *Extractor) Extract(ctx context.Context, data []byte, kind Kind, language string) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	language = normalizeLanguage(language)

	// Third-party decoders panic on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = newExtractionError(kind, fmt.Errorf("panic: %v", rec))
		}
	}()

	switch kind {
	case KindPDF:
		text, err = e.extractPDF(ctx, data, language)
	case KindImage:
		text, err = e.extractImage(ctx, data, language)
	case KindDOCX:
		text, err = extractDOCX(data)
	default:
		return "", newExtractionError(kind, ErrUnsupportedKind)
	}
	if err != nil {
		telemetry.Error("extract.failed", map[string]any{"kind": string(kind), "error": err})
		return "", err
	}
	return text, nil
}

func normalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return DefaultLanguage
	}
	for _, r := range lang {
		if !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != '_' && r != '+' {
			return DefaultLanguage
		}
	}
	return lang
}

var _ TextExtractor = (*Extractor)(nil)
