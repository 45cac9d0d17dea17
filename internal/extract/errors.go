package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedKind is wrapped in an ExtractionError for unknown kinds.
	ErrUnsupportedKind = errors.New("unsupported file kind")
	// ErrOCRUnavailable is returned by the placeholder OCR backend.
	ErrOCRUnavailable = errors.New("ocr backend not configured")
	// ErrRasterUnavailable is returned when no rasterizer is configured.
	ErrRasterUnavailable = errors.New("pdf rasterizer not configured")
)

// ExtractionError reports a whole-document extraction failure.
type ExtractionError struct {
	Kind Kind
	Err  error
}

func (e *ExtractionError) Error() string {
	if errors.Is(e.Err, ErrUnsupportedKind) {
		return fmt.Sprintf("Unsupported file type: %s", e.Kind)
	}
	return fmt.Sprintf("Error extracting text from %s: %v", e.Kind.label(), e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func newExtractionError(kind Kind, err error) error {
	return &ExtractionError{Kind: kind, Err: err}
}
