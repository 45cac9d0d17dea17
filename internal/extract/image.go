package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders used by DecodeConfig
	_ "image/png"
	"strings"
)

func (e *Extractor) extractImage(ctx context.Context, data []byte, language string) (string, error) {
	if len(data) == 0 {
		return "", newExtractionError(KindImage, fmt.Errorf("empty image data"))
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", newExtractionError(KindImage, err)
	}
	text, err := e.OCR.Recognize(ctx, data, language)
	if err != nil {
		return "", newExtractionError(KindImage, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return NoTextInImage, nil
	}
	return text, nil
}
