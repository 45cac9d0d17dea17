package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/BilalEnesS/doc-panel/internal/shared/metrics"
	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
)

// pageSource exposes the text layer of a parsed PDF. Pages are 1-indexed.
type pageSource interface {
	NumPage() int
	PageText(n int) (string, error)
}

type ledongthucSource struct {
	r *pdf.Reader
}

func openLedongthuc(data []byte) (pageSource, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return ledongthucSource{r: r}, nil
}

func (s ledongthucSource) NumPage() int { return s.r.NumPage() }

func (s ledongthucSource) PageText(n int) (string, error) {
	page := s.r.Page(n)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d not found", n)
	}
	return page.GetPlainText(nil)
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte, language string) (string, error) {
	open := e.openPDF
	if open == nil {
		open = openLedongthuc
	}
	src, err := open(data)
	if err != nil {
		return "", newExtractionError(KindPDF, err)
	}

	total := src.NumPage()
	if total == 0 {
		return NoPagesInPDF, nil
	}

	limit := e.PageConcurrency
	if limit <= 0 {
		limit = 1
	}
	texts := make([]string, total)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < total; i++ {
		pageNum := i + 1
		idx := i
		g.Go(func() error {
			// Page failures become placeholders; only cancellation stops the document.
			text, err := e.extractPage(gctx, src, data, pageNum, language)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				metrics.IncOCRPage("error")
				telemetry.Warn("extract.pdf.page_failed", map[string]any{"page": pageNum, "error": err})
				texts[idx] = fmt.Sprintf(pageErrorFmt, pageNum, err)
				return nil
			}
			texts[idx] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	result := strings.Join(texts, pageSeparator)
	if strings.TrimSpace(result) == "" {
		return NoTextInPDF, nil
	}
	return result, nil
}

func (e *Extractor) extractPage(ctx context.Context, src pageSource, data []byte, pageNum int, language string) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("%v", rec)
		}
	}()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	layer, err := src.PageText(pageNum)
	if err == nil {
		if trimmed := strings.TrimSpace(layer); trimmed != "" {
			metrics.IncOCRPage("text")
			return trimmed, nil
		}
	}

	// No usable text layer, probably a scan.
	img, err := e.Rasterizer.Rasterize(ctx, data, pageNum)
	if err != nil {
		return "", fmt.Errorf("rasterize: %w", err)
	}
	ocrText, err := e.OCR.Recognize(ctx, img, language)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	metrics.IncOCRPage("ocr")
	if trimmed := strings.TrimSpace(ocrText); trimmed != "" {
		return trimmed, nil
	}
	return fmt.Sprintf(noTextOnPageFmt, pageNum), nil
}
