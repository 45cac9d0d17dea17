package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"
)

// OCR recognizes text in a single raster image (PNG or JPEG bytes).
type OCR interface {
	Recognize(ctx context.Context, img []byte, language string) (string, error)
}

// Rasterizer renders one PDF page (1-indexed) to PNG bytes.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfData []byte, page int) ([]byte, error)
}

// Unavailable is the OCR used when no backend is configured.
type Unavailable struct{}

func (Unavailable) Recognize(context.Context, []byte, string) (string, error) {
	return "", ErrOCRUnavailable
}

type noRasterizer struct{}

func (noRasterizer) Rasterize(context.Context, []byte, int) ([]byte, error) {
	return nil, ErrRasterUnavailable
}

// Tesseract shells out to the tesseract CLI, image on stdin and text on stdout.
type Tesseract struct {
	Path    string
	Timeout time.Duration
}

func (t Tesseract) Recognize(ctx context.Context, img []byte, language string) (string, error) {
	bin := strings.TrimSpace(t.Path)
	if bin == "" {
		bin = "tesseract"
	}
	out, err := runTool(ctx, t.Timeout, bin, img, "stdin", "stdout", "-l", normalizeLanguage(language))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Pdftoppm renders pages with poppler's pdftoppm at 144 dpi (2x of 72).
type Pdftoppm struct {
	Path    string
	Timeout time.Duration
}

const rasterDPI = "144"

func (p Pdftoppm) Rasterize(ctx context.Context, pdfData []byte, page int) ([]byte, error) {
	bin := strings.TrimSpace(p.Path)
	if bin == "" {
		bin = "pdftoppm"
	}
	n := fmt.Sprint(page)
	return runTool(ctx, p.Timeout, bin, pdfData, "-f", n, "-l", n, "-r", rasterDPI, "-png", "-singlefile", "-", "-")
}

func runTool(ctx context.Context, timeout time.Duration, bin string, stdin []byte, args ...string) ([]byte, error) {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 200 {
			msg = msg[:200]
		}
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", bin, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", bin, err)
	}
	return stdout.Bytes(), nil
}

// HTTPOCR posts the image to an OCR service that answers {"text": "..."}.
type HTTPOCR struct {
	URL    string
	Client *http.Client
}

func (h HTTPOCR) Recognize(ctx context.Context, img []byte, language string) (string, error) {
	if strings.TrimSpace(h.URL) == "" {
		return "", ErrOCRUnavailable
	}
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(img))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", http.DetectContentType(img))
	q := req.URL.Query()
	q.Set("lang", normalizeLanguage(language))
	req.URL.RawQuery = q.Encode()

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("read ocr response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("ocr status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	return payload.Text, nil
}
