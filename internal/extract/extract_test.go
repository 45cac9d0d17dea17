package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
)

type fakePages struct {
	texts []string
	errs  map[int]error
}

func (f fakePages) NumPage() int { return len(f.texts) }

func (f fakePages) PageText(n int) (string, error) {
	if err, ok := f.errs[n]; ok {
		return "", err
	}
	return f.texts[n-1], nil
}

type fakeRasterizer struct {
	mu    sync.Mutex
	pages []int
	fail  map[int]error
}

func (r *fakeRasterizer) Rasterize(ctx context.Context, pdfData []byte, page int) ([]byte, error) {
	r.mu.Lock()
	r.pages = append(r.pages, page)
	r.mu.Unlock()
	if err, ok := r.fail[page]; ok {
		return nil, err
	}
	return []byte(fmt.Sprintf("png-page-%d", page)), nil
}

type fakeOCR struct {
	mu     sync.Mutex
	out    map[string]string
	err    error
	langs  []string
	called int
}

func (o *fakeOCR) Recognize(ctx context.Context, img []byte, language string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.called++
	o.langs = append(o.langs, language)
	if o.err != nil {
		return "", o.err
	}
	if text, ok := o.out[string(img)]; ok {
		return text, nil
	}
	return "", nil
}

func newTestExtractor(pages pageSource, openErr error, ocr OCR, raster Rasterizer) *Extractor {
	e := New(ocr, raster, 2)
	e.openPDF = func([]byte) (pageSource, error) {
		if openErr != nil {
			return nil, openErr
		}
		return pages, nil
	}
	return e
}

func TestExtractPDFUsesTextLayer(t *testing.T) {
	ocr := &fakeOCR{}
	raster := &fakeRasterizer{}
	e := newTestExtractor(fakePages{texts: []string{"  Invoice 42  ", "Total due"}}, nil, ocr, raster)

	got, err := e.Extract(context.Background(), []byte("%PDF"), KindPDF, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Invoice 42\n\nTotal due" {
		t.Fatalf("unexpected text %q", got)
	}
	if ocr.called != 0 || len(raster.pages) != 0 {
		t.Fatalf("text layer pages should not be OCRed")
	}
}

func TestExtractScannedPDFFallsBackToOCRPerPage(t *testing.T) {
	ocr := &fakeOCR{out: map[string]string{
		"png-page-1": "first page\n",
		"png-page-2": "second page",
		"png-page-3": "third page",
	}}
	raster := &fakeRasterizer{}
	e := newTestExtractor(fakePages{texts: []string{"", " ", "\n"}}, nil, ocr, raster)

	got, err := e.Extract(context.Background(), []byte("%PDF"), KindPDF, "deu")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	segments := strings.Split(got, "\n\n")
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d: %q", len(segments), got)
	}
	if segments[0] != "first page" || segments[2] != "third page" {
		t.Fatalf("segments out of order: %q", segments)
	}
	if ocr.called != 3 {
		t.Fatalf("expected 3 OCR calls, got %d", ocr.called)
	}
	for _, lang := range ocr.langs {
		if lang != "deu" {
			t.Fatalf("expected language deu, got %q", lang)
		}
	}
}

func TestExtractPDFPagePlaceholders(t *testing.T) {
	ocr := &fakeOCR{out: map[string]string{"png-page-2": ""}}
	raster := &fakeRasterizer{fail: map[int]error{3: errors.New("render crashed")}}
	e := newTestExtractor(fakePages{texts: []string{"real text", "", ""}}, nil, ocr, raster)

	got, err := e.Extract(context.Background(), []byte("%PDF"), KindPDF, "eng")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "real text\n\n[No text found on page 2]\n\n[Error processing page 3: rasterize: render crashed]"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestExtractPDFSentinels(t *testing.T) {
	e := newTestExtractor(fakePages{}, nil, &fakeOCR{}, &fakeRasterizer{})
	got, err := e.Extract(context.Background(), []byte("%PDF"), KindPDF, "")
	if err != nil || got != NoPagesInPDF {
		t.Fatalf("zero pages: got %q, %v", got, err)
	}
	if !IsNoText(got) {
		t.Fatalf("expected IsNoText for %q", got)
	}
}

func TestExtractPDFOpenFailure(t *testing.T) {
	e := newTestExtractor(nil, errors.New("malformed xref"), &fakeOCR{}, &fakeRasterizer{})
	got, err := e.Extract(context.Background(), []byte("junk"), KindPDF, "")
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty text on error, got %q", got)
	}
	if extErr.Error() != "Error extracting text from PDF: malformed xref" {
		t.Fatalf("unexpected message %q", extErr.Error())
	}
}

func TestExtractRealPDFParserRejectsGarbage(t *testing.T) {
	e := New(&fakeOCR{}, &fakeRasterizer{}, 1)
	_, err := e.Extract(context.Background(), []byte("definitely not a pdf"), KindPDF, "")
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestExtractImage(t *testing.T) {
	data := pngBytes(t)
	ocr := &fakeOCR{out: map[string]string{string(data): "  Receipt\n"}}
	e := New(ocr, nil, 1)

	got, err := e.Extract(context.Background(), data, KindImage, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Receipt" {
		t.Fatalf("unexpected text %q", got)
	}

	blank := &fakeOCR{}
	got, err = New(blank, nil, 1).Extract(context.Background(), data, KindImage, "")
	if err != nil || got != NoTextInImage {
		t.Fatalf("blank image: got %q, %v", got, err)
	}
}

func TestExtractImageErrors(t *testing.T) {
	_, err := New(&fakeOCR{}, nil, 1).Extract(context.Background(), []byte("not an image"), KindImage, "")
	var extErr *ExtractionError
	if !errors.As(err, &extErr) || !strings.HasPrefix(err.Error(), "Error extracting text from image:") {
		t.Fatalf("expected image ExtractionError, got %v", err)
	}

	_, err = New(nil, nil, 1).Extract(context.Background(), pngBytes(t), KindImage, "")
	if !errors.Is(err, ErrOCRUnavailable) {
		t.Fatalf("expected ErrOCRUnavailable, got %v", err)
	}
}

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		body.WriteString(p)
		body.WriteString(`</w:t></w:r></w:p>`)
	}
	doc := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	e := New(nil, nil, 1)
	data := buildDocx(t, "Quarterly report", "   ", "Revenue grew")

	got, err := e.Extract(context.Background(), data, KindDOCX, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Quarterly report\n\nRevenue grew" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestExtractDOCXOnlyEmptyParagraphs(t *testing.T) {
	got, err := New(nil, nil, 1).Extract(context.Background(), buildDocx(t, "", " ", "\t"), KindDOCX, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != NoTextInDOCX {
		t.Fatalf("expected sentinel, got %q", got)
	}
}

func TestExtractDOCXWithoutDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("notes.txt")
	_, _ = w.Write([]byte("hello"))
	_ = zw.Close()

	_, err := New(nil, nil, 1).Extract(context.Background(), buf.Bytes(), KindDOCX, "")
	if err == nil || !strings.HasPrefix(err.Error(), "Error extracting text from DOCX:") {
		t.Fatalf("expected DOCX ExtractionError, got %v", err)
	}
}

func TestExtractUnsupportedKind(t *testing.T) {
	_, err := New(nil, nil, 1).Extract(context.Background(), []byte("MZ"), Kind("exe"), "")
	if !errors.Is(err, ErrUnsupportedKind) {
		t.Fatalf("expected ErrUnsupportedKind, got %v", err)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{
		"":          "eng",
		"deu":       "deu",
		"eng+tur":   "eng+tur",
		"chi_sim":   "chi_sim",
		"-l; rm -f": "eng",
	}
	for in, want := range tests {
		if got := normalizeLanguage(in); got != want {
			t.Fatalf("normalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

type blockingExtractor struct {
	started chan struct{}
	release chan struct{}
}

func (b blockingExtractor) Extract(ctx context.Context, data []byte, kind Kind, language string) (string, error) {
	b.started <- struct{}{}
	<-b.release
	return "done", nil
}

func TestPoolBoundsConcurrency(t *testing.T) {
	inner := blockingExtractor{started: make(chan struct{}, 4), release: make(chan struct{})}
	pool := NewPool(inner, 1)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := pool.Extract(context.Background(), nil, KindPDF, ""); err != nil {
				t.Errorf("Extract: %v", err)
			}
		}()
	}

	<-inner.started
	select {
	case <-inner.started:
		t.Fatalf("second job started while the only worker was busy")
	default:
	}
	close(inner.release)
	wg.Wait()
}

type panickingExtractor struct{}

func (panickingExtractor) Extract(context.Context, []byte, Kind, string) (string, error) {
	panic("decoder exploded")
}

func TestPoolRecoversPanics(t *testing.T) {
	_, err := NewPool(panickingExtractor{}, 1).Extract(context.Background(), nil, KindDOCX, "")
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError from panic, got %v", err)
	}
}
