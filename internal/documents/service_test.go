package documents

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/BilalEnesS/doc-panel/internal/shared/storage/object/local"
)

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, documentID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, documentID)
	return d.err
}

func newTestService(t *testing.T, maxSize int64) (*Service, *MemoryRepo, *recordingDispatcher, string) {
	t.Helper()
	dir := t.TempDir()
	repo := NewMemoryRepo()
	disp := &recordingDispatcher{}
	return &Service{
		Repo:        repo,
		Store:       local.New(dir),
		Dispatcher:  disp,
		MaxFileSize: maxSize,
	}, repo, disp, dir
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return nil
	})
	return n
}

func TestUploadStoresFileCreatesProcessingRowAndDispatches(t *testing.T) {
	svc, repo, disp, dir := newTestService(t, 10<<20)

	doc, err := svc.Upload(context.Background(), UploadInput{
		OwnerID:  7,
		Title:    "  Q1 report ",
		Category: "finance",
		Filename: "Report.PDF",
		Body:     strings.NewReader("%PDF-1.4 fake"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.Status != StatusProcessing || doc.FileType != FileTypePDF || doc.Title != "Q1 report" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if !strings.HasPrefix(doc.FilePath, "7/") || !strings.HasSuffix(doc.FilePath, ".pdf") {
		t.Fatalf("unexpected storage key %q", doc.FilePath)
	}
	if len(strings.TrimSuffix(strings.TrimPrefix(doc.FilePath, "7/"), ".pdf")) != 32 {
		t.Fatalf("expected 32 hex chars in key, got %q", doc.FilePath)
	}
	if doc.FileSize != int64(len("%PDF-1.4 fake")) {
		t.Fatalf("unexpected size %d", doc.FileSize)
	}
	if doc.Filename != "Report.PDF" {
		t.Fatalf("unexpected filename %q", doc.Filename)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(doc.FilePath))); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if len(disp.ids) != 1 || disp.ids[0] != doc.ID {
		t.Fatalf("expected dispatch of %d, got %v", doc.ID, disp.ids)
	}
	if n, _ := repo.Count(context.Background(), 7, Filters{}); n != 1 {
		t.Fatalf("expected one row, got %d", n)
	}
}

func TestUploadRejectsBeforeStorage(t *testing.T) {
	tests := []struct {
		name     string
		in       UploadInput
		wantMsg  string
		maxBytes int64
	}{
		{name: "exe", in: UploadInput{Title: "x", Filename: "setup.exe", Body: strings.NewReader("MZ")}, wantMsg: "Unsupported file type: .exe"},
		{name: "no extension", in: UploadInput{Title: "x", Filename: "README", Body: strings.NewReader("a")}, wantMsg: "Unsupported file type: ."},
		{name: "missing filename", in: UploadInput{Title: "x", Filename: " ", Body: strings.NewReader("a")}, wantMsg: "Filename is required"},
		{name: "missing title", in: UploadInput{Filename: "a.pdf", Body: strings.NewReader("a")}, wantMsg: "Title is required"},
		{
			name:     "oversize",
			in:       UploadInput{Title: "x", Filename: "big.png", Body: bytes.NewReader(make([]byte, 3<<20))},
			wantMsg:  "File size exceeds the maximum allowed size of 2 MB",
			maxBytes: 2 << 20,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maxBytes := tt.maxBytes
			if maxBytes == 0 {
				maxBytes = 10 << 20
			}
			svc, repo, disp, dir := newTestService(t, maxBytes)
			tt.in.OwnerID = 1

			_, err := svc.Upload(context.Background(), tt.in)
			var verr *ValidationError
			if !errors.As(err, &verr) || !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Message != tt.wantMsg {
				t.Fatalf("message = %q, want %q", verr.Message, tt.wantMsg)
			}
			if n, _ := repo.Count(context.Background(), 1, Filters{}); n != 0 {
				t.Fatalf("expected no rows, got %d", n)
			}
			if n := countFiles(t, dir); n != 0 {
				t.Fatalf("expected no files, got %d", n)
			}
			if len(disp.ids) != 0 {
				t.Fatalf("nothing should be dispatched")
			}
		})
	}
}

func TestUploadDispatchFailureMarksFailed(t *testing.T) {
	svc, repo, disp, _ := newTestService(t, 10<<20)
	disp.err = errors.New("queue unavailable")

	doc, err := svc.Upload(context.Background(), UploadInput{OwnerID: 1, Title: "t", Filename: "a.docx", Body: strings.NewReader("PK")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.Status != StatusFailed {
		t.Fatalf("expected failed status, got %s", doc.Status)
	}
	stored, _ := repo.GetByID(context.Background(), doc.ID)
	if stored.Status != StatusFailed || !strings.Contains(stored.ErrorMessage, "queue unavailable") {
		t.Fatalf("stored doc should be failed, got %+v", stored)
	}
}

func TestUploadRespectsConfiguredAllowList(t *testing.T) {
	svc, _, _, _ := newTestService(t, 10<<20)
	svc.AllowedTypes = []string{"pdf"}

	_, err := svc.Upload(context.Background(), UploadInput{OwnerID: 1, Title: "t", Filename: "a.png", Body: strings.NewReader("x")})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected png to be rejected, got %v", err)
	}
}

func TestGetReprocessDeleteEnforceOwnership(t *testing.T) {
	svc, repo, disp, dir := newTestService(t, 10<<20)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, UploadInput{OwnerID: 1, Title: "t", Filename: "a.pdf", Body: strings.NewReader("%PDF")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if _, err := svc.Get(ctx, 2, doc.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Get(ctx, 1, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Reprocess(ctx, 2, doc.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on reprocess, got %v", err)
	}
	if err := svc.Delete(ctx, 2, doc.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on delete, got %v", err)
	}

	if err := repo.Fail(ctx, doc.ID, "boom"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	re, err := svc.Reprocess(ctx, 1, doc.ID)
	if err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if re.Status != StatusProcessing || re.ErrorMessage != "" {
		t.Fatalf("unexpected reprocessed doc %+v", re)
	}
	if len(disp.ids) != 2 {
		t.Fatalf("expected two dispatches, got %v", disp.ids)
	}

	if err := svc.Delete(ctx, 1, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n := countFiles(t, dir); n != 0 {
		t.Fatalf("expected file removed, found %d", n)
	}
	if _, err := repo.GetByID(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected row removed, got %v", err)
	}
}

func TestListValidatesAndReturnsTotal(t *testing.T) {
	svc, _, _, _ := newTestService(t, 10<<20)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.Upload(ctx, UploadInput{OwnerID: 1, Title: "t", Filename: "a.pdf", Body: strings.NewReader("x")}); err != nil {
			t.Fatalf("Upload: %v", err)
		}
	}

	page, err := svc.List(ctx, 1, ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 2 || page.Total != 3 || page.Limit != 2 {
		t.Fatalf("unexpected page %+v", page)
	}

	if _, err := svc.List(ctx, 1, ListOptions{SortBy: "password"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid sort to be rejected, got %v", err)
	}
	if _, err := svc.List(ctx, 1, ListOptions{Filters: Filters{Status: "archived"}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid status to be rejected, got %v", err)
	}
	if page, _ := svc.List(ctx, 1, ListOptions{Limit: 1000}); page.Limit != MaxListLimit {
		t.Fatalf("expected limit clamp to %d, got %d", MaxListLimit, page.Limit)
	}
}
