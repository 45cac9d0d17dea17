package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/BilalEnesS/doc-panel/internal/shared/metrics"
	"github.com/BilalEnesS/doc-panel/internal/shared/storage/object"
	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
	"github.com/BilalEnesS/doc-panel/internal/shared/util"
)

// DefaultAllowedTypes is the extension allow-list used when none is configured.
var DefaultAllowedTypes = []string{"pdf", "png", "jpg", "jpeg", "docx"}

// Dispatcher schedules a processing run for a document and returns at once.
type Dispatcher interface {
	Dispatch(ctx context.Context, documentID int64) error
}

// Service contains business logic for documents.
type Service struct {
	Repo         Repo
	Store        object.ObjectStore
	Dispatcher   Dispatcher
	MaxFileSize  int64
	AllowedTypes []string
}

// UploadInput is a single multipart upload.
type UploadInput struct {
	OwnerID  int64
	Title    string
	Category string
	Filename string
	Body     io.Reader
}

// Page is one page of List results.
type Page struct {
	Items  []Document
	Total  int
	Limit  int
	Offset int
}

// Upload validates the file, streams it to object storage, records the
// document in processing and dispatches the pipeline.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Document, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Document{}, invalidf("Title is required")
	}
	if strings.TrimSpace(in.Filename) == "" {
		return Document{}, invalidf("Filename is required")
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(in.Filename), "."))
	if !s.allowed(ext) {
		return Document{}, invalidf("Unsupported file type: .%s", ext)
	}
	fileType, ok := FileTypeForExtension(ext)
	if !ok {
		return Document{}, invalidf("Unsupported file type: .%s", ext)
	}

	stored := strings.ReplaceAll(uuid.NewString(), "-", "") + "." + ext
	key := fmt.Sprintf("%d/%s", in.OwnerID, stored)

	size, err := s.Store.Put(ctx, key, in.Body, s.MaxFileSize)
	if err != nil {
		if errors.Is(err, object.ErrTooLarge) {
			return Document{}, invalidf("File size exceeds the maximum allowed size of %d MB", s.MaxFileSize/(1<<20))
		}
		return Document{}, fmt.Errorf("store upload: %w", err)
	}

	filename, err := util.SanitizeFileName(filepath.Base(in.Filename))
	if err != nil {
		filename = stored
	}

	doc, err := s.Repo.Create(ctx, Document{
		UserID:   in.OwnerID,
		Title:    title,
		Filename: filename,
		FilePath: key,
		FileType: fileType,
		FileSize: size,
		Category: strings.TrimSpace(in.Category),
		Status:   StatusProcessing,
	})
	if err != nil {
		if delErr := s.Store.Delete(context.Background(), key); delErr != nil {
			telemetry.Warn("document.upload.cleanup_failed", map[string]any{"file_path": key, "error": delErr.Error()})
		}
		return Document{}, fmt.Errorf("create document: %w", err)
	}

	metrics.IncDocumentUploaded(string(fileType))
	telemetry.Info("document.uploaded", map[string]any{
		"document_id": doc.ID,
		"user_id":     doc.UserID,
		"file_type":   doc.FileType,
		"file_size":   doc.FileSize,
	})

	return s.dispatch(ctx, doc), nil
}

// Get returns the document when ownerID owns it.
func (s *Service) Get(ctx context.Context, ownerID, id int64) (Document, error) {
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if doc.UserID != ownerID {
		return Document{}, ErrForbidden
	}
	return doc, nil
}

// List returns one page of the owner's documents with the filtered total.
func (s *Service) List(ctx context.Context, ownerID int64, opts ListOptions) (Page, error) {
	if err := opts.Validate(); err != nil {
		return Page{}, err
	}
	opts = opts.Normalize()
	items, err := s.Repo.List(ctx, ownerID, opts)
	if err != nil {
		return Page{}, err
	}
	total, err := s.Repo.Count(ctx, ownerID, opts.Filters)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Limit: opts.Limit, Offset: opts.Offset}, nil
}

// Reprocess resets the document to processing and re-enters the pipeline.
func (s *Service) Reprocess(ctx context.Context, ownerID, id int64) (Document, error) {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return Document{}, err
	}
	if err := s.Repo.UpdateStatus(ctx, id, StatusProcessing); err != nil {
		return Document{}, err
	}
	doc.Status = StatusProcessing
	doc.ErrorMessage = ""
	telemetry.Info("document.status", map[string]any{
		"document_id":       id,
		"status_transition": "reprocess",
		"status":            StatusProcessing,
	})
	return s.dispatch(ctx, doc), nil
}

// Delete removes the row and its backing file.
func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, doc.FilePath); err != nil && !errors.Is(err, object.ErrNotFound) {
		telemetry.Warn("document.delete.file_failed", map[string]any{
			"document_id": id,
			"file_path":   doc.FilePath,
			"error":       err.Error(),
		})
	}
	return nil
}

// dispatch hands the document to the pipeline. A dispatch failure marks the
// document failed so it never stays in processing.
func (s *Service) dispatch(ctx context.Context, doc Document) Document {
	if s.Dispatcher == nil {
		return doc
	}
	err := s.Dispatcher.Dispatch(ctx, doc.ID)
	if err == nil {
		return doc
	}
	msg := "Failed to schedule processing: " + err.Error()
	telemetry.Error("document.dispatch_failed", map[string]any{
		"document_id": doc.ID,
		"error":       err.Error(),
	})
	if failErr := s.Repo.Fail(context.Background(), doc.ID, msg); failErr != nil {
		telemetry.Error("document.fail_update_failed", map[string]any{
			"document_id": doc.ID,
			"error":       failErr.Error(),
		})
		return doc
	}
	doc.Status = StatusFailed
	doc.ErrorMessage = msg
	doc.ExtractedText = &msg
	return doc
}

func (s *Service) allowed(ext string) bool {
	if ext == "" {
		return false
	}
	allowed := s.AllowedTypes
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimPrefix(strings.TrimSpace(a), "."), ext) {
			return true
		}
	}
	return false
}
