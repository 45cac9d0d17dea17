package documents

import (
	"strings"
	"time"
)

// Status is a document's position in the processing lifecycle.
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusUploading, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// FileType is the content family derived from the upload extension.
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeImage FileType = "image"
	FileTypeDOCX  FileType = "docx"
)

// Valid reports whether t is a known file type.
func (t FileType) Valid() bool {
	switch t {
	case FileTypePDF, FileTypeImage, FileTypeDOCX:
		return true
	}
	return false
}

// FileTypeForExtension maps a lower-case extension without the dot.
func FileTypeForExtension(ext string) (FileType, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return FileTypePDF, true
	case "png", "jpg", "jpeg":
		return FileTypeImage, true
	case "docx":
		return FileTypeDOCX, true
	}
	return "", false
}

// Document represents an uploaded document owned by a user.
type Document struct {
	ID            int64
	UserID        int64
	Title         string
	Filename      string
	FilePath      string
	FileType      FileType
	FileSize      int64
	Category      string
	Summary       string
	ExtractedText *string
	ErrorMessage  string
	// Embedding is only populated by the in-memory repo; PG reads report
	// HasEmbedding instead of loading the vector.
	Embedding    []float32
	HasEmbedding bool
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SearchResult pairs a document with its similarity to a query. Ranked is
// false when similarity is the 0.5 placeholder used without vector support.
type SearchResult struct {
	Document   Document
	Similarity float64
	Ranked     bool
}

// UnrankedSimilarity is reported when vector ranking is unavailable.
const UnrankedSimilarity = 0.5
