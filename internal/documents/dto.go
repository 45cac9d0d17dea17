package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Title         string    `json:"title"`
	Filename      string    `json:"filename"`
	FilePath      string    `json:"file_path"`
	FileType      FileType  `json:"file_type"`
	FileSize      int64     `json:"file_size"`
	Category      *string   `json:"category"`
	Summary       *string   `json:"summary"`
	ExtractedText *string   `json:"extracted_text"`
	ErrorMessage  *string   `json:"error_message"`
	HasEmbedding  bool      `json:"has_embedding"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UploadResponse is returned by POST /documents/upload.
type UploadResponse struct {
	Message  string           `json:"message"`
	Document DocumentResponse `json:"document"`
}

// ListResponse is one page of documents.
type ListResponse struct {
	Items  []DocumentResponse `json:"items"`
	Total  int                `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// ToResponse converts a Document for JSON output.
func ToResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:            doc.ID,
		UserID:        doc.UserID,
		Title:         doc.Title,
		Filename:      doc.Filename,
		FilePath:      doc.FilePath,
		FileType:      doc.FileType,
		FileSize:      doc.FileSize,
		Category:      optional(doc.Category),
		Summary:       optional(doc.Summary),
		ExtractedText: doc.ExtractedText,
		ErrorMessage:  optional(doc.ErrorMessage),
		HasEmbedding:  doc.HasEmbedding,
		Status:        doc.Status,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
