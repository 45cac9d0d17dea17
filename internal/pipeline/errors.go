package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/BilalEnesS/doc-panel/internal/extract"
)

const (
	FailureFileMissing = "file_missing"
	FailureExtraction  = "extraction_failed"
	FailureStorage     = "storage_error"
	FailureInternal    = "internal_error"
)

// errFileMissing marks a stored file that no longer exists. Its message is
// what gets persisted.
type errFileMissing struct {
	path string
}

func (e errFileMissing) Error() string { return "File not found: " + e.path }

// classifyFailure labels err for logs and reports whether a retry could help.
func classifyFailure(err error) (string, bool) {
	if err == nil {
		return FailureInternal, false
	}
	var missing errFileMissing
	if errors.As(err, &missing) {
		return FailureFileMissing, false
	}
	var extractErr *extract.ExtractionError
	if errors.As(err, &extractErr) {
		return FailureExtraction, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureStorage, true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "storage") || strings.Contains(msg, "set processing") || strings.Contains(msg, "set completed") {
		return FailureStorage, true
	}
	return FailureInternal, false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if r := []rune(msg); len(r) > maxLen {
		msg = string(r[:maxLen])
	}
	return msg
}
