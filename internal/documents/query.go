package documents

import "strings"

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Filters narrows List and Count. Zero values match everything.
type Filters struct {
	Status   Status
	FileType FileType
	Category string
	// Search is a case-insensitive substring over title, filename and
	// extracted text.
	Search string
}

// ListOptions controls filtering, ordering and paging for List.
type ListOptions struct {
	Filters
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// sortColumns whitelists sortable columns. "kind" is accepted as an alias.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"title":      "title",
	"file_type":  "file_type",
	"kind":       "file_type",
	"status":     "status",
}

// Validate rejects unknown enum values.
func (o ListOptions) Validate() error {
	if o.Status != "" && !o.Status.Valid() {
		return invalidf("Invalid status: %s", o.Status)
	}
	if o.FileType != "" && !o.FileType.Valid() {
		return invalidf("Invalid file type: %s", o.FileType)
	}
	if o.SortBy != "" {
		if _, ok := sortColumns[strings.ToLower(o.SortBy)]; !ok {
			return invalidf("Invalid sort field: %s", o.SortBy)
		}
	}
	switch strings.ToLower(o.SortOrder) {
	case "", "asc", "desc":
	default:
		return invalidf("Invalid sort order: %s", o.SortOrder)
	}
	return nil
}

// Normalize applies defaults and clamps paging.
func (o ListOptions) Normalize() ListOptions {
	col, ok := sortColumns[strings.ToLower(o.SortBy)]
	if !ok {
		col = "created_at"
	}
	o.SortBy = col
	if strings.ToLower(o.SortOrder) == "asc" {
		o.SortOrder = "asc"
	} else {
		o.SortOrder = "desc"
	}
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	o.Search = strings.TrimSpace(o.Search)
	o.Category = strings.TrimSpace(o.Category)
	return o
}

func (f Filters) match(doc Document) bool {
	if f.Status != "" && doc.Status != f.Status {
		return false
	}
	if f.FileType != "" && doc.FileType != f.FileType {
		return false
	}
	if f.Category != "" && doc.Category != f.Category {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		text := ""
		if doc.ExtractedText != nil {
			text = *doc.ExtractedText
		}
		if !strings.Contains(strings.ToLower(doc.Title), q) &&
			!strings.Contains(strings.ToLower(doc.Filename), q) &&
			!strings.Contains(strings.ToLower(text), q) {
			return false
		}
	}
	return true
}
