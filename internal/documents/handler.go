package documents

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/BilalEnesS/doc-panel/internal/shared/server/middleware"
	"github.com/BilalEnesS/doc-panel/internal/shared/server/respond"
)

// multipartSlack allows for form overhead on top of the file itself; the
// exact limit is enforced while streaming to storage.
const multipartSlack = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/upload", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.POST("/documents/:id/reprocess", h.reprocess)
	rg.DELETE("/documents/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if h.Svc.MaxFileSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Svc.MaxFileSize+multipartSlack)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusBadRequest, "validation_error",
				"File size exceeds the maximum allowed size of "+strconv.FormatInt(h.Svc.MaxFileSize/(1<<20), 10)+" MB", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		OwnerID:  userID,
		Title:    c.PostForm("title"),
		Category: c.PostForm("category"),
		Filename: fileHeader.Filename,
		Body:     file,
	})
	if err != nil {
		writeError(c, err, "failed to upload document")
		return
	}

	respond.Created(c, UploadResponse{
		Message:  "Document uploaded successfully",
		Document: ToResponse(doc),
	})
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	opts := ListOptions{
		Filters: Filters{
			Status:   Status(c.Query("status")),
			FileType: FileType(c.Query("file_type")),
			Category: c.Query("category"),
			Search:   c.Query("search"),
		},
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Limit:     DefaultListLimit,
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			opts.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			opts.Offset = parsed
		}
	}

	page, err := h.Svc.List(c.Request.Context(), userID, opts)
	if err != nil {
		writeError(c, err, "failed to list documents")
		return
	}

	items := make([]DocumentResponse, 0, len(page.Items))
	for _, doc := range page.Items {
		items = append(items, ToResponse(doc))
	}
	respond.OK(c, ListResponse{Items: items, Total: page.Total, Limit: page.Limit, Offset: page.Offset})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	doc, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err, "failed to fetch document")
		return
	}
	respond.OK(c, ToResponse(doc))
}

func (h *Handler) reprocess(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	doc, err := h.Svc.Reprocess(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err, "failed to reprocess document")
		return
	}
	respond.Accepted(c, ToResponse(doc))
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		writeError(c, err, "failed to delete document")
		return
	}
	respond.NoContent(c)
}

func documentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid document id", nil)
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error, fallback string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Error(c, http.StatusBadRequest, "validation_error", verr.Message, nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Document not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "Access denied", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
