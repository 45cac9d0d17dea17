package search

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BilalEnesS/doc-panel/internal/documents"
	"github.com/BilalEnesS/doc-panel/internal/shared/server/middleware"
	"github.com/BilalEnesS/doc-panel/internal/shared/server/respond"
)

// Handler exposes similarity search and search history.
type Handler struct {
	Engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{Engine: engine}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/documents/search", h.search)
	rg.GET("/search/history", h.history)
}

// ResultResponse is one ranked hit.
type ResultResponse struct {
	Document   documents.DocumentResponse `json:"document"`
	Similarity float64                    `json:"similarity"`
	Ranked     bool                       `json:"ranked"`
}

// Response is the search payload.
type Response struct {
	Query                 string           `json:"query"`
	Results               []ResultResponse `json:"results"`
	VectorSearchAvailable bool             `json:"vector_search_available"`
}

// HistoryResponse lists past searches.
type HistoryResponse struct {
	Items []HistoryEntry `json:"items"`
}

func (h *Handler) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Search query is required", nil)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > documents.MaxListLimit {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be between 1 and 100", nil)
			return
		}
		limit = parsed
	}
	threshold := -1.0 // engine default
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "threshold must be between 0 and 1", nil)
			return
		}
		threshold = parsed
	}

	ctx := c.Request.Context()
	results, err := h.Engine.Search(ctx, middleware.UserIDFromContext(c), query, limit, threshold)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to search documents", nil)
		return
	}

	out := make([]ResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, ResultResponse{
			Document:   documents.ToResponse(r.Document),
			Similarity: r.Similarity,
			Ranked:     r.Ranked,
		})
	}
	respond.OK(c, Response{
		Query:                 query,
		Results:               out,
		VectorSearchAvailable: h.Engine.VectorSearchAvailable(ctx),
	})
}

func (h *Handler) history(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}
	items, err := h.Engine.RecentHistory(c.Request.Context(), middleware.UserIDFromContext(c), limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load search history", nil)
		return
	}
	respond.OK(c, HistoryResponse{Items: items})
}
