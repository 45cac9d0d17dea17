package categories

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BilalEnesS/doc-panel/internal/shared/server/middleware"
	"github.com/BilalEnesS/doc-panel/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/categories", h.list)
	rg.POST("/categories", middleware.RequireAdmin(), h.create)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list categories", nil)
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	created, err := h.Svc.Create(c.Request.Context(), in)
	switch {
	case err == nil:
		respond.Created(c, created)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), nil)
	case errors.Is(err, ErrDuplicate):
		respond.Error(c, http.StatusConflict, "conflict", "Category already exists", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create category", nil)
	}
}
