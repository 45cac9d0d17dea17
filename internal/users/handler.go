package users

import (
	"errors"
	"net/http"

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
	rg.POST("/auth/signup", h.signup)
	rg.POST("/auth/login", h.login)
	rg.POST("/auth/logout", h.logout)
	rg.GET("/me", h.me)
}

func (h *Handler) signup(c *gin.Context) {
	var in SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid signup request", gin.H{"reason": err.Error()})
		return
	}
	user, token, err := h.Svc.Signup(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			respond.Error(c, http.StatusBadRequest, "validation_error", ErrEmailTaken.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create account", nil)
		return
	}
	respond.Created(c, AuthResponse{User: ToResponse(user), AccessToken: token, TokenType: TokenType})
}

func (h *Handler) login(c *gin.Context) {
	var in LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid login request", gin.H{"reason": err.Error()})
		return
	}
	user, token, err := h.Svc.Login(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", ErrInvalidCredentials.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to log in", nil)
		return
	}
	respond.OK(c, AuthResponse{User: ToResponse(user), AccessToken: token, TokenType: TokenType})
}

// Tokens are stateless; logout is acknowledged and the client drops the token.
func (h *Handler) logout(c *gin.Context) {
	respond.OK(c, gin.H{"message": "Successfully logged out"})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.Svc.GetByID(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "User not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
		return
	}
	respond.OK(c, ToResponse(user))
}
