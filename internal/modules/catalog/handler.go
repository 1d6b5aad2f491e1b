package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"roomclean/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/packages", h.List)
	rg.GET("/packages/:id", h.Get)
}

// List handles GET /packages.
func (h *Handler) List(c *gin.Context) {
	pkgs, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load packages")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"packages": pkgs})
}

// Get handles GET /packages/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid package ID")
		return
	}

	pkg, err := h.service.Get(c.Request.Context(), id)
	if errors.Is(err, ErrPackageNotFound) {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Package not found")
		return
	}
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load package")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"package": pkg})
}
