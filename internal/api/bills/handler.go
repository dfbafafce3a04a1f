package bills

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/billchat/internal/domain"
	"github.com/liliang-cn/billchat/internal/service"
)

// Handler handles bill API requests
type Handler struct {
	billService *service.BillService
}

// NewHandler creates a new bills handler
func NewHandler(billService *service.BillService) *Handler {
	return &Handler{billService: billService}
}

// RegisterRoutes registers bill routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.List)
	r.GET("/:id", h.Get)
}

// List returns one page of bills
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultPageSize)))

	resp, err := h.billService.List(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bills"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns a single bill
func (h *Handler) Get(c *gin.Context) {
	bill, err := h.billService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bill not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bill"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bill": bill})
}
