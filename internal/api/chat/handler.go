package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/billchat/internal/api/middleware"
	"github.com/liliang-cn/billchat/internal/domain"
	"github.com/liliang-cn/billchat/internal/service"
	"github.com/liliang-cn/billchat/internal/stream"
	"go.uber.org/zap"
)

const msgBillMissing = "Bill ID is required"

// Handler handles chat API requests
type Handler struct {
	chatService *service.ChatService
	logger      *zap.Logger
}

// NewHandler creates a new chat handler
func NewHandler(chatService *service.ChatService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{chatService: chatService, logger: logger}
}

// RegisterRoutes registers chat routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Chat)
	r.POST("/stream", h.ChatStream)
	r.GET("/history", h.History)
	r.POST("/save", h.Save)
}

// Chat answers a message in a single JSON response
func (h *Handler) Chat(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": middleware.MsgRequired})
		return
	}

	resp, err := h.chatService.Chat(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ChatStream relays a chat answer as server-sent events. Validation errors
// are plain JSON; once the stream is open all errors are in-band.
func (h *Handler) ChatStream(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": middleware.MsgRequired})
		return
	}

	prepared, err := h.chatService.Prepare(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if err := h.chatService.Stream(c.Request.Context(), stream.NewHTTPWriter(c.Writer), prepared); err != nil {
		h.logger.Debug("stream ended early",
			zap.String("bill_id", prepared.Bill.ID),
			zap.Error(err),
		)
	}
}

// History lists a bill's chat exchanges
func (h *Handler) History(c *gin.Context) {
	billID := c.Query("billId")
	if billID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBillMissing})
		return
	}

	entries, err := h.chatService.History(c.Request.Context(), billID, c.Query("render") == "html")
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgBillMissing})
			return
		}
		h.logger.Error("failed to load chat history", zap.String("bill_id", billID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch chat history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chatHistory": entries})
}

// Save stores an exchange assembled by the client
func (h *Handler) Save(c *gin.Context) {
	var req domain.SaveChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": middleware.MsgRequired})
		return
	}

	exchange, err := h.chatService.Save(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messageId": exchange.ID})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	if status, _ := middleware.ErrorResponse(err); status >= http.StatusInternalServerError {
		h.logger.Error("chat request failed", zap.Error(err))
	}
	middleware.AbortWithError(c, err)
}
