package api

import (
	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/billchat/internal/api/bills"
	"github.com/liliang-cn/billchat/internal/api/chat"
	"github.com/liliang-cn/billchat/internal/api/middleware"
	"github.com/liliang-cn/billchat/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	AllowOrigins []string
	PDFDir       string
	Logger       *zap.Logger
	Gatherer     prometheus.Gatherer

	// RateLimiter throttles chat routes; nil disables limiting.
	RateLimiter *middleware.RateLimiter
}

// SetupRouter sets up the Gin router
func SetupRouter(
	billService *service.BillService,
	chatService *service.ChatService,
	cfg RouterConfig,
) *gin.Engine {
	RegisterValidators()

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))

	// CORS middleware
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	if cfg.PDFDir != "" {
		SetupStaticRoutes(r, cfg.PDFDir)
	}

	billHandler := bills.NewHandler(billService)
	billHandler.RegisterRoutes(r.Group("/api/bills"))

	chatHandler := chat.NewHandler(chatService, logger)
	chatGroup := r.Group("/api/chat")
	if cfg.RateLimiter != nil {
		chatGroup.Use(middleware.RateLimit(cfg.RateLimiter))
	}
	chatHandler.RegisterRoutes(chatGroup)

	return r
}
