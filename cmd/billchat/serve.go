package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/billchat/internal/api"
	"github.com/liliang-cn/billchat/internal/api/middleware"
	"github.com/liliang-cn/billchat/internal/genai"
	"github.com/liliang-cn/billchat/internal/integrations/paramstore"
	"github.com/liliang-cn/billchat/internal/observability"
	"github.com/liliang-cn/billchat/internal/service"
	"github.com/liliang-cn/billchat/internal/stream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, logger := a.cfg, a.logger
	ctx := cmdContext(cmd)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewStreamMetrics(reg)

	if cfg.GenAI.Key == "" && cfg.GenAI.KeyParameter != "" {
		key, err := resolveKey(ctx, cfg.GenAI.KeyParameter)
		if err != nil {
			logger.Warn("Failed to resolve agent key from parameter store, using mock", zap.Error(err))
		} else {
			cfg.GenAI.Key = key
		}
	}

	// The selector takes an interface; a nil *genai.Client must not reach it.
	var upstream stream.Producer
	if cfg.HasUpstream() {
		client, err := genai.NewClient(cfg.GenAI.Endpoint, cfg.GenAI.Key,
			genai.WithTimeout(cfg.GenAI.Timeout),
			genai.WithLogger(logger),
			genai.WithMetrics(metrics),
		)
		if err != nil {
			return err
		}
		upstream = client
	} else {
		logger.Info("No agent endpoint configured, using mock responses")
	}

	selector := genai.NewSelector(upstream, genai.NewMockGenerator(cfg.Mock.TokenDelay), cfg.IsProduction(), cfg.Mock.TestDirective)
	chatService := service.NewChatService(a.bills, a.chats, selector, stream.NewRelay(logger, metrics), logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	}

	router := api.SetupRouter(service.NewBillService(a.bills), chatService, api.RouterConfig{
		AllowOrigins: cfg.Server.AllowOrigins,
		PDFDir:       cfg.Storage.PDFs,
		Logger:       logger,
		Gatherer:     reg,
		RateLimiter:  limiter,
	})

	// No WriteTimeout: chat streams stay open for as long as the answer takes.
	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting billchat server",
			zap.String("address", cfg.Address()),
			zap.String("base_url", cfg.Server.BaseURL),
			zap.String("env", cfg.App.Env),
			zap.Bool("upstream", upstream != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-quit:
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exited")
	return nil
}

func resolveKey(ctx context.Context, parameter string) (string, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", err
	}
	store, err := paramstore.New(ssm.NewFromConfig(awsCfg))
	if err != nil {
		return "", err
	}
	return paramstore.ResolveKey(ctx, store, "", parameter)
}
