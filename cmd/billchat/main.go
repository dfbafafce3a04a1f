package main

import (
	"context"
	"fmt"
	"os"

	"github.com/liliang-cn/billchat/internal/config"
	"github.com/liliang-cn/billchat/internal/repository"
	"github.com/liliang-cn/billchat/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "billchat",
		Short:         "Browse government bills and chat about them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.AddCommand(serveCmd, seedCmd, billsCmd, resetCmd, askCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds the loaded configuration and opened stores shared by commands
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *repository.DB
	bills  *repository.BillRepository
	chats  service.ChatArchive
	close  []func() error
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	a := &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		bills:  repository.NewBillRepository(db),
		close:  []func() error{db.Close},
	}

	switch cfg.History.Backend {
	case "", "sqlite":
		a.chats = repository.NewChatRepository(db)
	case "bolt":
		bolt, err := repository.NewBoltChatRepository(cfg.History.BoltPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open chat history: %w", err)
		}
		a.chats = bolt
		a.close = append(a.close, bolt.Close)
	default:
		a.Close()
		return nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
	return a, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// Close releases stores in reverse order of opening
func (a *app) Close() {
	for i := len(a.close) - 1; i >= 0; i-- {
		if err := a.close[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func (a *app) adminService() *service.AdminService {
	return service.NewAdminService(a.bills, a.chats)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
