// Command htmlserver exposes the snippet verification harness over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cironolaenvision/test-html/internal/assets"
	"github.com/cironolaenvision/test-html/internal/browser"
	"github.com/cironolaenvision/test-html/internal/config"
	"github.com/cironolaenvision/test-html/internal/harness"
	"github.com/cironolaenvision/test-html/internal/server"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "htmlserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := config.NewLogger(&cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scripts, err := assets.LoadDefault(ctx, cfg.Harness.PublicDir, cfg.Harness.ChartLibraryURL)
	if err != nil {
		return fmt.Errorf("load supporting scripts: %w", err)
	}

	manager, err := browser.NewManager(&cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("start browser manager: %w", err)
	}

	tester := harness.NewTester(harness.Options{
		BaseURL:           cfg.Harness.BaseURL,
		MaxWaitTime:       cfg.Harness.MaxWaitTime,
		LoadTimeout:       cfg.Harness.LoadTimeout,
		DataRows:          cfg.Harness.DataRows,
		DiagnosticsPath:   cfg.Harness.DiagnosticsPath,
		LocalSourceMarker: cfg.Harness.LocalSourceMarker,
	}, scripts, manager, logger)

	srv := server.NewServer(cfg, tester, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", zap.Error(err))
	}

	browserCtx, cancelBrowser := context.WithTimeout(context.Background(), cfg.Browser.ShutdownTimeout)
	defer cancelBrowser()
	return manager.Shutdown(browserCtx)
}
