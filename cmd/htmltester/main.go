// Command htmltester verifies a single HTML/JS snippet file in a real
// browser and prints the verdict.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/cironolaenvision/test-html/internal/assets"
	"github.com/cironolaenvision/test-html/internal/browser"
	"github.com/cironolaenvision/test-html/internal/config"
	"github.com/cironolaenvision/test-html/internal/harness"
)

func main() {
	var (
		fileName    string
		waitSeconds int
		configPath  string
	)
	flag.StringVar(&fileName, "file", "html_snippet.html", "snippet file to test")
	flag.IntVar(&waitSeconds, "wait", 0, "max wait time in seconds (overrides config)")
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	fileName, waitSeconds, err := applyPositionalArgs(flag.Args(), fileName, waitSeconds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "htmltester: %v\n", err)
		os.Exit(1)
	}

	if err := run(fileName, waitSeconds, configPath); err != nil {
		fmt.Fprintf(os.Stderr, "htmltester: %v\n", err)
		os.Exit(1)
	}
}

// applyPositionalArgs accepts the snippet file as the first positional
// argument and the wait budget in seconds as the second, overriding the
// corresponding flags.
func applyPositionalArgs(args []string, fileName string, waitSeconds int) (string, int, error) {
	if len(args) > 0 {
		fileName = args[0]
	}
	if len(args) > 1 {
		secs, err := strconv.Atoi(args[1])
		if err != nil {
			return "", 0, fmt.Errorf("invalid wait seconds %q: %w", args[1], err)
		}
		waitSeconds = secs
	}
	return fileName, waitSeconds, nil
}

func run(fileName string, waitSeconds int, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := config.NewLogger(&cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	maxWait := cfg.Harness.MaxWaitTime
	if waitSeconds > 0 {
		maxWait = time.Duration(waitSeconds) * time.Second
	}
	logger.Info("testing snippet",
		zap.String("file", fileName), zap.Duration("maxWaitTime", maxWait))

	snippet, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("read snippet %s: %w", fileName, err)
	}

	ctx := context.Background()
	scripts, err := assets.LoadDefault(ctx, cfg.Harness.PublicDir, cfg.Harness.ChartLibraryURL)
	if err != nil {
		return fmt.Errorf("load supporting scripts: %w", err)
	}

	manager, err := browser.NewManager(&cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("start browser manager: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Browser.ShutdownTimeout)
		defer cancel()
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Warn("browser manager shutdown failed", zap.Error(err))
		}
	}()

	tester := harness.NewTester(harness.Options{
		BaseURL:           cfg.Harness.BaseURL,
		MaxWaitTime:       maxWait,
		LoadTimeout:       cfg.Harness.LoadTimeout,
		DataRows:          cfg.Harness.DataRows,
		DiagnosticsPath:   cfg.Harness.DiagnosticsPath,
		LocalSourceMarker: cfg.Harness.LocalSourceMarker,
	}, scripts, manager, logger)

	result, err := tester.Test(ctx, string(snippet))
	if err != nil {
		return err
	}

	fmt.Println(result.Success)
	fmt.Println("Errors:")
	for _, msg := range result.Errors {
		fmt.Println(msg)
	}
	if !result.Success {
		os.Exit(1)
	}
	return nil
}
