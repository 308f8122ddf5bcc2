// Command importer loads a legacy JSON user export into the user store.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bissquit/user-registry/internal/app"
	"github.com/bissquit/user-registry/internal/config"
	"github.com/bissquit/user-registry/internal/importer"
)

func main() {
	filePath := flag.String("file", "user.json", "path to the JSON export")
	flag.Parse()

	if err := run(*filePath); err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func run(filePath string) error {
	cfgPath := os.Getenv("USERS_CONFIG_FILE")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger := app.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	client, repo, err := app.ConnectStore(connectCtx, cfg.Database)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("disconnect database", "error", err)
		}
	}()

	imp := importer.New(repo, importer.Config{RateLimit: cfg.Import.RateLimit}, logger)
	summary, err := imp.Run(ctx, f)
	if err != nil {
		logger.Error("import stopped", "run_id", summary.RunID, "imported", summary.Imported)
		return err
	}

	logger.Info("import finished", "file", filePath, "run_id", summary.RunID, "imported", summary.Imported)
	return nil
}
