package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Harshith0710/ToDoApp/internal/config"
	"github.com/Harshith0710/ToDoApp/internal/ingest"
	"github.com/Harshith0710/ToDoApp/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and watch the import directory",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	config.RegisterServeFlags(cmd.Flags())
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, database, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()

	engine := ingest.NewEngine(database, logger)
	watcher, err := ingest.WatchImports(ctx, engine, cfg.ImportDir, logger)
	if err != nil {
		logger.Warn("import watcher unavailable", zap.Error(err))
	} else {
		defer watcher.Stop()
	}

	port := server.FindAvailablePort(cfg.Host, cfg.Port)
	if port != cfg.Port {
		fmt.Fprintf(cmd.OutOrStdout(),
			"Port %d in use, using %d\n", cfg.Port, port)
	}
	cfg.Port = port

	srv := server.New(cfg, database,
		server.WithLogger(logger),
		server.WithImporter(engine),
		server.WithVersion(server.VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		}),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "todo %s listening at http://%s\n",
		version, cfg.Addr())

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")
	shutCtx, shutCancel := context.WithTimeout(
		context.Background(), shutdownTimeout,
	)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
