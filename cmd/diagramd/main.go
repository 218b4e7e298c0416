// Package main is the entry point for the diagramd daemon.
//
// diagramd hosts the versioned document store behind the schema diagram
// editor: three entity stores (database, table, field) under one driver,
// fronted by a command mediator that fans change events out to every
// connected client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/shakahl/db-diagram/internal/catalog"
	"github.com/shakahl/db-diagram/internal/docdb"
	"github.com/shakahl/db-diagram/mediator"
	"github.com/shakahl/db-diagram/protocol"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "diagramd: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	dataDir := flag.String("data-dir", "", "Data directory (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error; overrides config)")
	configPath := flag.String("config", "diagramd.yaml", "Path to YAML config file")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	cfg, err := loadConfig(*configPath, set["config"])
	if err != nil {
		return err
	}
	if set["data-dir"] {
		cfg.DataDir = *dataDir
	}
	if set["log-level"] {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	ll := &slog.LevelVar{}
	switch cfg.LogLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		ll.Set(slog.LevelInfo)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	drv := docdb.New(cfg.DataDir, docdb.Options{
		Version:   cfg.StoreVersion,
		Namespace: cfg.Namespace,
		Logger:    logger,
	})
	dbs, err := catalog.NewDatabaseWorker(drv, logger)
	if err != nil {
		return err
	}
	tbs, err := catalog.NewTableWorker(drv, logger)
	if err != nil {
		return err
	}
	fds, err := catalog.NewFieldWorker(drv, logger)
	if err != nil {
		return err
	}
	if err := drv.Open(ctx); err != nil {
		return err
	}
	defer drv.Close()

	med := mediator.New(dbs, tbs, fds, logger)

	// The host keeps its own observer connection so every mutation is visible
	// in the process log even when no editor frame is attached.
	host := med.Connect(protocol.FrameNone, "")
	defer host.Close()
	for _, typ := range []protocol.EventType{
		protocol.EventCreateDatabase, protocol.EventAlterDatabase, protocol.EventDropDatabase,
		protocol.EventCreateTable, protocol.EventAlterTable, protocol.EventDropTable,
		protocol.EventCreateField, protocol.EventAlterField, protocol.EventDropField,
	} {
		host.On(typ, func(ev protocol.ChangeEvent) {
			logger.Debug("change", "type", ev.Type, "source", ev.Source)
		})
	}

	logger.Info("diagramd ready", "dataDir", cfg.DataDir, "storeVersion", cfg.StoreVersion)
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
