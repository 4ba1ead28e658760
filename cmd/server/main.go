package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tuannm99/novaplan/internal"
	"github.com/tuannm99/novaplan/internal/api"
	"github.com/tuannm99/novaplan/internal/engine"
	"github.com/tuannm99/novaplan/server/novaplanwire"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfgPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "novaplan: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := internal.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(log)

	cat, closeCatalog, err := cfg.OpenCatalog()
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer func() {
		if err := closeCatalog(); err != nil {
			log.Error("close catalog", "err", err)
		}
	}()

	eng, err := engine.New(engine.Options{
		Database:       cfg.Database,
		GrammarPath:    cfg.Grammar.Path,
		Rules:          cfg.Rules(),
		ParseCacheSize: cfg.Engine.ParseCacheSize,
		Logger:         log,
	}, cat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("novaplan starting",
		"app", cfg.AppName,
		"database", cfg.Database,
		"catalog", cfg.Catalog.Driver,
		"tcp", cfg.Server.TCPAddr,
		"http", cfg.Server.HTTPAddr,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return novaplanwire.NewServer(eng, log).ListenAndServe(ctx, cfg.Server.TCPAddr)
	})

	httpSrv := api.NewServer(eng, log).HTTPServer(cfg.Server.HTTPAddr)
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("novaplan stopped")
	return nil
}
