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

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nosqlite/internal/config"
	"github.com/kailas-cloud/nosqlite/internal/db/sqlite"
	logpkg "github.com/kailas-cloud/nosqlite/internal/logger"
	"github.com/kailas-cloud/nosqlite/internal/metrics"
	chiTransport "github.com/kailas-cloud/nosqlite/internal/transport/chi"
	"github.com/kailas-cloud/nosqlite/internal/usecase/execute"
	healthuc "github.com/kailas-cloud/nosqlite/internal/usecase/health"
	"github.com/kailas-cloud/nosqlite/internal/version"
)

type options struct {
	env         string
	configPath  string
	port        int
	showVersion bool
}

func parseFlags(args []string) (options, error) {
	opts := options{}
	fs := flag.NewFlagSet("nosqlited", flag.ContinueOnError)
	fs.StringVar(&opts.env, "env", config.GetEnv(), "environment name; selects config/<env>.yaml and the log format")
	fs.StringVarP(&opts.configPath, "config", "c", "", "explicit config file path (overrides --env lookup)")
	fs.IntVarP(&opts.port, "port", "p", 0, "override http.port")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func loadConfig(opts options) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load(opts.env)
	}
	if err != nil {
		return config.Config{}, err
	}
	if opts.port > 0 {
		cfg.HTTP.Port = opts.port
		if err := cfg.Validate(); err != nil {
			return config.Config{}, fmt.Errorf("invalid config: %w", err)
		}
	}
	return cfg, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Println("nosqlited", version.String())
		return
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(opts.env,
		logpkg.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format},
		zap.String("service", "nosqlited"),
	)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting nosqlited",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", opts.env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("data_dir", cfg.Storage.DataDir),
		zap.String("journal_mode", cfg.Storage.JournalMode),
		zap.Int("max_concurrency", cfg.Server.MaxConcurrency),
		zap.Bool("auth", len(cfg.Auth.APIKeys) > 0),
	)

	metrics.Register()

	router, err := sqlite.NewRouter(sqlite.Config{
		DataDir:     cfg.Storage.DataDir,
		BusyTimeout: cfg.Storage.BusyTimeout(),
		JournalMode: cfg.Storage.JournalMode,
	})
	if err != nil {
		logger.Fatal("Failed to create storage router", zap.Error(err))
	}
	defer func() {
		if err := router.Close(); err != nil {
			logger.Error("Error closing storage", zap.Error(err))
		}
	}()

	execSvc, err := execute.New(sqlite.NewStore(router), cfg.Server.MaxConcurrency, logger)
	if err != nil {
		logger.Fatal("Failed to create executor", zap.Error(err))
	}
	healthSvc := healthuc.New(healthuc.Storage(router), healthuc.Executor(execSvc))

	server := chiTransport.NewServer(execSvc, healthSvc, logger).
		WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdown := time.Duration(cfg.HTTP.ShutdownSec) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := execSvc.Close(shutdown); err != nil {
		logger.Warn("Executor did not drain in time", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
