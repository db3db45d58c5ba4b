package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/digitorus/pdfstamp/audit"
	"github.com/digitorus/pdfstamp/config"
	"github.com/digitorus/pdfstamp/integrity"
	"github.com/digitorus/pdfstamp/internal/logging"
	"github.com/digitorus/pdfstamp/server"
	"github.com/digitorus/pdfstamp/signing"
	"github.com/digitorus/pdfstamp/storage"
)

func newServeCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP signing service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Serve(ctx, cfg)
		},
	}
}

func loadConfig(flags *GlobalFlags) (config.Config, error) {
	path := flags.ConfigFile
	if path == "" {
		path = config.DefaultLocation
	}
	cfg, err := config.Read(path)
	if err != nil {
		return config.Config{}, err
	}
	if flags.LogLevel != "" {
		cfg.Log.Level = flags.LogLevel
	}
	return cfg, nil
}

// Serve wires the service from cfg and serves until ctx is done.
func Serve(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	template, err := os.ReadFile(cfg.Template.Path)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	algorithm, err := integrity.ParseAlgorithm(cfg.Integrity.Algorithm)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg.Audit, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	files, err := storage.NewLocal(cfg.Storage.SignedDocsDir, cfg.Server.BaseURL, "/signed_docs/")
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := signing.New(template, files, store,
		signing.WithRecorder(integrity.NewRecorder(integrity.WithAlgorithm(algorithm))),
		signing.WithPolicy(cfg.Placement.Policy()),
		signing.WithDocumentID(cfg.Template.DocumentID),
		signing.WithLogger(logger),
		signing.WithMetrics(signing.NewMetrics(reg)),
	)
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		Service:      svc,
		Files:        files,
		Logger:       logger,
		Gatherer:     reg,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		CORSOrigin:   cfg.Server.CORSOrigin,
	})
	logger.Info("Base URL configured", zap.String("base_url", cfg.Server.BaseURL))
	return srv.ListenAndServe(ctx, ":"+strconv.Itoa(cfg.Server.Port))
}

func openStore(ctx context.Context, cfg config.Audit, logger *zap.Logger) (audit.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("No database configured, audit records are kept in memory")
		return audit.NewMemoryStore(), nil
	}
	pool, err := audit.Connect(ctx, cfg.DatabaseURL, cfg.MaxConns)
	if err != nil {
		return nil, err
	}
	store := audit.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}
	logger.Info("Audit store connected")
	return store, nil
}
