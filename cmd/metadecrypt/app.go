package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kenneth/metadata-decryptor/internal/audit"
	"github.com/kenneth/metadata-decryptor/internal/config"
	"github.com/kenneth/metadata-decryptor/internal/crypto"
	"github.com/kenneth/metadata-decryptor/internal/metrics"
	"github.com/kenneth/metadata-decryptor/internal/storage"
	"github.com/kenneth/metadata-decryptor/internal/tracing"
)

const defaultConfigPath = "metadecrypt.yaml"

// app bundles everything a command needs for one run.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	out    io.Writer

	transformName string
	transform     crypto.BlockTransform
	objects       storage.ObjectClient
	store         *storage.Store

	metrics     *metrics.Metrics // nil when disabled
	audit       audit.Logger     // nil when disabled
	auditCloser io.Closer
	shutdown    tracing.ShutdownFunc
}

func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return defaultConfigPath
}

// loadConfig reads the configuration file and applies the flags the user
// set explicitly on the command line.
func loadConfig(cmd *cobra.Command, opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath(opts.configPath))
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Decrypt.Workers = opts.workers
	}
	if flags.Changed("transform") {
		cfg.Decrypt.Transform = opts.transform
	}
	if flags.Changed("xor-value") {
		cfg.Decrypt.XORValue = opts.xorValue
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	cfg.Decrypt.Transform = strings.ToLower(strings.TrimSpace(cfg.Decrypt.Transform))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// newApp loads configuration and wires storage, metrics, audit and tracing.
// An S3 client is only created when one of locations is an s3:// URL.
func newApp(ctx context.Context, cmd *cobra.Command, opts *globalOptions, locations ...string) (*app, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	logger := newLogger(cfg, out)

	transform, err := crypto.NewTransform(cfg.Decrypt.Transform, crypto.TransformOptions{
		XORValue: byte(cfg.Decrypt.XORValue),
	})
	if err != nil {
		return nil, err
	}

	var objects storage.ObjectClient
	for _, raw := range locations {
		if raw == "" {
			continue
		}
		loc, err := storage.ParseLocation(raw)
		if err != nil {
			return nil, err
		}
		if loc.IsRemote() {
			objects, err = storage.NewS3Client(ctx, &cfg.Storage)
			if err != nil {
				return nil, err
			}
			break
		}
	}

	a := &app{
		cfg:           cfg,
		logger:        logger,
		out:           out,
		transformName: cfg.Decrypt.Transform,
		transform:     transform,
		objects:       objects,
		store: storage.NewStore(storage.Options{
			Objects:             objects,
			Decompress:          cfg.Storage.DecompressInput,
			MaxDecompressedSize: cfg.Storage.MaxDecompressedSize,
			Logger:              logger,
		}),
		shutdown: func(context.Context) error { return nil },
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewMetrics()
	}

	if cfg.Audit.Enabled {
		var writer audit.EventWriter
		if cfg.Audit.File != "" {
			writer, a.auditCloser, err = audit.OpenFileWriter(cfg.Audit.File)
			if err != nil {
				return nil, err
			}
		}
		a.audit = audit.NewLogger(cfg.Audit.MaxEvents, writer)
		logger.WithField("max_events", cfg.Audit.MaxEvents).Debug("Audit logging enabled")
	}

	shutdown, err := tracing.Setup(ctx, cfg.Tracing, nil)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.shutdown = shutdown

	logger.WithFields(logrus.Fields{
		"version":   version,
		"transform": a.transformName,
		"workers":   cfg.Decrypt.Workers,
	}).Debug("Configuration loaded")

	return a, nil
}

// close flushes spans, writes the metrics textfile and closes the audit file.
// Failures are logged; they never change the outcome of the run.
func (a *app) close(ctx context.Context) {
	if err := a.shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("Failed to shut down tracing")
	}

	if a.metrics != nil && a.cfg.Metrics.Textfile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			a.logger.WithError(err).Warn("Failed to write metrics textfile")
		}
	}

	if a.auditCloser != nil {
		if err := a.auditCloser.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close audit file")
		}
	}
}

// recordDecrypt feeds metrics and the audit log with the outcome of a
// decryption run. result may be nil when the input could not be loaded.
func (a *app) recordDecrypt(run audit.Run, result *crypto.Result) {
	run.ErrorClass = ErrorClass(run.Err)
	if result != nil {
		for _, w := range result.Warnings {
			run.Warnings = append(run.Warnings, w.String())
		}
		run.Metadata = map[string]interface{}{
			"state":       string(result.State),
			"header_size": result.HeaderSize,
			"chunks":      result.Chunks,
		}
	}

	if a.metrics != nil {
		if run.Err != nil {
			a.metrics.RecordFailure(a.transformName, run.ErrorClass, run.Duration)
		} else {
			a.metrics.RecordSuccess(a.transformName, run.Duration, run.InputSize,
				result.EncryptedSize, run.OutputSize, result.Chunks)
			a.metrics.RecordOutputMagic(result.OutputCheck.Match)
		}
		if result != nil && len(result.Warnings) > 0 {
			a.metrics.RecordSignatureMismatch()
		}
	}

	if a.audit != nil {
		if err := a.audit.LogDecrypt(run); err != nil {
			a.logger.WithError(err).Warn("Failed to write audit event")
		}
	}
}
