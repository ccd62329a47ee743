package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/vango-dev/vstore/internal/config"
	serrors "github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/storage"
	"github.com/vango-dev/vstore/pkg/store"
	"github.com/vango-dev/vstore/pkg/value"
)

// app is an opened store together with what it was built from.
type app struct {
	cfg      *config.Config
	store    *store.Store
	backend  storage.Backend
	logger   *slog.Logger
	registry *prometheus.Registry
}

// loadConfig reads the definition file named by --config, or the nearest
// one above the working directory.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}

	if flags.driver != "" {
		cfg.Storage.Driver = strings.ToLower(flags.driver)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Log.Format == "json" {
		h = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	} else {
		h = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	}
	logger := slog.New(h)
	if cfg.Name != "" {
		logger = logger.With("store", cfg.Name)
	}
	return logger
}

// openApp loads the configuration, opens the backend and builds the store.
func openApp(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	return openAppWithConfig(cmd.Context(), cmd, cfg)
}

func openAppWithConfig(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cmd, cfg)

	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, serrors.FromError(err, "S011")
	}

	codec, err := storage.CodecByName(cfg.Storage.Codec)
	if err != nil {
		_ = storage.Close(backend)
		return nil, serrors.New("S030").Wrap(err)
	}

	a := &app{
		cfg:      cfg,
		backend:  backend,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	var s *store.Store
	defs, err := cfg.Definitions(func(name string) value.Value {
		v, _ := s.State().Value(name)
		return v
	}, logger)
	if err != nil {
		_ = storage.Close(backend)
		return nil, err
	}

	metricLabels := prometheus.Labels{"store": cfg.Name}
	if cfg.Name == "" {
		metricLabels = nil
	}

	opts := append(cfg.StoreOptions(),
		store.WithBackend(backend),
		store.WithCodec(codec),
		store.WithLogger(logger),
		store.WithContext(ctx),
		store.WithMetrics(store.NewMetrics(a.registry, store.WithConstLabels(metricLabels))),
	)
	s, err = store.New(defs, opts...)
	if err != nil {
		_ = storage.Close(backend)
		return nil, err
	}
	a.store = s
	return a, nil
}

// Close releases the backend.
func (a *app) Close() error {
	return storage.Close(a.backend)
}

// withApp opens the store, runs fn and closes the backend.
func withApp(flags *globalFlags, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, flags)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(); cerr != nil {
				a.logger.Warn("closing backend failed", "error", cerr)
			}
		}()
		return fn(cmd, a, args)
	}
}
