package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/config"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/diag"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/logging"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/metrics"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/runner"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configFile    string
	verbose       bool
	output        string
	metricsListen string
}

// app is everything one CLI invocation needs, built from the merged config.
type app struct {
	cfg           *config.Config
	logger        *zap.Logger
	metrics       *metrics.Metrics
	toolkit       *diag.Toolkit
	printer       *printer
	metricsServer *http.Server
}

func newApp(opts *rootOptions, flags *pflag.FlagSet, stdout, stderr io.Writer) (*app, error) {
	if err := validOutput(opts.output); err != nil {
		return nil, err
	}

	v := viper.New()
	if f := flags.Lookup("metrics-listen"); f != nil {
		if err := v.BindPFlag("metrics.listen_addr", f); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(v, opts.configFile)
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.NewWithWriter(cfg.Logging, stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	r, err := runner.NewRunner(
		runner.WithGracePeriod(cfg.Runner.GracePeriod),
		runner.WithEncoding(cfg.Runner.Encoding),
		runner.WithCgroups(cfg.Runner.Cgroups),
		runner.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		printer: newPrinter(stdout, opts.output),
	}
	a.toolkit = diag.New(r, cfg.Tools,
		func(lib.Tool) lib.RecordSink { return a.printer },
		diag.WithLogger(logger),
		diag.WithMetrics(a.metrics),
		diag.WithTeardownTimeout(cfg.Runner.TeardownTimeout),
	)

	if cfg.Metrics.ListenAddr != "" {
		if err := a.serveMetrics(cfg.Metrics.ListenAddr); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *app) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return nil
}

// run starts an invocation with start and streams it until it ends, then
// closes the app. Cancelling ctx (Ctrl+C) cancels the invocation.
func (a *app) run(ctx context.Context, tool lib.Tool, start func() error) error {
	defer a.Close()
	if err := start(); err != nil {
		return err
	}
	s := a.toolkit.Session(tool)

	completion, err := s.Wait(ctx)
	if err != nil {
		if ctx.Err() == nil {
			return err
		}
		a.logger.Debug("interrupted, cancelling", zap.Stringer("tool", tool))
		if err := s.Cancel(); err != nil {
			return err
		}
		if completion, err = s.Wait(context.Background()); err != nil {
			return err
		}
	}

	if err := a.printer.Err(); err != nil {
		return err
	}
	if completion.Status == lib.StateFailed {
		return fmt.Errorf("%s failed: %s", tool, completion.Detail)
	}
	return nil
}

func (a *app) Close() {
	if err := a.toolkit.Shutdown(); err != nil {
		a.logger.Warn("shutdown", zap.Error(err))
	}
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.metricsServer.Shutdown(ctx)
	}
	_ = a.logger.Sync()
}
