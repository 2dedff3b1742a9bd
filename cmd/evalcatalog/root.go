package main

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-gavel-catalog/infrastructure/middleware"
	"github.com/ahrav/go-gavel-catalog/internal/application"
)

// app holds the state shared by every subcommand. It is populated by the
// root command's PersistentPreRunE.
type app struct {
	catalogs     []string
	logLevel     string
	logFormat    string
	printMetrics bool

	logger   *slog.Logger
	loader   *application.CatalogLoader
	registry *application.Registry
	resolver *application.Resolver

	promRegistry *prometheus.Registry
	metrics      *middleware.PrometheusMetrics
}

func newRootCmd() *cobra.Command {
	promRegistry := prometheus.NewRegistry()
	a := &app{
		promRegistry: promRegistry,
		metrics:      middleware.NewPrometheusMetrics(promRegistry),
	}

	root := &cobra.Command{
		Use:   "evalcatalog",
		Short: "Inspect evaluators and resolve their settings",
		Long: `evalcatalog lists the registered evaluators, shows their settings
schemas, resolves partial settings against those schemas and runs
evaluations through the bundled backends.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if !a.printMetrics {
				return nil
			}
			return a.writeMetrics(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringArrayVar(&a.catalogs, "catalog", nil, "additional catalog file registered after the built-ins (repeatable)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", "text", "log format: text or json")
	flags.BoolVar(&a.printMetrics, "print-metrics", false, "print collected metrics to stderr on exit")

	root.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newResolveCmd(a),
		newExportCmd(a),
		newValidateCmd(a),
		newEvaluateCmd(a),
	)
	return root
}

// setup builds the logger, loads the built-in catalog and registers any
// extra catalogs.
func (a *app) setup(cmd *cobra.Command) error {
	logger, err := newLogger(cmd.ErrOrStderr(), a.logLevel, a.logFormat)
	if err != nil {
		return err
	}
	a.logger = logger

	loader, err := application.NewCatalogLoader(logger)
	if err != nil {
		return fmt.Errorf("failed to create catalog loader: %w", err)
	}
	a.loader = loader

	registry, err := application.NewBuiltinRegistry(cmd.Context(), loader,
		application.WithLogger(logger),
		application.WithMetrics(a.metrics))
	if err != nil {
		return fmt.Errorf("failed to load built-in catalog: %w", err)
	}

	for _, path := range a.catalogs {
		descriptors, err := loader.LoadFromFile(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("catalog %s: %w", path, err)
		}
		if err := registry.RegisterAll(descriptors...); err != nil {
			return fmt.Errorf("catalog %s: %w", path, err)
		}
		logger.Info("catalog registered", slog.String("path", path), slog.Int("evaluators", len(descriptors)))
	}
	a.registry = registry

	a.resolver = application.NewResolver(registry,
		application.WithResolverLogger(logger),
		application.WithResolverMetrics(a.metrics))
	return nil
}

// writeMetrics prints one line per collected series: the metric name, its
// labels and its value (counters and gauges) or sample count (histograms).
func (a *app) writeMetrics(w io.Writer) error {
	families, err := a.promRegistry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			pairs := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				pairs = append(pairs, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(pairs)

			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				value = float64(m.GetHistogram().GetSampleCount())
			}
			fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(pairs, ","), value)
		}
	}
	return nil
}

// newLogger creates a slog logger writing to w.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q: must be text or json", format)
	}
}
