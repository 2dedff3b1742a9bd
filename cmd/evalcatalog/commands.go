package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-gavel-catalog/infrastructure/backends"
	"github.com/ahrav/go-gavel-catalog/infrastructure/middleware"
	"github.com/ahrav/go-gavel-catalog/internal/application"
	"github.com/ahrav/go-gavel-catalog/internal/domain"
)

func newListCmd(a *app) *cobra.Command {
	var (
		category   string
		guardrails bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered evaluators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			descriptors := a.registry.List()
			if category != "" {
				descriptors = a.registry.ListByCategory(domain.Category(category))
			}
			if guardrails {
				filtered := descriptors[:0]
				for _, d := range descriptors {
					if d.IsGuardrail {
						filtered = append(filtered, d)
					}
				}
				descriptors = filtered
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), application.NewCatalogConfig(descriptors).Evaluators)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tGUARDRAIL\tNAME")
			for _, d := range descriptors {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", d.ID, d.Category, d.IsGuardrail, d.Name)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list evaluators in this category")
	cmd.Flags().BoolVar(&guardrails, "guardrails", false, "only list guardrail evaluators")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an evaluator's descriptor and default settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.registry.Get(args[0])
			if err != nil {
				return err
			}

			doc := struct {
				Evaluator application.EvaluatorConfig `yaml:"evaluator"`
				Defaults  domain.Settings             `yaml:"defaults"`
			}{
				Evaluator: application.FromDescriptor(d),
				Defaults:  domain.Defaults(d.Settings),
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("failed to encode descriptor: %w", err)
			}
			return enc.Close()
		},
	}
}

func newResolveCmd(a *app) *cobra.Command {
	var settingsFile string

	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve partial settings against an evaluator's schema",
		Long: `Resolve reads a YAML or JSON settings object, merges it over the
evaluator's defaults and prints the complete settings as JSON. Without
--file the defaults are printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.resolveSettings(cmd, args[0], settingsFile)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), settings)
		},
	}

	cmd.Flags().StringVarP(&settingsFile, "file", "f", "", `settings document, or "-" for stdin`)
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the registered evaluators as a catalog file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := application.ParseFormat(format)
			if err != nil {
				return err
			}
			return application.Encode(cmd.OutOrStdout(), a.registry.List(), f)
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate catalog files",
		Long: `Validate decodes each catalog file strictly and checks every
descriptor. All problems across all files are reported together.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result *multierror.Error
			for _, path := range args {
				descriptors, err := a.loader.LoadFromFile(cmd.Context(), path)
				if err != nil {
					result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok  %s (%d evaluators)\n", path, len(descriptors))
			}
			return result.ErrorOrNil()
		},
	}
}

func newEvaluateCmd(a *app) *cobra.Command {
	var (
		settingsFile string
		entry        domain.Entry
		timeout      time.Duration
		retries      int
		rateLimit    float64
	)

	cmd := &cobra.Command{
		Use:   "evaluate <id>",
		Short: "Run an evaluator on one entry",
		Long: `Evaluate resolves the settings, then calls the evaluator's bundled
backend and prints the result as JSON. Vendor backends read their
credentials from OPENAI_API_KEY, GOOGLE_CLOUD_PROJECT and
GOOGLE_APPLICATION_CREDENTIALS.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			partial, err := readPartial(cmd, settingsFile)
			if err != nil {
				return err
			}

			dispatcher := application.NewDispatcher(a.registry, a.resolver,
				application.WithDispatcherLogger(a.logger),
				application.WithDefaultMiddleware(
					middleware.TracingMiddleware(),
					middleware.MetricsMiddleware(a.metrics),
					middleware.RetryMiddleware(retries, 250*time.Millisecond, 5*time.Second),
					middleware.CircuitBreakerMiddleware(5, 30*time.Second, a.metrics),
					middleware.RateLimitMiddleware(rate.Limit(rateLimit), max(1, int(rateLimit))),
					middleware.TimeoutMiddleware(timeout),
				))

			available, err := backends.Builtins(ctx, backends.ConfigFromEnv())
			if err != nil {
				return err
			}
			for id, backend := range available {
				if !a.registry.Has(id) {
					continue
				}
				if err := dispatcher.Register(id, backend); err != nil {
					return err
				}
			}
			a.logger.Debug("backends ready", slog.Any("evaluators", dispatcher.Backends()))

			result, err := dispatcher.Evaluate(ctx, args[0], partial, entry)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&settingsFile, "file", "f", "", `settings document, or "-" for stdin`)
	flags.StringVar(&entry.Input, "input", "", "entry input text")
	flags.StringVar(&entry.Output, "output", "", "entry output text")
	flags.StringArrayVar(&entry.Contexts, "context", nil, "retrieved context passage (repeatable)")
	flags.StringVar(&entry.ExpectedOutput, "expected-output", "", "reference answer")
	flags.DurationVar(&timeout, "timeout", 30*time.Second, "per-call backend timeout (0 disables)")
	flags.IntVar(&retries, "retries", 2, "retries for transient backend failures")
	flags.Float64Var(&rateLimit, "rate", 10, "maximum backend calls per second")
	return cmd
}

// resolveSettings resolves the document at path, or the defaults when path
// is empty.
func (a *app) resolveSettings(cmd *cobra.Command, id, path string) (*domain.ResolvedSettings, error) {
	if path == "" {
		return a.resolver.Defaults(cmd.Context(), id)
	}
	r, closeFn, err := openInput(cmd, path)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return a.resolver.ResolveDocument(cmd.Context(), id, r)
}

// readPartial decodes the settings object at path. An empty path or an
// empty document yields nil.
func readPartial(cmd *cobra.Command, path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	r, closeFn, err := openInput(cmd, path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var partial map[string]any
	if err := yaml.NewDecoder(r).Decode(&partial); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return partial, nil
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open settings: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
