// tasktree rebuilds the main-thread task tree of a Chromium trace and prints
// it or exports it as OpenTelemetry spans.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mrzor/tasktree/internal/attributes"
	"github.com/mrzor/tasktree/internal/config"
	"github.com/mrzor/tasktree/internal/otel"
	"github.com/mrzor/tasktree/internal/output"
	"github.com/mrzor/tasktree/internal/taskgroups"
	"github.com/mrzor/tasktree/internal/tasktree"
	"github.com/mrzor/tasktree/internal/timesync"
	"github.com/mrzor/tasktree/internal/traceevent"
	"github.com/spf13/cobra"
)

// Version information injected at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults, err := config.ParseEnvDefaults()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	var (
		cfg        config.Config
		format     string
		attrSpecs  []string
		wallStart  string
		traceEnd   float64
		showConfig bool
	)

	cmd := &cobra.Command{
		Use:   "tasktree [trace.json]",
		Short: "Rebuild the main-thread task tree of a Chromium trace",
		Long: `tasktree reads a Chromium trace (JSON array or {"traceEvents": [...]}),
pairs begin/end events, nests tasks by time containment, and reports each
task's self time, group, and attributable script URLs.

Reads stdin when no file (or "-") is given.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.TracePath = args[0]
			}
			cfg.Format = config.Format(format)

			flagAttrs, err := config.ParseCustomAttributes(attrSpecs)
			if err != nil {
				return err
			}
			cfg.CustomAttributes = flagAttrs

			// Export settings from the environment only apply to span export
			if cfg.Format == config.FormatOTLP {
				envAttrs, err := config.ParseAttributeString(defaults.Attributes)
				if err != nil {
					return fmt.Errorf("TASKTREE_ATTRIBUTES: %w", err)
				}
				cfg.CustomAttributes = append(envAttrs, flagAttrs...)
			} else {
				if !cmd.Flags().Changed("trace-id") {
					cfg.TraceID = ""
				}
				if !cmd.Flags().Changed("parent-id") {
					cfg.ParentID = ""
				}
			}

			if cmd.Flags().Changed("trace-end") {
				cfg.TraceEnd = &traceEnd
			}
			if cfg.WallStart, err = config.ParseWallStart(wallStart); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if showConfig {
				logConfig(&cfg)
			}
			return run(&cfg, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&cfg.PID, "pid", 0, "Process ID of the thread to analyze (default: renderer main thread)")
	flags.IntVar(&cfg.TID, "tid", 0, "Thread ID of the thread to analyze")
	flags.StringVar(&cfg.GroupsPath, "groups", "", "YAML file replacing the built-in task group table")
	flags.StringVar(&format, "format", defaults.Format, "Output format: text, json or otlp")
	flags.Float64Var(&traceEnd, "trace-end", 0, "Trace timestamp (µs) closing unterminated tasks (default: last event)")
	flags.Float64Var(&cfg.MinDuration, "min-duration", 0, "Hide tasks shorter than this many ms in text output")
	flags.StringVar(&wallStart, "wall-start", "", "RFC 3339 wall-clock time of the first task (default: derived from boot time)")
	flags.StringVarP(&cfg.TraceID, "trace-id", "t", defaults.TraceID, "Trace ID or expression for exported spans")
	flags.StringVarP(&cfg.ParentID, "parent-id", "p", defaults.ParentID, "Parent span ID or expression for exported root spans")
	flags.StringArrayVarP(&attrSpecs, "attribute", "a", nil, "Custom span attribute NAME=EXPR (repeatable)")
	flags.BoolVar(&showConfig, "verbose", false, "Log the effective configuration")

	return cmd
}

func logConfig(cfg *config.Config) {
	log.Printf("Starting tasktree %s (commit: %s, built: %s)", version, commit, date)
	log.Printf("Configuration:")
	log.Printf("  Trace: %s", displayPath(cfg.TracePath))
	if cfg.HasThread() {
		log.Printf("  Thread: pid=%d tid=%d", cfg.PID, cfg.TID)
	}
	if cfg.GroupsPath != "" {
		log.Printf("  Groups: %s", cfg.GroupsPath)
	}
	log.Printf("  Format: %s", cfg.Format)
	for _, attr := range cfg.CustomAttributes {
		log.Printf("  Attribute: %s = %s", attr.Name, attr.Expression)
	}
}

func displayPath(path string) string {
	if path == "" || path == "-" {
		return "<stdin>"
	}
	return path
}

func run(cfg *config.Config, stdout io.Writer) error {
	trace, err := loadTrace(cfg.TracePath)
	if err != nil {
		return err
	}

	pid, tid, events, err := selectThread(cfg, trace)
	if err != nil {
		return err
	}

	groups, err := loadGroups(cfg.GroupsPath)
	if err != nil {
		return err
	}

	traceEnd := trace.End()
	if cfg.TraceEnd != nil {
		traceEnd = *cfg.TraceEnd
	}

	tree, err := tasktree.NewBuilder(groups).Build(events, traceEnd)
	if err != nil {
		return fmt.Errorf("failed to build task tree for pid=%d tid=%d: %w", pid, tid, err)
	}
	if unterminated := tree.Unterminated(); len(unterminated) > 0 {
		log.Printf("Warning: %d tasks did not end before the trace ended (first: %q)",
			len(unterminated), unterminated[0].Name())
	}

	switch cfg.Format {
	case config.FormatJSON:
		return output.NewJSONFormatter(stdout).Format(tree)
	case config.FormatOTLP:
		info := &attributes.TraceInfo{
			Path:    cfg.TracePath,
			PID:     pid,
			TID:     tid,
			Environ: environ(),
		}
		return exportTree(cfg, info, tree)
	default:
		return output.NewTextFormatter(stdout, cfg.MinDuration).Format(tree)
	}
}

func loadTrace(path string) (*traceevent.Trace, error) {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace: %w", err)
		}
		defer func() {
			_ = f.Close() //nolint:errcheck // Read-only file, defer cleanup
		}()
		r = f
	}

	trace, err := traceevent.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace %s: %w", displayPath(path), err)
	}
	return trace, nil
}

func selectThread(cfg *config.Config, trace *traceevent.Trace) (int, int, []traceevent.Event, error) {
	if cfg.HasThread() {
		events := trace.Thread(cfg.PID, cfg.TID)
		if len(events) == 0 {
			return 0, 0, nil, fmt.Errorf("no events for pid=%d tid=%d", cfg.PID, cfg.TID)
		}
		return cfg.PID, cfg.TID, events, nil
	}

	pid, tid, events, err := trace.MainThread()
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%w (select a thread with --pid and --tid)", err)
	}
	return pid, tid, events, nil
}

// loadGroups returns nil for the built-in table.
func loadGroups(path string) (tasktree.GroupLookup, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open group table: %w", err)
	}
	defer func() {
		_ = f.Close() //nolint:errcheck // Read-only file, defer cleanup
	}()

	table, err := taskgroups.LoadTable(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load group table %s: %w", path, err)
	}
	return table, nil
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			env[key] = value
		}
	}
	return env
}

// exportTree sends one span per task to the configured OTLP endpoint.
func exportTree(cfg *config.Config, info *attributes.TraceInfo, tree *tasktree.Tree) error {
	traceIDs, err := attributes.NewTraceIDEvaluator(cfg.TraceIDExpression())
	if err != nil {
		return err
	}
	parentIDs, err := attributes.NewParentIDEvaluator(cfg.ParentIDExpression())
	if err != nil {
		return err
	}
	evaluator, err := attributes.NewEvaluator(cfg.CustomAttributes)
	if err != nil {
		return err
	}

	root, err := output.ResolveRootContext(traceIDs, parentIDs, info)
	if err != nil {
		return err
	}

	converter, err := newConverter(cfg, tree)
	if err != nil {
		return err
	}

	otelCfg, err := config.ParseOTELConfig()
	if err != nil {
		return fmt.Errorf("failed to parse OTEL config: %w", err)
	}

	tp, err := otel.InitProvider(otelCfg, root.TraceID)
	if err != nil {
		return fmt.Errorf("ABORT: failed to initialize OTEL provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otel.ShutdownProvider(tp, shutdownCtx); err != nil {
			log.Printf("Error shutting down OTEL provider: %v", err)
		}
	}()

	formatter := output.NewOTELFormatter(tp.Tracer("tasktree"), converter, evaluator, root)
	if err := formatter.Format(tree); err != nil {
		return err
	}

	log.Printf("Exported %d spans (trace clock origin %s)",
		len(tree.Tasks), converter.TraceToWallClock(tree.Origin).Format(time.RFC3339Nano))
	return nil
}

func newConverter(cfg *config.Config, tree *tasktree.Tree) (*timesync.Converter, error) {
	if !cfg.WallStart.IsZero() {
		return timesync.NewAnchoredConverter(cfg.WallStart, tree.Origin), nil
	}

	converter, err := timesync.NewConverter()
	if err != nil {
		return nil, fmt.Errorf("failed to create time converter: %w", err)
	}
	return converter, nil
}
