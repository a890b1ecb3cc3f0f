package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gohx/gohx/internal/engine"
	"github.com/gohx/gohx/internal/harness"
	"github.com/gohx/gohx/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Record   bool
}

// RunReport is the JSON payload for one executed scenario.
type RunReport struct {
	Scenario  string `json:"scenario"`
	Events    int    `json:"events"`
	FinalPath string `json:"final_path,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml|dir> [...]",
		Short: "Execute engine scenarios",
		Long: `Execute one or more scenario files against a fresh engine and
scripted server, printing the resulting lifecycle trace. With --record
the trace is also written to the SQLite database for later inspection
with the trace and replay commands.

Exit codes:
  0 - all scenarios ran
  2 - command error (bad scenario, unreadable database)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "trace database path (defaults from config)")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "record lifecycle traces to the database")
	return cmd
}

func runScenarios(ctx context.Context, out io.Writer, opts *RunOptions, args []string) error {
	toolCfg, err := LoadToolConfig(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "config", err)
	}

	scenarios, err := collectScenarios(args)
	if err != nil {
		return WrapExitError(ExitCommandError, "load scenarios", err)
	}

	var store *trace.Store
	if opts.Record {
		db := opts.Database
		if db == "" {
			db = toolCfg.Database
		}
		if store, err = trace.Open(db); err != nil {
			return WrapExitError(ExitCommandError, "open trace database", err)
		}
		defer store.Close()
	}

	engCfg := engine.DefaultConfig()
	engCfg.Timeout = toolCfg.Timeout
	if toolCfg.HistoryCapacity > 0 {
		engCfg.HistoryCapacity = toolCfg.HistoryCapacity
	}

	f := &OutputFormatter{Format: opts.Format, Writer: out}
	var reports []RunReport
	for _, sc := range scenarios {
		var engOpts []engine.EngineOption
		var sessionID string
		if store != nil {
			rec, err := trace.NewRecorder(ctx, store, "")
			if err != nil {
				return WrapExitError(ExitCommandError, "begin trace session", err)
			}
			sessionID = rec.SessionID()
			engOpts = append(engOpts, engine.WithRecorder(rec))
		}

		res, err := harness.RunWithConfig(ctx, sc, engCfg, engOpts...)
		if err != nil {
			return WrapExitError(ExitCommandError, "run scenario", err)
		}

		report := RunReport{
			Scenario:  res.Scenario,
			Events:    len(res.Trace),
			FinalPath: res.FinalPath,
			SessionID: sessionID,
		}
		reports = append(reports, report)

		if !f.JSON() {
			fmt.Fprintf(out, "scenario %s: %d events, final url %s\n", res.Scenario, len(res.Trace), res.FinalPath)
			if opts.Verbose {
				for _, te := range res.Trace {
					fmt.Fprintf(out, "  %-16s %-6s %s", te.Type, te.Method, te.Path)
					if te.Status != 0 {
						fmt.Fprintf(out, " [%d]", te.Status)
					}
					if te.Error != "" {
						fmt.Fprintf(out, " error=%s", te.Error)
					}
					fmt.Fprintln(out)
				}
			}
		}
	}

	if f.JSON() {
		return f.Emit(reports, nil)
	}
	return nil
}

// collectScenarios expands file and directory arguments.
func collectScenarios(args []string) ([]*harness.Scenario, error) {
	var out []*harness.Scenario
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if info.IsDir() {
			scs, err := harness.LoadDir(arg)
			if err != nil {
				return nil, err
			}
			out = append(out, scs...)
			continue
		}
		sc, err := harness.LoadScenario(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no scenarios found in %v", args)
	}
	return out, nil
}
