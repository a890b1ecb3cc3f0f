package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gohx/gohx/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string
}

// ReplaySessionResult is one session's verification outcome.
type ReplaySessionResult struct {
	SessionID  string            `json:"session_id"`
	Events     int               `json:"events"`
	Requests   int               `json:"requests"`
	Clean      bool              `json:"clean"`
	Violations []trace.Violation `json:"violations,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Verify recorded traces against the engine's ordering guarantees",
		Long: `Replay recorded sessions and check every invariant the engine
promises: strictly increasing logical clock stamps and protocol-ordered
lifecycle events per request.

Exit codes:
  0 - all sessions clean
  1 - violations found
  2 - command error`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "trace database path (defaults from config)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "verify a single session")
	return cmd
}

func runReplay(ctx context.Context, out io.Writer, opts *ReplayOptions) error {
	store, err := openTraceDB(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	ids, err := sessionIDs(ctx, store, opts.Session)
	if err != nil {
		return err
	}

	allClean := true
	var results []ReplaySessionResult
	for _, id := range ids {
		report, err := trace.Verify(ctx, store, id)
		if err != nil {
			return WrapExitError(ExitCommandError, "verify session", err)
		}
		if !report.Clean() {
			allClean = false
		}
		results = append(results, ReplaySessionResult{
			SessionID:  report.SessionID,
			Events:     report.Events,
			Requests:   report.Requests,
			Clean:      report.Clean(),
			Violations: report.Violations,
		})
	}

	f := &OutputFormatter{Format: opts.Format, Writer: out}
	if err := f.Emit(results, func(w io.Writer) {
		for _, r := range results {
			status := "clean"
			if !r.Clean {
				status = fmt.Sprintf("%d violations", len(r.Violations))
			}
			fmt.Fprintf(w, "session %s: %d events, %d requests, %s\n", r.SessionID, r.Events, r.Requests, status)
			for _, v := range r.Violations {
				fmt.Fprintf(w, "  seq %d request %s: %s\n", v.Seq, v.RequestID, v.Message)
			}
		}
	}); err != nil {
		return err
	}

	if !allClean {
		return NewExitError(ExitFailure, "trace verification failed")
	}
	return nil
}

// openTraceDB resolves the database path from flag or config and opens it.
func openTraceDB(rootOpts *RootOptions, flagPath string) (*trace.Store, error) {
	toolCfg, err := LoadToolConfig(rootOpts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "config", err)
	}
	path := flagPath
	if path == "" {
		path = toolCfg.Database
	}
	store, err := trace.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open trace database", err)
	}
	return store, nil
}

// sessionIDs returns the requested session or all of them.
func sessionIDs(ctx context.Context, store *trace.Store, session string) ([]string, error) {
	if session != "" {
		return []string{session}, nil
	}
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "list sessions", err)
	}
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	return ids, nil
}
