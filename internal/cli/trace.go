package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/gohx/gohx/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Request  string
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded lifecycle traces",
		Long: `List recorded sessions, or dump one session's lifecycle events in
logical clock order. With --request the dump is narrowed to a single
request's events.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "trace database path (defaults from config)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "dump this session's events")
	cmd.Flags().StringVar(&opts.Request, "request", "", "narrow the dump to one request")
	return cmd
}

func runTrace(ctx context.Context, out io.Writer, opts *TraceOptions) error {
	store, err := openTraceDB(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	f := &OutputFormatter{Format: opts.Format, Writer: out}

	if opts.Session == "" {
		sessions, err := store.Sessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "list sessions", err)
		}
		return f.Emit(sessions, func(w io.Writer) {
			for _, s := range sessions {
				fmt.Fprintf(w, "%s  %s  %s\n", s.ID, s.StartedAt.Format(time.RFC3339), s.BaseURL)
			}
		})
	}

	var records []trace.Record
	if opts.Request != "" {
		records, err = store.ReadRequest(ctx, opts.Session, opts.Request)
	} else {
		records, err = store.ReadSession(ctx, opts.Session)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "read trace", err)
	}

	return f.Emit(records, func(w io.Writer) {
		for _, r := range records {
			fmt.Fprintf(w, "%6d  %-16s", r.Seq, r.Type)
			if r.Method != "" {
				fmt.Fprintf(w, "  %s %s", r.Method, r.URL)
			} else if r.URL != "" {
				fmt.Fprintf(w, "  %s", r.URL)
			}
			if r.Status != 0 {
				fmt.Fprintf(w, "  [%d]", r.Status)
			}
			if r.Error != "" {
				fmt.Fprintf(w, "  error=%s", r.Error)
			}
			fmt.Fprintln(w)
		}
	})
}
