package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gohx/gohx/internal/demo"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo contact application",
		Long: `Serve the demo hypermedia contact application. Handlers branch on
the HX-Request header, returning fragments to engine-driven requests
and full pages to plain navigation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (defaults from config)")
	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	toolCfg, err := LoadToolConfig(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "config", err)
	}
	addr := opts.Addr
	if addr == "" {
		addr = toolCfg.Addr
	}

	srv := &http.Server{Addr: addr, Handler: demo.NewServer()}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("demo server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitCommandError, "serve", err)
	}
}
