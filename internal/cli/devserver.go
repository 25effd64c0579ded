package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/fakeapi"
)

// DevServerOptions holds flags for the dev-server command.
type DevServerOptions struct {
	*RootOptions
	Addr   string
	Prefix string
	Habits []int64
}

// NewDevServerCommand creates the dev-server command.
func NewDevServerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DevServerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Serve an in-memory habit-tracker API",
		Long: `Serve an in-memory implementation of the habit-tracker REST API for
local development. State is lost when the server stops.

Example:
  habitsync dev-server --addr localhost:8080 --habits 1,2,3`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevServer(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "localhost:8080", "listen address")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "/api", "route prefix")
	cmd.Flags().Int64SliceVar(&opts.Habits, "habits", []int64{1, 2, 3}, "habit ids to register")

	return cmd
}

func runDevServer(opts *DevServerOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))

	api := fakeapi.New(fakeapi.WithPrefix(opts.Prefix))
	api.AddHabit(opts.Habits...)

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	srv := &http.Server{
		Handler:           logRequests(logger, api),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down", "error", err)
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving http://%s%s (habits %v)\n", ln.Addr(), opts.Prefix, opts.Habits)
	logger.Info("dev server starting", "addr", ln.Addr().String(), "prefix", opts.Prefix)

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "server error", err)
	}
	logger.Info("dev server stopped")
	return nil
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
