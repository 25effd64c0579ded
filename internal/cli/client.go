package cli

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/app"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/config"
)

// session is one command's view of the wired client.
type session struct {
	*app.App
	out *OutputFormatter
}

// openSession loads config, configures logging and builds the client. The
// caller must call Close.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	out := newFormatter(cmd, opts)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	level := cfg.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	a, err := app.Build(commandContext(cmd), cfg, logger, app.Options{Offline: opts.Offline})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to start client", err)
	}
	out.VerboseLog("api=%s storage=%s online=%t queued=%d",
		cfg.APIBaseURL, cfg.StoragePath, a.Monitor.Online(), a.Queue.Len())
	return &session{App: a, out: out}, nil
}

// Close waits for background replays and releases storage.
func (s *session) Close() {
	if err := s.App.Close(); err != nil {
		s.Logger.Error("error closing client", "error", err)
	}
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// parseID parses a positive habit or tracker id argument.
func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, "invalid "+kind+" id: "+arg)
	}
	return id, nil
}
