package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/clock"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
)

// requireOnline fails read commands that cannot reach the API.
func (s *session) requireOnline() error {
	if s.Monitor.Online() {
		return nil
	}
	if err := s.out.Error("E_OFFLINE", "reads need the API", nil); err != nil {
		return err
	}
	return NewExitError(ExitFailure, "reads need the API")
}

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Date string
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "status <habit-id>",
		Short:         "Show a habit's completion for a date",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Date, "date", "", "date YYYY-MM-DD (default today)")
	return cmd
}

func runStatus(opts *StatusOptions, arg string, cmd *cobra.Command) error {
	habitID, err := parseID("habit", arg)
	if err != nil {
		return err
	}
	date := opts.Date
	if date == "" {
		date = model.Today(clock.Real{})
	}
	if err := model.ValidateDate(date); err != nil {
		return WrapExitError(ExitCommandError, "invalid --date", err)
	}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.requireOnline(); err != nil {
		return err
	}

	st, err := s.Service.Status(commandContext(cmd), habitID, date)
	if err != nil {
		return s.out.Fail(ExitFailure, "E_READ_FAILED", "read status", err)
	}
	return s.out.Emit(st, func(w io.Writer) {
		state := "not completed"
		if st.IsCompleted {
			state = "completed"
		}
		fmt.Fprintf(w, "habit %d on %s: %s\n", st.HabitID, st.Date, state)
		fmt.Fprintf(w, "  streak %d, best %d\n", st.CurrentStreak, st.LongestStreak)
		if st.LastCompletedDate != "" {
			fmt.Fprintf(w, "  last completed %s\n", st.LastCompletedDate)
		}
	})
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats <habit-id>",
		Short:         "Show a habit's completion statistics",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, args[0], cmd)
		},
	}
}

func runStats(opts *RootOptions, arg string, cmd *cobra.Command) error {
	habitID, err := parseID("habit", arg)
	if err != nil {
		return err
	}
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.requireOnline(); err != nil {
		return err
	}

	st, err := s.Service.Stats(commandContext(cmd), habitID)
	if err != nil {
		return s.out.Fail(ExitFailure, "E_READ_FAILED", "read stats", err)
	}
	return s.out.Emit(st, func(w io.Writer) {
		fmt.Fprintf(w, "habit %d: %d completions, %.0f%% rate\n", st.HabitID, st.TotalCompletions, st.CompletionRate*100)
		fmt.Fprintf(w, "  streak %d, best %d\n", st.CurrentStreak, st.LongestStreak)
		days := make([]string, 0, len(st.CompletionsByDayOfWeek))
		for d := range st.CompletionsByDayOfWeek {
			days = append(days, d)
		}
		sort.Strings(days)
		for _, d := range days {
			fmt.Fprintf(w, "  %s: %d\n", d, st.CompletionsByDayOfWeek[d])
		}
	})
}

// WeeklyOptions holds flags for the weekly command.
type WeeklyOptions struct {
	*RootOptions
	WeekStart string
}

// NewWeeklyCommand creates the weekly command.
func NewWeeklyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WeeklyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "weekly <habit-id>",
		Short:         "Show seven days of completions",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWeekly(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.WeekStart, "week-start", "", "first day YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("week-start")
	return cmd
}

func runWeekly(opts *WeeklyOptions, arg string, cmd *cobra.Command) error {
	habitID, err := parseID("habit", arg)
	if err != nil {
		return err
	}
	if err := model.ValidateDate(opts.WeekStart); err != nil {
		return WrapExitError(ExitCommandError, "invalid --week-start", err)
	}
	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.requireOnline(); err != nil {
		return err
	}

	wk, err := s.Service.Weekly(commandContext(cmd), habitID, opts.WeekStart)
	if err != nil {
		return s.out.Fail(ExitFailure, "E_READ_FAILED", "read weekly view", err)
	}
	return s.out.Emit(wk, func(w io.Writer) {
		fmt.Fprintf(w, "habit %d, week of %s\n", wk.HabitID, wk.WeekStart)
		for _, d := range wk.Days {
			mark := " "
			if d.IsCompleted {
				mark = "x"
			}
			fmt.Fprintf(w, "  [%s] %s\n", mark, d.Date)
		}
	})
}

// NewTrackerCommand creates the tracker command.
func NewTrackerCommand(rootOpts *RootOptions) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "tracker <tracker-id>",
		Short: "Show a tracker snapshot",
		Long: `Show the whole-tracker snapshot. Snapshots are cached in local storage
and served from there while fresh. Use --refresh after changing a tracker's
habits to drop the cached snapshot and fetch a new one.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTracker(rootOpts, args[0], refresh, cmd)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Drop the cached snapshot and fetch from the API")
	return cmd
}

func runTracker(opts *RootOptions, arg string, refresh bool, cmd *cobra.Command) error {
	trackerID, err := parseID("tracker", arg)
	if err != nil {
		return err
	}
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := commandContext(cmd)
	// A fresh cached snapshot is served offline too, unless a refresh was
	// asked for.
	if !s.Monitor.Online() {
		if refresh {
			return s.requireOnline()
		}
		if _, ok := s.Trackers.Get(ctx, trackerID); !ok {
			return s.requireOnline()
		}
	}
	if refresh {
		s.Service.InvalidateTracker(ctx, trackerID)
	}
	snap, err := s.Service.TrackerSnapshot(ctx, trackerID)
	if err != nil {
		return s.out.Fail(ExitFailure, "E_READ_FAILED", "read tracker", err)
	}
	return s.out.Emit(json.RawMessage(snap), func(w io.Writer) {
		fmt.Fprintln(w, string(snap))
	})
}
