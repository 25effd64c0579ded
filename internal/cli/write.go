package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/optimistic"
)

// Write statuses reported by write commands.
const (
	WriteApplied = "applied"
	WriteQueued  = "queued"
)

// WriteResult is the output of toggle, complete and bulk.
type WriteResult struct {
	Status string                  `json:"status"`
	Record *model.CompletionRecord `json:"record,omitempty"`
	Bulk   *model.BulkResult       `json:"bulk,omitempty"`
	Queued *model.QueuedMutation   `json:"queued,omitempty"`
}

// ToggleOptions holds flags for the toggle command.
type ToggleOptions struct {
	*RootOptions
	Date    string
	Notes   string
	Current bool
}

// NewToggleCommand creates the toggle command.
func NewToggleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ToggleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "toggle <habit-id>",
		Short: "Flip a habit's completion",
		Long: `Flip a habit's completion for a date (today by default).

--current is the value the caller currently displays; the speculative
edit shows its negation until the server answers. While offline the
toggle is queued and replayed later.

Examples:
  habitsync toggle 3
  habitsync toggle 3 --date 2024-01-15 --notes "morning run"
  habitsync --offline toggle 3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToggle(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "completion date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes to attach")
	cmd.Flags().BoolVar(&opts.Current, "current", false, "currently displayed completion state")

	return cmd
}

func runToggle(opts *ToggleOptions, arg string, cmd *cobra.Command) error {
	habitID, err := parseID("habit", arg)
	if err != nil {
		return err
	}
	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	req := &model.ToggleRequest{Date: opts.Date, Notes: opts.Notes}
	res, err := s.Controller.ProposeToggle(commandContext(cmd), habitID, opts.Current, req, optimistic.Callbacks{})
	return s.emitWrite(fmt.Sprintf("toggle habit %d", habitID), res, err)
}

// CompleteOptions holds flags for the complete command.
type CompleteOptions struct {
	*RootOptions
	Date      string
	Completed bool
	Notes     string
}

// NewCompleteCommand creates the complete command.
func NewCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "complete <habit-id>",
		Short: "Set a habit's completion explicitly",
		Long: `Set a habit's completion for a date.

Examples:
  habitsync complete 3 --date 2024-01-15
  habitsync complete 3 --date 2024-01-15 --completed=false`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "completion date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&opts.Completed, "completed", true, "completion state to set")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes to attach")

	return cmd
}

func runComplete(opts *CompleteOptions, arg string, cmd *cobra.Command) error {
	habitID, err := parseID("habit", arg)
	if err != nil {
		return err
	}
	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	req := model.CompleteRequest{Date: opts.Date, IsCompleted: opts.Completed, Notes: opts.Notes}
	res, err := s.Controller.SubmitComplete(commandContext(cmd), habitID, req)
	return s.emitWrite(fmt.Sprintf("complete habit %d", habitID), res, err)
}

// BulkOptions holds flags for the bulk command.
type BulkOptions struct {
	*RootOptions
	Habits []int64
	Date   string
	Notes  string
}

// NewBulkCommand creates the bulk command.
func NewBulkCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BulkOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Complete several habits for one date",
		Long: `Complete several habits for one date in a single request.

Per-habit failures reported by the server are listed but do not fail the
command.

Example:
  habitsync bulk --habits 1,2,5 --date 2024-01-15`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBulk(opts, cmd)
		},
	}

	cmd.Flags().Int64SliceVar(&opts.Habits, "habits", nil, "comma-separated habit ids (required)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "completion date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes to attach")
	_ = cmd.MarkFlagRequired("habits")

	return cmd
}

func runBulk(opts *BulkOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	req := model.BulkRequest{HabitIDs: opts.Habits, Date: opts.Date, Notes: opts.Notes}
	res, err := s.Controller.SubmitBulk(commandContext(cmd), req)
	return s.emitWrite(fmt.Sprintf("bulk complete %v", opts.Habits), res, err)
}

// emitWrite reports a write. A write that failed but was queued succeeds.
func (s *session) emitWrite(what string, res optimistic.Result, err error) error {
	if res.Queued != nil {
		if err != nil {
			s.Logger.Warn("write failed after going offline, queued for replay", "id", res.Queued.ID, "error", err)
		}
		item := *res.Queued
		return s.out.Emit(WriteResult{Status: WriteQueued, Queued: &item}, func(w io.Writer) {
			fmt.Fprintf(w, "offline: queued %s (id %s)\n", describeMutation(item), item.ID)
		})
	}
	if err != nil {
		return s.out.Fail(ExitFailure, "E_WRITE_FAILED", what, err)
	}

	return s.out.Emit(WriteResult{Status: WriteApplied, Record: res.Record, Bulk: res.Bulk}, func(w io.Writer) {
		switch {
		case res.Record != nil:
			fmt.Fprintln(w, describeRecord(res.Record))
		case res.Bulk != nil:
			fmt.Fprintf(w, "completed %d habits, %d failed\n", res.Bulk.SuccessCount, res.Bulk.FailureCount)
			for _, e := range res.Bulk.Errors {
				fmt.Fprintf(w, "  habit %d: %s\n", e.HabitID, e.Message)
			}
		}
	})
}

func describeRecord(r *model.CompletionRecord) string {
	state := "not completed"
	if r.IsCompleted {
		state = "completed"
	}
	return fmt.Sprintf("habit %d on %s: %s (streak %d, best %d)",
		r.HabitID, r.CompletionDate, state, r.CurrentStreak, r.LongestStreak)
}

// describeMutation renders a queued write for humans.
func describeMutation(m model.QueuedMutation) string {
	switch p := m.Payload.(type) {
	case model.ToggleRequest:
		return fmt.Sprintf("toggle of habit %d on %s", m.HabitID, p.Date)
	case model.CompleteRequest:
		return fmt.Sprintf("completion of habit %d on %s = %t", m.HabitID, p.Date, p.IsCompleted)
	case model.BulkRequest:
		return fmt.Sprintf("bulk completion of habits %v on %s", p.HabitIDs, p.Date)
	default:
		return string(m.Kind())
	}
}
