package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/queue"
)

// QueueSummary is the output of queue subcommands.
type QueueSummary struct {
	Items  []model.QueuedMutation `json:"items"`
	Failed int                    `json:"failed"`
	Reset  int                    `json:"reset,omitempty"`
	Drain  *queue.Report          `json:"drain,omitempty"`
}

// NewQueueCommand creates the queue command group.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the offline write queue",
	}

	cmd.AddCommand(newQueueSubcommand(rootOpts, "list", "List queued writes", runQueueList))
	cmd.AddCommand(newQueueSubcommand(rootOpts, "retry", "Reset retry counts of failed writes and replay them", runQueueRetry))
	cmd.AddCommand(newQueueSubcommand(rootOpts, "clear", "Discard every queued write", runQueueClear))
	cmd.AddCommand(newQueueSubcommand(rootOpts, "drain", "Replay queued writes now", runQueueDrain))

	return cmd
}

func newQueueSubcommand(rootOpts *RootOptions, use, short string, run func(*session, *cobra.Command) error) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()
			return run(s, cmd)
		},
	}
}

func (s *session) summary() QueueSummary {
	items := s.Queue.Items()
	if items == nil {
		items = []model.QueuedMutation{}
	}
	return QueueSummary{Items: items, Failed: len(s.Queue.Failed())}
}

func runQueueList(s *session, _ *cobra.Command) error {
	sum := s.summary()
	return s.out.Emit(sum, func(w io.Writer) {
		writeQueue(w, sum.Items)
	})
}

func runQueueRetry(s *session, _ *cobra.Command) error {
	n := s.Queue.RetryFailed()
	s.Queue.Wait()

	sum := s.summary()
	sum.Reset = n
	return s.out.Emit(sum, func(w io.Writer) {
		fmt.Fprintf(w, "reset %d failed writes\n", n)
		if !s.Queue.Online() {
			fmt.Fprintln(w, "offline: replay deferred until the API is reachable")
		}
		writeQueue(w, sum.Items)
	})
}

func runQueueClear(s *session, _ *cobra.Command) error {
	n := s.Queue.Clear()
	return s.out.Emit(s.summary(), func(w io.Writer) {
		fmt.Fprintf(w, "discarded %d queued writes\n", n)
	})
}

func runQueueDrain(s *session, cmd *cobra.Command) error {
	rep := s.Queue.Drain(commandContext(cmd))
	sum := s.summary()
	sum.Drain = &rep

	if err := s.out.Emit(sum, func(w io.Writer) {
		switch {
		case rep.Skipped && !s.Queue.Online():
			fmt.Fprintln(w, "offline: nothing replayed")
		case rep.Skipped:
			fmt.Fprintln(w, "nothing to replay")
		default:
			fmt.Fprintf(w, "replayed %d of %d, %d will retry, %d dropped\n",
				rep.Replayed, rep.Attempted, rep.Retrying, rep.Dropped)
		}
		writeQueue(w, sum.Items)
	}); err != nil {
		return err
	}
	if rep.Dropped > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d queued write(s) dropped after max retries", rep.Dropped))
	}
	return nil
}

func writeQueue(w io.Writer, items []model.QueuedMutation) {
	if len(items) == 0 {
		fmt.Fprintln(w, "queue is empty")
		return
	}
	for _, m := range items {
		fmt.Fprintf(w, "%s  %s  retries=%d  queued=%s\n",
			m.ID, describeMutation(m), m.RetryCount, m.EnqueuedAt.Format(time.RFC3339))
	}
}
