package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"playout/internal/schedule"
	"playout/internal/tui"
)

var (
	duplicateTo         string
	duplicateAt         string
	duplicateResolution string
	duplicateNoProgress bool
)

func newDuplicateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicate",
		Short: "Copy an item, a day or a week onto other dates",
		Long: "Copy an item, a day or a week onto other dates. Conflicts are reported " +
			"and nothing is written unless --resolution is replace or skip.",
	}

	cmd.PersistentFlags().StringVar(&duplicateTo, "to", "", "target date (default: next day, or next week for week)")
	cmd.PersistentFlags().StringVar(&duplicateResolution, "resolution", "", "conflict policy: replace or skip")
	cmd.PersistentFlags().BoolVar(&duplicateNoProgress, "no-progress", false, "disable the interactive progress table")

	item := &cobra.Command{
		Use:     "item <item-id>",
		Aliases: []string{"single"},
		Short:   "Copy one item",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDuplicate(cmd, schedule.DuplicateCommand{Mode: schedule.ModeSingle, ItemID: args[0]})
		},
	}
	item.Flags().StringVar(&duplicateAt, "at", "", "start time on the target date (default: same time)")

	day := &cobra.Command{
		Use:   "day <channel> <date>",
		Short: "Copy every item of one day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDuplicate(cmd, schedule.DuplicateCommand{Mode: schedule.ModeDay, ChannelID: args[0], Date: schedule.Date(args[1])})
		},
	}
	day.Flags().StringVar(&duplicateAt, "at", "", "start of the first copied item (default: keep times)")

	week := &cobra.Command{
		Use:   "week <channel> <first-date>",
		Short: "Copy seven consecutive days",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDuplicate(cmd, schedule.DuplicateCommand{Mode: schedule.ModeWeek, ChannelID: args[0], Date: schedule.Date(args[1])})
		},
	}

	cmd.AddCommand(item, day, week)
	return cmd
}

func runDuplicate(cmd *cobra.Command, command schedule.DuplicateCommand) error {
	resolution, err := schedule.ParseResolution(duplicateResolution)
	if err != nil {
		return err
	}
	command.Resolution = resolution
	if duplicateAt != "" && command.Mode != schedule.ModeWeek {
		at, err := schedule.ParseTimeOfDay(duplicateAt)
		if err != nil {
			return err
		}
		command.TargetStart = &at
	}

	return withRuntime(cmd.Context(), func(rt *runtime) error {
		today := rt.Today()
		if command.Mode != schedule.ModeSingle {
			if command.Date, err = parseDateArg(string(command.Date), today); err != nil {
				return err
			}
		}
		if duplicateTo != "" {
			if command.TargetDate, err = parseDateArg(duplicateTo, today); err != nil {
				return err
			}
		}

		targets, err := targetDates(cmd.Context(), rt, command)
		if err != nil {
			return reportError(cmd, err)
		}

		mode := tui.DetectMode(cmd.OutOrStdout(), duplicateNoProgress, outputJSON)
		result, err := executeDuplicate(cmd, rt, command, targets, mode)

		if result.Pending {
			if outputJSON {
				if jerr := writeJSON(cmd, result); jerr != nil {
					return jerr
				}
			} else {
				writeConflictPairs(cmd.ErrOrStderr(), result.Conflicts)
			}
			return errPending
		}

		if outputJSON {
			if jerr := writeJSON(cmd, result); jerr != nil {
				return jerr
			}
		} else if mode == tui.ModePlain {
			writeOutcomeTable(cmd.OutOrStdout(), result.Dates)
		}
		if outputJSON {
			return err
		}
		if partial, ok := partialFailure(err); ok {
			cmd.Printf("%d of %d dates committed\n", len(partial.Succeeded()), len(partial.Outcomes))
		} else if err == nil {
			cmd.Printf("Duplicated %d item(s): %d removed, %d skipped\n", len(result.Inserted), len(result.Removed), len(result.Skipped))
		}
		return err
	})
}

// targetDates lists the dates a duplication writes, in commit order.
func targetDates(ctx context.Context, rt *runtime, command schedule.DuplicateCommand) ([]schedule.Date, error) {
	switch command.Mode {
	case schedule.ModeSingle:
		if command.TargetDate != "" {
			return []schedule.Date{command.TargetDate}, nil
		}
		src, err := rt.svc.Get(ctx, command.ItemID)
		if err != nil {
			return nil, err
		}
		return []schedule.Date{src.Date.AddDays(1)}, nil
	case schedule.ModeDay:
		if command.TargetDate != "" {
			return []schedule.Date{command.TargetDate}, nil
		}
		return []schedule.Date{command.Date.AddDays(1)}, nil
	case schedule.ModeWeek:
		first := command.TargetDate
		if first == "" {
			first = command.Date.AddDays(schedule.WeekDays)
		}
		dates := make([]schedule.Date, 0, schedule.WeekDays)
		for i := 0; i < schedule.WeekDays; i++ {
			dates = append(dates, first.AddDays(i))
		}
		return dates, nil
	}
	return nil, &schedule.ValidationError{Field: "mode", Message: "mode must be single, day or week"}
}

func executeDuplicate(cmd *cobra.Command, rt *runtime, command schedule.DuplicateCommand, targets []schedule.Date, mode tui.OutputMode) (schedule.DuplicateResult, error) {
	ctx := cmd.Context()
	if mode != tui.ModeTUI {
		return rt.svc.Duplicate(ctx, command)
	}

	model := tui.NewProgressModel(fmt.Sprintf("Duplicate %s", command.Mode), tui.DuplicateColumns).WithVerb("Committing")
	for _, d := range targets {
		model.AddRow(tui.DateKey(d), []string{string(d), tui.StatusPending})
	}

	var (
		result schedule.DuplicateResult
		dupErr error
	)
	runErr := tui.RunWithWork(ctx, cmd.OutOrStdout(), model, func(ctx context.Context, send func(tea.Msg)) {
		reporter := tui.NewDuplicateReporter(send)
		result, dupErr = rt.svc.Duplicate(ctx, command, schedule.WithProgress(reporter.Progress()))
	})
	if dupErr != nil || errors.Is(runErr, tui.ErrInterrupted) {
		return result, dupErr
	}
	return result, runErr
}

func writeOutcomeTable(out io.Writer, outcomes []schedule.DateOutcome) {
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tSTATUS\tINSERTED\tREMOVED\tSKIPPED\tDETAIL")
	for _, o := range outcomes {
		fields := tui.OutcomeFields(o)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			o.Date, fields["STATUS"], fields["INSERTED"], fields["REMOVED"], fields["SKIPPED"], tui.NonEmptyOrDash(fields["DETAIL"]))
	}
	w.Flush()
}

// partialFailure unwraps a batch failure for callers that report per date.
func partialFailure(err error) (*schedule.PartialBatchFailure, bool) {
	var partial *schedule.PartialBatchFailure
	ok := errors.As(err, &partial)
	return partial, ok
}
