package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"playout/internal/duration"
	"playout/internal/onair"
	"playout/internal/schedule"
	"playout/internal/tui"
)

var (
	scheduleDate     string
	scheduleMedia    string
	scheduleURL      string
	scheduleTitle    string
	scheduleDuration string
	scheduleAt       string
	scheduleReplace  bool
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule <channel>",
		Short: "Place media on a channel's timeline",
		Long: "Place media on a channel's timeline. Without --at the item is appended " +
			"after the last item of the day; with --at the slot must be free unless --replace is set.",
		Args: cobra.ExactArgs(1),
		RunE: runSchedule,
	}

	cmd.Flags().StringVar(&scheduleDate, "date", "today", "target date (YYYY-MM-DD, today, tomorrow)")
	cmd.Flags().StringVar(&scheduleMedia, "media", "", "media library id")
	cmd.Flags().StringVar(&scheduleURL, "url", "", "external link or local file")
	cmd.Flags().StringVar(&scheduleTitle, "title", "", "title (defaults to the media title)")
	cmd.Flags().StringVar(&scheduleDuration, "duration", "", "explicit duration as HH:MM:SS")
	cmd.Flags().StringVar(&scheduleAt, "at", "", "start time HH:MM:SS (auto placement when empty)")
	cmd.Flags().BoolVar(&scheduleReplace, "replace", false, "remove overlapping items instead of failing")

	return cmd
}

func runSchedule(cmd *cobra.Command, args []string) error {
	return withRuntime(cmd.Context(), func(rt *runtime) error {
		date, err := parseDateArg(scheduleDate, rt.Today())
		if err != nil {
			return err
		}

		command := schedule.ScheduleCommand{
			ChannelID: strings.TrimSpace(args[0]),
			Date:      date,
			Media: schedule.MediaRef{
				MediaID: strings.TrimSpace(scheduleMedia),
				URL:     strings.TrimSpace(scheduleURL),
				Title:   strings.TrimSpace(scheduleTitle),
			},
			Slot:    schedule.Auto(),
			Replace: scheduleReplace,
		}
		if scheduleDuration != "" {
			ms, err := duration.ParseHMS(scheduleDuration)
			if err != nil {
				return &schedule.ValidationError{Field: "duration", Message: err.Error()}
			}
			command.Media.DurationMs = ms
		}
		if scheduleAt != "" {
			at, err := schedule.ParseTimeOfDay(scheduleAt)
			if err != nil {
				return err
			}
			command.Slot = schedule.At(at)
		}

		placement, err := rt.svc.Schedule(cmd.Context(), command)
		if err != nil {
			return reportError(cmd, err)
		}

		if outputJSON {
			return writeJSON(cmd, placement)
		}
		it := placement.Item
		cmd.Printf("Scheduled %s on %s %s %s-%s (%s via %s)\n",
			it.ID, it.ChannelID, it.Date, it.Start, it.End(),
			schedule.TimeOfDay(it.DurationSeconds), placement.Duration.Source)
		for _, removed := range placement.Removed {
			cmd.Printf("  replaced %s %s %s\n", removed.ID, removed.Start, tui.NonEmptyOrDash(removed.Title))
		}
		if placement.Warning != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), tui.WarningStyle.Render("warning: "+placement.Warning.Error()))
		}
		return nil
	})
}

func newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <item-id> <HH:MM:SS>",
		Short: "Change an item's start time",
		Args:  cobra.ExactArgs(2),
		RunE:  runMove,
	}
}

func runMove(cmd *cobra.Command, args []string) error {
	start, err := schedule.ParseTimeOfDay(args[1])
	if err != nil {
		return err
	}
	return withRuntime(cmd.Context(), func(rt *runtime) error {
		moved, err := rt.svc.Move(cmd.Context(), schedule.MoveCommand{ItemID: args[0], Start: start})
		if err != nil {
			return reportError(cmd, err)
		}
		if outputJSON {
			return writeJSON(cmd, moved)
		}
		cmd.Printf("Moved %s to %s-%s (position %d)\n", moved.ID, moved.Start, moved.End(), moved.OrderPosition)
		return nil
	})
}

func newReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "reorder <item-id> <up|down>",
		Short:     "Swap an item's position with its neighbour",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(schedule.Up), string(schedule.Down)},
		RunE:      runReorder,
	}
}

func runReorder(cmd *cobra.Command, args []string) error {
	dir := schedule.Direction(strings.ToLower(args[1]))
	return withRuntime(cmd.Context(), func(rt *runtime) error {
		it, err := rt.svc.Reorder(cmd.Context(), schedule.ReorderCommand{ItemID: args[0], Direction: dir})
		if err != nil {
			return reportError(cmd, err)
		}
		if outputJSON {
			return writeJSON(cmd, it)
		}
		cmd.Printf("%s is now at position %d\n", it.ID, it.OrderPosition)
		return nil
	})
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <item-id>",
		Aliases: []string{"rm"},
		Short:   "Remove an item from its timeline",
		Args:    cobra.ExactArgs(1),
		RunE:    runRemove,
	}
}

func runRemove(cmd *cobra.Command, args []string) error {
	return withRuntime(cmd.Context(), func(rt *runtime) error {
		if err := rt.svc.Remove(cmd.Context(), args[0]); err != nil {
			return reportError(cmd, err)
		}
		if outputJSON {
			return writeJSON(cmd, map[string]any{"removed": args[0]})
		}
		cmd.Printf("Removed %s\n", args[0])
		return nil
	})
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Inspect or change playout statuses",
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "set <item-id> <scheduled|playing|done>",
		Short:     "Set an item's status",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(schedule.StatusScheduled), string(schedule.StatusPlaying), string(schedule.StatusDone)},
		RunE:      runStatusSet,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Reconcile statuses with the wall clock once",
		RunE:  runStatusSync,
	})

	return cmd
}

func runStatusSet(cmd *cobra.Command, args []string) error {
	status := schedule.Status(strings.ToLower(args[1]))
	return withRuntime(cmd.Context(), func(rt *runtime) error {
		it, err := rt.svc.SetStatus(cmd.Context(), args[0], status)
		if err != nil {
			return reportError(cmd, err)
		}
		if outputJSON {
			return writeJSON(cmd, it)
		}
		cmd.Printf("%s is %s\n", it.ID, tui.StatusStyle(string(it.Status)).Render(string(it.Status)))
		return nil
	})
}

func runStatusSync(cmd *cobra.Command, _ []string) error {
	return withRuntime(cmd.Context(), func(rt *runtime) error {
		poller := onair.New(rt.svc, onair.Options{Location: rt.location, Logger: rt.logger})
		report, err := poller.Tick(cmd.Context())
		if outputJSON {
			if jerr := writeJSON(cmd, report); jerr != nil {
				return jerr
			}
		} else {
			cmd.Printf("Reconciled statuses: %s\n", report)
		}
		return err
	})
}
