package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"playout/internal/onair"
	"playout/internal/schedule"
	"playout/internal/tui"
)

var dayByPosition bool

func newDayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "day <channel> [date]",
		Short: "Show a channel's timeline for one date",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runDay,
	}

	cmd.Flags().BoolVar(&dayByPosition, "by-position", false, "order by presentation position instead of start time")

	return cmd
}

func runDay(cmd *cobra.Command, args []string) error {
	return withRuntime(cmd.Context(), func(rt *runtime) error {
		dateArg := ""
		if len(args) > 1 {
			dateArg = args[1]
		}
		date, err := parseDateArg(dateArg, rt.Today())
		if err != nil {
			return err
		}
		channelID := strings.TrimSpace(args[0])

		items, err := rt.svc.ListDay(cmd.Context(), channelID, date)
		if err != nil {
			return reportError(cmd, err)
		}
		if dayByPosition {
			schedule.SortByPosition(items)
		}
		if items == nil {
			items = []schedule.Item{}
		}

		if outputJSON {
			return writeJSON(cmd, struct {
				Channel string          `json:"channel"`
				Date    schedule.Date   `json:"date"`
				Items   []schedule.Item `json:"items"`
			}{channelID, date, items})
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", tui.TitleStyle.Render(fmt.Sprintf("%s %s", channelID, date)))
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(no items)")
			return nil
		}
		writeItemsTable(cmd.OutOrStdout(), items)

		if date == rt.Today() {
			writeOnAirSummary(cmd, rt, items)
		}
		return nil
	})
}

// writeOnAirSummary names the item the wall clock currently falls in.
func writeOnAirSummary(cmd *cobra.Command, rt *runtime, items []schedule.Item) {
	clock := schedule.ClockOf(rt.Now())
	for _, it := range items {
		if onair.StatusAt(it, clock) == schedule.StatusPlaying {
			fmt.Fprintf(cmd.OutOrStdout(), "\nOn air at %s: %s (%s)\n", clock, tui.NonEmptyOrDash(it.Title), it.ID)
			return
		}
	}
}
