package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"playout/internal/schedule"
	"playout/internal/tui"
)

// errPending marks a duplication that stopped at its conflicts.
var errPending = errors.New("conflicts pending; rerun with --resolution replace or skip")

func exitCode(err error) int {
	var conflict *schedule.ConflictError
	switch {
	case errors.As(err, &conflict), errors.Is(err, errPending):
		return 2
	}
	return 1
}

func writeJSON(cmd *cobra.Command, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func writeItemsTable(out io.Writer, items []schedule.Item) {
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tSTART\tEND\tDURATION\tSTATUS\tTITLE\tID")
	for _, it := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			it.OrderPosition,
			it.Start,
			it.End(),
			schedule.TimeOfDay(it.DurationSeconds),
			tui.StatusStyle(string(it.Status)).Render(string(it.Status)),
			tui.NonEmptyOrDash(it.Title),
			it.ID,
		)
	}
	w.Flush()
}

func writeConflicts(out io.Writer, conflicts []schedule.Item) {
	fmt.Fprintln(out, tui.WarningStyle.Render("Conflicts:"))
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "  START\tEND\tTITLE\tID")
	for _, it := range conflicts {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", it.Start, it.End(), tui.NonEmptyOrDash(it.Title), it.ID)
	}
	w.Flush()
}

func writeConflictPairs(out io.Writer, pairs []schedule.ConflictPair) {
	fmt.Fprintln(out, tui.WarningStyle.Render("Conflicts:"))
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "  DATE\tCANDIDATE\tEXISTING\tEXISTING ID")
	for _, p := range pairs {
		fmt.Fprintf(w, "  %s\t%s %s\t%s %s\t%s\n",
			p.Candidate.Date,
			p.Candidate.Interval(), tui.NonEmptyOrDash(p.Candidate.Title),
			p.Existing.Interval(), tui.NonEmptyOrDash(p.Existing.Title),
			p.Existing.ID,
		)
	}
	w.Flush()
}

// reportError prints structured details for scheduling errors before the
// error itself is returned to Execute.
func reportError(cmd *cobra.Command, err error) error {
	var conflict *schedule.ConflictError
	if errors.As(err, &conflict) {
		if outputJSON {
			if jerr := writeJSON(cmd, map[string]any{"error": "conflict", "candidate": conflict.Candidate, "conflicts": conflict.Conflicts}); jerr != nil {
				return jerr
			}
		} else {
			writeConflicts(cmd.ErrOrStderr(), conflict.Conflicts)
		}
	}
	return err
}

// parseDateArg resolves "today", "tomorrow" or YYYY-MM-DD.
func parseDateArg(value string, today schedule.Date) (schedule.Date, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	case "yesterday":
		return today.AddDays(-1), nil
	}
	return schedule.ParseDate(value)
}
