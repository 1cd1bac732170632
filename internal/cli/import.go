package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"playout/internal/schedule"
	"playout/internal/tui"
	"playout/pkg/csvplan"
)

var (
	importChannel    string
	importDate       string
	importReplace    bool
	importDryRun     bool
	importNoProgress bool
)

var importColumns = []tui.Column{
	{Header: "LINE", Width: 5},
	{Header: "STATUS", Width: 10},
	{Header: "CHANNEL", Width: 10},
	{Header: "DATE", Width: 10},
	{Header: "START", Width: 8},
	{Header: "TITLE", Width: 28},
	{Header: "DETAIL", Width: 40},
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <lineup.csv|lineup.yaml>",
		Short: "Schedule every row of a lineup file",
		Long: "Schedule every row of a lineup file in order. Rows without a start time are " +
			"appended after the previous item; rows that conflict are reported and the import continues.",
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().StringVar(&importChannel, "channel", "", "channel for rows that leave it blank")
	cmd.Flags().StringVar(&importDate, "date", "today", "date for rows that leave it blank")
	cmd.Flags().BoolVar(&importReplace, "replace", false, "remove overlapping items instead of reporting conflicts")
	cmd.Flags().BoolVar(&importDryRun, "dry-run", false, "validate the file without scheduling anything")
	cmd.Flags().BoolVar(&importNoProgress, "no-progress", false, "disable the interactive progress table")

	return cmd
}

// importOutcome is the result of one lineup row.
type importOutcome struct {
	Line      int             `json:"line"`
	Status    string          `json:"status"`
	Item      *schedule.Item  `json:"item,omitempty"`
	Removed   []schedule.Item `json:"removed,omitempty"`
	Conflicts []schedule.Item `json:"conflicts,omitempty"`
	Error     string          `json:"error,omitempty"`
	command   schedule.ScheduleCommand
}

func runImport(cmd *cobra.Command, args []string) error {
	rows, loadErr := csvplan.Load(args[0])
	var issues csvplan.ValidationErrors
	if loadErr != nil && !errors.As(loadErr, &issues) {
		return loadErr
	}

	return withRuntime(cmd.Context(), func(rt *runtime) error {
		defaultDate, err := parseDateArg(importDate, rt.Today())
		if err != nil {
			return err
		}

		invalid := make(map[int][]string)
		for _, issue := range issues {
			invalid[issue.Line] = append(invalid[issue.Line], issue.Error())
		}

		outcomes := make([]importOutcome, 0, len(rows))
		for _, row := range rows {
			command, err := rowCommand(row, importChannel, defaultDate, importReplace)
			o := importOutcome{Line: row.Line, Status: tui.StatusPending, command: command}
			switch {
			case len(invalid[row.Line]) > 0:
				o.Status = tui.StatusFailed
				o.Error = strings.Join(invalid[row.Line], "; ")
				delete(invalid, row.Line)
			case err != nil:
				o.Status = tui.StatusFailed
				o.Error = err.Error()
			}
			outcomes = append(outcomes, o)
		}

		mode := tui.DetectMode(cmd.OutOrStdout(), importNoProgress, outputJSON)
		if importDryRun && mode == tui.ModeTUI {
			mode = tui.ModePlain
		}
		if !importDryRun {
			if err := executeImport(cmd, rt, outcomes, mode); err != nil {
				return err
			}
		}

		if outputJSON {
			var messages []string
			for _, issue := range issues {
				messages = append(messages, issue.Error())
			}
			if err := writeJSON(cmd, map[string]any{"rows": outcomes, "errors": messages}); err != nil {
				return err
			}
		} else {
			if mode == tui.ModePlain {
				writeImportTable(cmd.OutOrStdout(), outcomes)
			}
			for _, issue := range issues {
				fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", issue.Error())
			}
		}

		// Lines left in invalid produced no row at all.
		failed, total := len(invalid), len(outcomes)+len(invalid)
		for _, o := range outcomes {
			if o.Status == tui.StatusFailed || o.Status == tui.StatusConflict {
				failed++
			}
		}
		rt.logger.WithField("file", args[0]).Infof("import finished: rows=%d not_scheduled=%d issues=%d", total, failed, len(issues))

		if failed > 0 {
			return fmt.Errorf("import: %d of %d rows not scheduled", failed, total)
		}
		return nil
	})
}

// rowCommand turns a lineup row into a schedule command.
func rowCommand(row csvplan.Row, defaultChannel string, defaultDate schedule.Date, replace bool) (schedule.ScheduleCommand, error) {
	command := schedule.ScheduleCommand{
		ChannelID: strings.TrimSpace(row.Channel),
		Date:      defaultDate,
		Media: schedule.MediaRef{
			MediaID:    row.Media,
			URL:        row.Link,
			Title:      row.Title,
			DurationMs: row.Duration.Milliseconds(),
		},
		Slot:    schedule.Auto(),
		Replace: replace,
	}
	if command.ChannelID == "" {
		command.ChannelID = strings.TrimSpace(defaultChannel)
	}
	if command.ChannelID == "" {
		return command, &schedule.ValidationError{Field: "channel", Message: "channel is required (column or --channel)"}
	}
	if row.Date != "" {
		date, err := schedule.ParseDate(row.Date)
		if err != nil {
			return command, err
		}
		command.Date = date
	}
	if row.HasStart {
		command.Slot = schedule.At(schedule.TimeOfDay(row.Start / time.Second))
	}
	return command, nil
}

func executeImport(cmd *cobra.Command, rt *runtime, outcomes []importOutcome, mode tui.OutputMode) error {
	commit := func(ctx context.Context, send func(tea.Msg)) {
		for i := range outcomes {
			o := &outcomes[i]
			if o.Status == tui.StatusFailed {
				continue
			}
			key := importKey(o.Line)
			if err := ctx.Err(); err != nil {
				o.Status = tui.StatusFailed
				o.Error = err.Error()
				send(tui.RowUpdateMsg{Key: key, Fields: importFields(*o)})
				continue
			}
			send(tui.RowUpdateMsg{Key: key, Fields: map[string]string{"STATUS": tui.StatusWorking}})

			placement, err := rt.svc.Schedule(ctx, o.command)
			var conflict *schedule.ConflictError
			switch {
			case err == nil:
				o.Status = tui.StatusCommitted
				o.Item = &placement.Item
				o.Removed = placement.Removed
				if placement.Warning != nil {
					o.Error = placement.Warning.Error()
					send(tui.NoteMsg{Text: fmt.Sprintf("line %d: %s", o.Line, o.Error)})
				}
			case errors.As(err, &conflict):
				o.Status = tui.StatusConflict
				o.Conflicts = conflict.Conflicts
				o.Error = err.Error()
			default:
				o.Status = tui.StatusFailed
				o.Error = err.Error()
			}
			send(tui.RowUpdateMsg{Key: key, Fields: importFields(*o)})
		}
	}

	if mode != tui.ModeTUI {
		commit(cmd.Context(), func(tea.Msg) {})
		return nil
	}

	model := tui.NewProgressModel("Import lineup", importColumns).WithVerb("Scheduling")
	for _, o := range outcomes {
		model.AddRow(importKey(o.Line), importRow(o))
	}
	err := tui.RunWithWork(cmd.Context(), cmd.OutOrStdout(), model, commit)
	if errors.Is(err, tui.ErrInterrupted) {
		return nil
	}
	return err
}

func importKey(line int) string {
	return fmt.Sprintf("row:%d", line)
}

func importFields(o importOutcome) map[string]string {
	row := importRow(o)
	fields := make(map[string]string, len(importColumns))
	for i, col := range importColumns {
		fields[col.Header] = row[i]
	}
	return fields
}

func importRow(o importOutcome) []string {
	start := "auto"
	if !o.command.Slot.Auto {
		start = o.command.Slot.At.String()
	}
	title := o.command.Media.Title
	if o.Item != nil {
		start = o.Item.Start.String()
		title = o.Item.Title
	}
	if title == "" {
		title = o.command.Media.MediaID
	}
	return []string{
		fmt.Sprint(o.Line),
		o.Status,
		tui.NonEmptyOrDash(o.command.ChannelID),
		string(o.command.Date),
		start,
		tui.NonEmptyOrDash(title),
		o.Error,
	}
}

func writeImportTable(out io.Writer, outcomes []importOutcome) {
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "LINE\tSTATUS\tCHANNEL\tDATE\tSTART\tTITLE\tDETAIL")
	for _, o := range outcomes {
		row := importRow(o)
		row[len(row)-1] = tui.NonEmptyOrDash(row[len(row)-1])
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}
