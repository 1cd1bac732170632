package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"playout/internal/schedule"
)

// Columns of the duplicate progress table.
var DuplicateColumns = []Column{
	{Header: "DATE", Width: 10},
	{Header: "STATUS", Width: 10},
	{Header: "INSERTED", Width: 8},
	{Header: "REMOVED", Width: 7},
	{Header: "SKIPPED", Width: 7},
	{Header: "DETAIL", Width: 40},
}

// DateKey is the row key of a target date.
func DateKey(date schedule.Date) string {
	return "date:" + string(date)
}

// DuplicateReporter turns schedule.Progress callbacks into row updates.
type DuplicateReporter struct {
	send func(tea.Msg)
}

// NewDuplicateReporter sends row updates through send, usually
// tea.Program.Send.
func NewDuplicateReporter(send func(tea.Msg)) *DuplicateReporter {
	return &DuplicateReporter{send: send}
}

// Progress returns the callbacks to pass to schedule.WithProgress.
func (r *DuplicateReporter) Progress() schedule.Progress {
	return schedule.Progress{
		DateStarted: func(date schedule.Date) {
			r.send(RowUpdateMsg{Key: DateKey(date), Fields: map[string]string{"STATUS": StatusWorking}})
		},
		DateFinished: func(o schedule.DateOutcome) {
			r.send(RowUpdateMsg{Key: DateKey(o.Date), Fields: OutcomeFields(o)})
		},
	}
}

// OutcomeFields renders one date outcome as table fields.
func OutcomeFields(o schedule.DateOutcome) map[string]string {
	fields := map[string]string{
		"STATUS":   OutcomeStatus(o),
		"INSERTED": fmt.Sprint(len(o.Inserted)),
		"REMOVED":  fmt.Sprint(len(o.Removed)),
		"SKIPPED":  fmt.Sprint(len(o.Skipped)),
		"DETAIL":   "",
	}
	if !o.OK() {
		fields["DETAIL"] = o.Err.Error()
	}
	return fields
}

// OutcomeStatus summarises a date outcome in one word.
func OutcomeStatus(o schedule.DateOutcome) string {
	switch {
	case !o.OK():
		return StatusFailed
	case len(o.Inserted) == 0 && len(o.Skipped) > 0:
		return StatusSkipped
	case len(o.Skipped) > 0:
		return StatusPartial
	case len(o.Inserted) == 0:
		return StatusEmpty
	}
	return StatusCommitted
}
