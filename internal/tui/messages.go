package tui

// RowUpdateMsg sets fields of the row with Key, addressed by column header.
type RowUpdateMsg struct {
	Key    string
	Fields map[string]string
}

// NoteMsg adds a line under the table, such as a fallback-duration warning.
type NoteMsg struct {
	Text string
}

// WorkDoneMsg ends the program once the batch has returned.
type WorkDoneMsg struct{}

// ErrorMsg aborts the program with Err.
type ErrorMsg struct {
	Err error
}
