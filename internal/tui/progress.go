package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Column is one column of the progress table. Cells wider than Width are
// cut with an ellipsis.
type Column struct {
	Header string
	Width  int
}

// Row is one unit of batch work: a target date or a lineup row.
type Row struct {
	Key    string
	Fields []string
}

// ProgressModel is the bubbletea model behind duplicate and import. It keeps
// a fixed set of rows, updates them by key and summarises their statuses in
// the footer.
type ProgressModel struct {
	title   string
	verb    string
	columns []Column
	widths  []int
	rows    []Row
	index   map[string]int
	status  int
	notes   []string

	spinner     spinner.Model
	done        bool
	interrupted bool
	err         error
}

// NewProgressModel builds an empty table. A column headed STATUS drives the
// footer counts and is coloured with StatusStyle.
func NewProgressModel(title string, columns []Column) ProgressModel {
	m := ProgressModel{
		title:   title,
		verb:    "Working",
		columns: columns,
		widths:  make([]int, len(columns)),
		index:   make(map[string]int),
		status:  -1,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	for i, c := range columns {
		m.widths[i] = max(len(c.Header), c.Width)
		if m.status < 0 && strings.EqualFold(c.Header, "STATUS") {
			m.status = i
		}
	}
	return m
}

// WithVerb sets the footer verb, as in "Committing 3/7".
func (m ProgressModel) WithVerb(verb string) ProgressModel {
	m.verb = verb
	return m
}

// AddRow appends a row before the program starts. Missing fields are blank.
func (m *ProgressModel) AddRow(key string, fields []string) {
	row := Row{Key: key, Fields: make([]string, len(m.columns))}
	copy(row.Fields, fields)
	m.index[key] = len(m.rows)
	m.rows = append(m.rows, row)
}

func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case RowUpdateMsg:
		m.setFields(msg.Key, msg.Fields)
	case NoteMsg:
		m.notes = append(m.notes, msg.Text)
	case WorkDoneMsg:
		m.done = true
		return m, tea.Quit
	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if k := msg.String(); k == "ctrl+c" || k == "q" {
			m.interrupted = true
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *ProgressModel) setFields(key string, fields map[string]string) {
	i, ok := m.index[key]
	if !ok {
		return
	}
	for j, c := range m.columns {
		if v, ok := fields[c.Header]; ok {
			m.rows[i].Fields[j] = v
		}
	}
}

func (m ProgressModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	var b strings.Builder
	if m.title != "" {
		b.WriteString(TitleStyle.Render(m.title))
		b.WriteByte('\n')
	}

	cells := make([]string, len(m.columns))
	for i, c := range m.columns {
		cells[i] = HeaderStyle.Render(pad(c.Header, m.widths[i]))
	}
	b.WriteString(strings.Join(cells, "  "))
	b.WriteByte('\n')

	for _, row := range m.rows {
		for i, v := range row.Fields {
			v = pad(TruncateWithEllipsis(v, m.widths[i]), m.widths[i])
			if i == m.status {
				v = StatusStyle(strings.TrimSpace(v)).Render(v)
			}
			cells[i] = v
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		b.WriteByte('\n')
	}

	for _, note := range m.notes {
		b.WriteString(WarningStyle.Render(note))
		b.WriteByte('\n')
	}

	switch {
	case m.interrupted:
		b.WriteString("\nInterrupted; remaining work cancelled.\n")
	case !m.done:
		finished, total := m.Counts()
		fmt.Fprintf(&b, "\n%s %s %d/%d", m.spinner.View(), m.verb, finished, total)
		if summary := m.Summary(); summary != "" {
			b.WriteString("  " + summary)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Counts returns how many rows have a finished status, and the row count.
func (m ProgressModel) Counts() (finished, total int) {
	for _, s := range m.statuses() {
		if Finished(s) {
			finished++
		}
	}
	return finished, len(m.rows)
}

// Summary tallies finished rows by status, e.g. "2 committed, 1 failed".
func (m ProgressModel) Summary() string {
	tally := make(map[string]int)
	for _, s := range m.statuses() {
		if Finished(s) {
			tally[s]++
		}
	}
	var parts []string
	for _, s := range summaryOrder {
		if n := tally[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	return strings.Join(parts, ", ")
}

func (m ProgressModel) statuses() []string {
	if m.status < 0 {
		return nil
	}
	out := make([]string, len(m.rows))
	for i, row := range m.rows {
		out[i] = strings.TrimSpace(row.Fields[m.status])
	}
	return out
}

// Done reports whether the program has stopped for any reason.
func (m ProgressModel) Done() bool { return m.done }

// Interrupted reports whether the user quit before the work finished.
func (m ProgressModel) Interrupted() bool { return m.interrupted }

// Err returns the error delivered by ErrorMsg.
func (m ProgressModel) Err() error { return m.err }

func pad(s string, width int) string {
	if n := width - len(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// NonEmptyOrDash returns "-" for blank values so table cells never collapse.
func NonEmptyOrDash(value string) string {
	if value = strings.TrimSpace(value); value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis shortens value to at most n bytes.
func TruncateWithEllipsis(value string, n int) string {
	value = strings.TrimSpace(value)
	switch {
	case n <= 0:
		return ""
	case len(value) <= n:
		return value
	case n <= 3:
		return value[:n]
	}
	return value[:n-3] + "..."
}
