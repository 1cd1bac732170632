package csvplan

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError is one problem with one lineup row. Line is the 1-based
// line in the source file.
type ValidationError struct {
	Line    int
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	if e.Field != "" {
		b.WriteString(e.Field + ": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// ValidationErrors collects every problem in a lineup so one run reports
// them all. Rows with problems are still returned by the loader.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	switch len(errs) {
	case 0:
		return "lineup is invalid"
	case 1:
		return errs[0].Error()
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d lineup problems: %s", len(errs), strings.Join(msgs, "; "))
}

// Lines returns the distinct source lines that have problems, ascending.
func (errs ValidationErrors) Lines() []int {
	seen := make(map[int]bool, len(errs))
	var lines []int
	for _, e := range errs {
		if !seen[e.Line] {
			seen[e.Line] = true
			lines = append(lines, e.Line)
		}
	}
	sort.Ints(lines)
	return lines
}
