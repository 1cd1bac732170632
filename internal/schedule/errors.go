package schedule

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is wrapped by stores when an item id is unknown.
var ErrNotFound = errors.New("not found")

// ValidationError rejects a command before anything is written.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictError reports every existing item overlapping a candidate interval.
type ConflictError struct {
	Candidate Interval `json:"candidate"`
	Conflicts []Item   `json:"conflicts"`
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, it := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s %s-%s", describe(it), it.Start, it.End()))
	}
	return fmt.Sprintf("slot %s conflicts with %s", e.Candidate, strings.Join(parts, ", "))
}

// NotFoundError names the missing channel, media asset or item.
type NotFoundError struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// DateOutcome is the result of committing one target date of a duplication.
type DateOutcome struct {
	Date     Date   `json:"date"`
	Inserted []Item `json:"inserted"`
	Removed  []Item `json:"removed,omitempty"`
	Skipped  []Item `json:"skipped,omitempty"`
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
}

// OK reports whether the date committed.
func (o DateOutcome) OK() bool { return o.Err == nil }

// PartialBatchFailure is returned when some target dates of a duplication
// committed and others did not. Committed dates are not rolled back.
type PartialBatchFailure struct {
	Outcomes []DateOutcome `json:"outcomes"`
}

func (e *PartialBatchFailure) Error() string {
	failed := e.Failed()
	parts := make([]string, 0, len(failed))
	for _, o := range failed {
		parts = append(parts, fmt.Sprintf("%s: %v", o.Date, o.Err))
	}
	return fmt.Sprintf("%d of %d dates failed (%s)", len(failed), len(e.Outcomes), strings.Join(parts, "; "))
}

// Failed returns the outcomes that did not commit.
func (e *PartialBatchFailure) Failed() []DateOutcome {
	var out []DateOutcome
	for _, o := range e.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Succeeded returns the outcomes that committed.
func (e *PartialBatchFailure) Succeeded() []DateOutcome {
	var out []DateOutcome
	for _, o := range e.Outcomes {
		if o.OK() {
			out = append(out, o)
		}
	}
	return out
}

func describe(it Item) string {
	if it.Title != "" {
		return fmt.Sprintf("%q", it.Title)
	}
	return it.ID
}
