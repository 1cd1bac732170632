package tui

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// OutputMode selects how batch commands report per-row progress.
type OutputMode int

const (
	// ModeTUI redraws a live table while the batch runs.
	ModeTUI OutputMode = iota
	// ModePlain prints one table after the batch has finished.
	ModePlain
	// ModeJSON prints the result document only.
	ModeJSON
)

func (m OutputMode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModePlain:
		return "plain"
	case ModeJSON:
		return "json"
	}
	return "unknown"
}

// DetectMode picks JSON when asked for, the live table when out is an
// interactive terminal, and plain output otherwise.
func DetectMode(out io.Writer, noProgress, jsonOutput bool) OutputMode {
	switch {
	case jsonOutput:
		return ModeJSON
	case noProgress, !Interactive(out):
		return ModePlain
	}
	return ModeTUI
}

// Interactive reports whether w is a terminal that can redraw lines. CI
// runners and dumb terminals count as non-interactive.
func Interactive(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	fd := f.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return false
	}
	if _, ci := os.LookupEnv("CI"); ci {
		return false
	}
	return !strings.EqualFold(os.Getenv("TERM"), "dumb")
}
