package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

const clearLine = "\r\033[K"

// Spinner draws a single activity line while one blocking step runs, such as
// an ffprobe call or a remote duration lookup.
type Spinner struct {
	w       io.Writer
	label   string
	started time.Time

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// StartSpinner begins redrawing label on w until Stop is called.
func StartSpinner(w io.Writer, label string) *Spinner {
	s := &Spinner{
		w:       w,
		label:   label,
		started: time.Now(),
		stop:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop(spinner.Dot)
	return s
}

// Stop clears the line. It is safe to call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.wg.Wait()
		fmt.Fprint(s.w, clearLine)
	})
}

func (s *Spinner) loop(style spinner.Spinner) {
	defer s.wg.Done()
	ticker := time.NewTicker(style.FPS)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			glyph := style.Frames[frame%len(style.Frames)]
			fmt.Fprintf(s.w, "%s%s %s %s", clearLine, glyph, s.label, elapsed(time.Since(s.started)))
		}
	}
}

func elapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Truncate(time.Second).String()
}
