package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a single metadata probe.
const DefaultTimeout = 15 * time.Second

// ErrNoDuration is returned when the probed container reports no usable duration.
var ErrNoDuration = errors.New("no duration in probe output")

// Logger keeps the subset of log.Logger used by the prober.
type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Metadata is the subset of ffprobe output the scheduler cares about.
type Metadata struct {
	FormatName     string `json:"format_name,omitempty"`
	FormatLongName string `json:"format_long_name,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
	StreamCount    int    `json:"stream_count"`
}

type ffprobeOutput struct {
	Format  ffprobeFormat     `json:"format"`
	Streams []json.RawMessage `json:"streams"`
}

type ffprobeFormat struct {
	FormatName     string `json:"format_name"`
	FormatLongName string `json:"format_long_name"`
	Duration       string `json:"duration"`
}

// FFProbe reads container metadata from local media files.
type FFProbe struct {
	Binary  string
	Runner  Runner
	Timeout time.Duration
	Logger  Logger
}

// NewFFProbe returns a prober using the given binary path ("ffprobe" when empty).
func NewFFProbe(binary string, runner Runner) *FFProbe {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	if runner == nil {
		runner = CmdRunner{}
	}
	return &FFProbe{Binary: binary, Runner: runner, Timeout: DefaultTimeout, Logger: noopLogger{}}
}

// Probe runs ffprobe against target under the configured timeout.
func (p *FFProbe) Probe(ctx context.Context, target string) (Metadata, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-print_format", "json",
		target,
	}

	p.logf("ffprobe target=%s", target)
	result, err := p.Runner.Run(ctx, p.Binary, args, RunOptions{MaxOutput: DefaultMaxOutput})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Metadata{}, fmt.Errorf("ffprobe %s: %w", target, ctxErr)
	}
	if err != nil {
		stderr := strings.TrimSpace(string(result.Stderr))
		if stderr != "" {
			return Metadata{}, fmt.Errorf("ffprobe: %w: %s", err, stderr)
		}
		return Metadata{}, fmt.Errorf("ffprobe: %w", err)
	}
	if result.Truncated {
		return Metadata{}, fmt.Errorf("ffprobe %s: output exceeds %d bytes", target, DefaultMaxOutput)
	}

	return ParseOutput(result.Stdout)
}

// ParseOutput decodes ffprobe's JSON output.
func ParseOutput(raw []byte) (Metadata, error) {
	if len(raw) == 0 {
		return Metadata{}, errors.New("ffprobe produced no output")
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Metadata{}, fmt.Errorf("decode ffprobe output: %w", err)
	}

	meta := Metadata{
		FormatName:     parsed.Format.FormatName,
		FormatLongName: parsed.Format.FormatLongName,
		StreamCount:    len(parsed.Streams),
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(parsed.Format.Duration), 64)
	if err != nil || seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return meta, ErrNoDuration
	}
	meta.DurationMs = int64(math.Round(seconds * 1000))
	return meta, nil
}

func (p *FFProbe) logf(format string, args ...any) {
	if p.Logger == nil {
		return
	}
	p.Logger.Printf(format, args...)
}
