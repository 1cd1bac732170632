package probe

import (
	"context"
	"os/exec"
	"time"
)

// DefaultMaxOutput caps how much of each stream a command may leave in
// memory. ffprobe's JSON for a normal file is a few kilobytes.
const DefaultMaxOutput = 4 << 20

// RunOptions tunes a single command execution.
type RunOptions struct {
	// MaxOutput caps captured stdout and stderr separately; output past
	// the cap is dropped and RunResult.Truncated is set.
	MaxOutput int
	// WaitDelay bounds how long Run waits for output pipes to close after
	// ctx has killed the process.
	WaitDelay time.Duration
}

// RunResult is the captured output of a finished command.
type RunResult struct {
	Stdout    []byte
	Stderr    []byte
	Truncated bool
}

// Runner executes external commands. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error)
}

// CmdRunner runs commands with os/exec. The process is killed when ctx ends.
type CmdRunner struct{}

func (CmdRunner) Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error) {
	limit := opts.MaxOutput
	if limit <= 0 {
		limit = DefaultMaxOutput
	}
	stdout := &cappedBuffer{limit: limit}
	stderr := &cappedBuffer{limit: limit}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = opts.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = time.Second
	}

	err := cmd.Run()
	return RunResult{
		Stdout:    stdout.buf,
		Stderr:    stderr.buf,
		Truncated: stdout.dropped || stderr.dropped,
	}, err
}

// cappedBuffer keeps the first limit bytes written to it and reports the
// rest as written so the child process never blocks on a full pipe.
type cappedBuffer struct {
	buf     []byte
	limit   int
	dropped bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - len(b.buf)
	if room < len(p) {
		b.dropped = true
		if room > 0 {
			b.buf = append(b.buf, p[:room]...)
		}
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

var _ Runner = CmdRunner{}
