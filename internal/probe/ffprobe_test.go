package probe

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

type fakeRunner struct {
	stdout    []byte
	stderr    []byte
	err       error
	block     bool
	truncated bool
	calls     [][]string
}

func (f *fakeRunner) Run(ctx context.Context, command string, args []string, _ RunOptions) (RunResult, error) {
	f.calls = append(f.calls, append([]string{filepath.Base(command)}, args...))
	if f.block {
		<-ctx.Done()
		return RunResult{}, ctx.Err()
	}
	return RunResult{Stdout: f.stdout, Stderr: f.stderr, Truncated: f.truncated}, f.err
}

func TestProbeParsesDuration(t *testing.T) {
	runner := &fakeRunner{stdout: []byte(`{"format":{"format_name":"mov,mp4","duration":"61.2345"},"streams":[{},{}]}`)}
	p := NewFFProbe("", runner)

	meta, err := p.Probe(context.Background(), "/media/clip.mp4")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if meta.DurationMs != 61235 {
		t.Fatalf("expected 61235ms, got %d", meta.DurationMs)
	}
	if meta.StreamCount != 2 {
		t.Fatalf("expected 2 streams, got %d", meta.StreamCount)
	}
	if len(runner.calls) != 1 || runner.calls[0][0] != "ffprobe" {
		t.Fatalf("unexpected runner calls: %v", runner.calls)
	}
	if last := runner.calls[0][len(runner.calls[0])-1]; last != "/media/clip.mp4" {
		t.Fatalf("expected target as last argument, got %q", last)
	}
}

func TestProbeMissingDuration(t *testing.T) {
	runner := &fakeRunner{stdout: []byte(`{"format":{"format_name":"image2"}}`)}
	p := NewFFProbe("ffprobe", runner)

	_, err := p.Probe(context.Background(), "still.png")
	if !errors.Is(err, ErrNoDuration) {
		t.Fatalf("expected ErrNoDuration, got %v", err)
	}
}

func TestProbeTimeout(t *testing.T) {
	runner := &fakeRunner{block: true}
	p := NewFFProbe("ffprobe", runner)
	p.Timeout = 20 * time.Millisecond

	_, err := p.Probe(context.Background(), "stalled.mp4")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestProbeCommandFailureIncludesStderr(t *testing.T) {
	runner := &fakeRunner{stderr: []byte("moov atom not found\n"), err: errors.New("exit status 1")}
	p := NewFFProbe("ffprobe", runner)

	_, err := p.Probe(context.Background(), "broken.mp4")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "ffprobe: exit status 1: moov atom not found" {
		t.Fatalf("unexpected error text: %q", got)
	}
}

func TestCappedBufferDropsOverflow(t *testing.T) {
	b := &cappedBuffer{limit: 5}
	for _, chunk := range []string{"abc", "defg", "hi"} {
		n, err := b.Write([]byte(chunk))
		if err != nil || n != len(chunk) {
			t.Fatalf("Write(%q) = %d, %v", chunk, n, err)
		}
	}
	if string(b.buf) != "abcde" || !b.dropped {
		t.Fatalf("buf = %q dropped = %v", b.buf, b.dropped)
	}
}

func TestProbeRejectsTruncatedOutput(t *testing.T) {
	runner := &fakeRunner{stdout: []byte(`{"format":{"duration":"12.5"}}`), truncated: true}
	p := NewFFProbe("ffprobe", runner)

	if _, err := p.Probe(context.Background(), "huge.mkv"); err == nil {
		t.Fatal("expected error for truncated output")
	}
}
