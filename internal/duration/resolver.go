package duration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"playout/internal/catalog"
)

// DefaultMs is the last-resort duration applied when every strategy fails.
const DefaultMs int64 = 180000

// Logger keeps the subset of log.Logger used by the resolver.
type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Attempt records why one strategy did not produce a duration.
type Attempt struct {
	Strategy string `json:"strategy"`
	Reason   string `json:"reason"`
}

// ResolutionFailure is a warning: no strategy resolved the reference and the
// default duration was applied. It is reported, never returned as the error.
type ResolutionFailure struct {
	Reference string    `json:"reference"`
	Attempts  []Attempt `json:"attempts"`
	DefaultMs int64     `json:"default_ms"`
}

func (f *ResolutionFailure) Error() string {
	parts := make([]string, 0, len(f.Attempts))
	for _, a := range f.Attempts {
		parts = append(parts, a.Strategy+": "+a.Reason)
	}
	return fmt.Sprintf("duration of %s unresolved (%s); using default %dms",
		f.Reference, strings.Join(parts, "; "), f.DefaultMs)
}

// Resolution is the authoritative duration for a reference.
type Resolution struct {
	DurationMs int64              `json:"duration_ms"`
	Source     string             `json:"source"`
	Warning    *ResolutionFailure `json:"warning,omitempty"`
}

// TraceEntry is one strategy's outcome as reported by Trace.
type TraceEntry struct {
	Strategy string `json:"strategy"`
	Result   Result `json:"result"`
}

// Resolver walks an ordered list of strategies; the first success wins.
type Resolver struct {
	Strategies []Strategy
	DefaultMs  int64
	Catalog    catalog.Catalog
	WriteBack  bool
	Logger     Logger

	group singleflight.Group
}

// Options configures NewResolver.
type Options struct {
	Prober    Prober
	Provider  Provider
	Catalog   catalog.Catalog
	DefaultMs int64
	Timeout   Timeouts
	WriteBack bool
	Logger    Logger
}

// Timeouts bounds the asynchronous strategies.
type Timeouts struct {
	Probe  time.Duration
	Remote time.Duration
}

// NewResolver builds the standard chain: manual, catalog, local probe, remote.
func NewResolver(opts Options) *Resolver {
	strategies := []Strategy{Manual{}, Stored{}}
	if opts.Prober != nil {
		strategies = append(strategies, LocalProbe{Prober: opts.Prober, Timeout: opts.Timeout.Probe})
	}
	if opts.Provider != nil {
		strategies = append(strategies, Remote{Provider: opts.Provider, Timeout: opts.Timeout.Remote})
	}
	def := opts.DefaultMs
	if def <= 0 {
		def = DefaultMs
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Resolver{
		Strategies: strategies,
		DefaultMs:  def,
		Catalog:    opts.Catalog,
		WriteBack:  opts.WriteBack,
		Logger:     logger,
	}
}

// Resolve returns the first successful strategy's duration or the default
// with a warning. The error is non-nil only when ctx is done.
func (r *Resolver) Resolve(ctx context.Context, ref Reference) (Resolution, error) {
	if ref.ManualMs > 0 || ref.key() == "" {
		return r.resolve(ctx, ref)
	}
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}
	// The shared lookup ignores any one caller's cancellation; strategy
	// timeouts bound it. Each caller stops waiting when its own ctx ends.
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(ref.key(), func() (any, error) {
		return r.resolve(shared, ref)
	})
	select {
	case <-ctx.Done():
		return Resolution{}, ctx.Err()
	case out := <-ch:
		if out.Err != nil {
			return Resolution{}, out.Err
		}
		return out.Val.(Resolution), nil
	}
}

func (r *Resolver) resolve(ctx context.Context, ref Reference) (Resolution, error) {
	var attempts []Attempt
	for _, s := range r.Strategies {
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}
		res := s.Resolve(ctx, ref)
		if res.Resolved && res.Ms > 0 {
			r.logf("duration %s: %dms via %s", ref, res.Ms, s.Name())
			r.writeBack(ctx, ref, s.Name(), res.Ms)
			return Resolution{DurationMs: res.Ms, Source: s.Name()}, nil
		}
		attempts = append(attempts, Attempt{Strategy: s.Name(), Reason: res.Reason})
	}
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}

	warning := &ResolutionFailure{Reference: ref.String(), Attempts: attempts, DefaultMs: r.defaultMs()}
	r.logf("warning: %v", warning)
	return Resolution{DurationMs: r.defaultMs(), Source: SourceDefault, Warning: warning}, nil
}

// Trace runs every strategy without short-circuiting or writing back.
func (r *Resolver) Trace(ctx context.Context, ref Reference) ([]TraceEntry, error) {
	entries := make([]TraceEntry, 0, len(r.Strategies))
	for _, s := range r.Strategies {
		if err := ctx.Err(); err != nil {
			return entries, err
		}
		entries = append(entries, TraceEntry{Strategy: s.Name(), Result: s.Resolve(ctx, ref)})
	}
	return entries, nil
}

func (r *Resolver) writeBack(ctx context.Context, ref Reference, source string, ms int64) {
	if !r.WriteBack || r.Catalog == nil {
		return
	}
	if source != SourceProbe && source != SourceRemote {
		return
	}
	if ref.Asset == nil || ref.Asset.ID == "" || ref.Asset.DurationMs > 0 {
		return
	}
	if err := r.Catalog.UpdateDuration(ctx, ref.Asset.ID, ms); err != nil {
		r.logf("write back duration for %s: %v", ref.Asset.ID, err)
		return
	}
	r.logf("stored duration %dms on media %s", ms, ref.Asset.ID)
}

func (r *Resolver) defaultMs() int64 {
	if r.DefaultMs > 0 {
		return r.DefaultMs
	}
	return DefaultMs
}

func (r *Resolver) logf(format string, args ...any) {
	if r.Logger == nil {
		return
	}
	r.Logger.Printf(format, args...)
}
