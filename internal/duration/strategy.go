package duration

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"playout/internal/catalog"
	"playout/internal/probe"
	"playout/internal/provider"
)

// Strategy names, in default chain order.
const (
	SourceManual  = "manual"
	SourceCatalog = "catalog"
	SourceProbe   = "probe"
	SourceRemote  = "remote"
	SourceDefault = "default"
)

// Reference is anything that can be turned into a duration: a catalog asset,
// an external link, a local file, and/or an explicit user-entered value.
type Reference struct {
	Asset     *catalog.MediaAsset
	URL       string
	LocalPath string
	ManualMs  int64
}

// String describes the reference for logs and warnings.
func (r Reference) String() string {
	switch {
	case r.Asset != nil && r.Asset.ID != "":
		return "media " + r.Asset.ID
	case r.URL != "":
		return r.URL
	case r.LocalPath != "":
		return r.LocalPath
	}
	return "manual entry"
}

func (r Reference) key() string {
	switch {
	case r.Asset != nil && r.Asset.ID != "":
		return "asset:" + r.Asset.ID
	case r.URL != "":
		return "url:" + r.URL
	case r.LocalPath != "":
		return "path:" + r.LocalPath
	}
	return ""
}

// Result is the tagged outcome of one strategy.
type Result struct {
	Ms       int64  `json:"ms,omitempty"`
	Resolved bool   `json:"resolved"`
	Reason   string `json:"reason,omitempty"`
}

// Resolved tags a successful lookup.
func Resolved(ms int64) Result { return Result{Ms: ms, Resolved: true} }

// Unresolved tags a failed lookup with a short reason.
func Unresolved(reason string) Result { return Result{Reason: reason} }

// Strategy is one step of the fallback chain.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, ref Reference) Result
}

// Manual honours an explicit, non-zero user-entered duration.
type Manual struct{}

func (Manual) Name() string { return SourceManual }

func (Manual) Resolve(_ context.Context, ref Reference) Result {
	if ref.ManualMs > 0 {
		return Resolved(ref.ManualMs)
	}
	return Unresolved("no manual duration")
}

// Stored uses the duration already recorded on the catalog asset.
type Stored struct{}

func (Stored) Name() string { return SourceCatalog }

func (Stored) Resolve(_ context.Context, ref Reference) Result {
	if ref.Asset == nil {
		return Unresolved("not a catalog asset")
	}
	if ref.Asset.DurationMs > 0 {
		return Resolved(ref.Asset.DurationMs)
	}
	return Unresolved("catalog duration unset")
}

// Prober reads metadata from a local media file.
type Prober interface {
	Probe(ctx context.Context, target string) (probe.Metadata, error)
}

// LocalProbe inspects local media files with a bounded wait.
type LocalProbe struct {
	Prober  Prober
	Timeout time.Duration
}

func (LocalProbe) Name() string { return SourceProbe }

func (s LocalProbe) Resolve(ctx context.Context, ref Reference) Result {
	if s.Prober == nil {
		return Unresolved("prober not configured")
	}
	target := localTarget(ref)
	if target == "" {
		return Unresolved("no local file")
	}
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	meta, err := s.Prober.Probe(ctx, target)
	if err != nil {
		return Unresolved(failureReason(err))
	}
	return Resolved(meta.DurationMs)
}

// Provider looks up metadata for videos hosted elsewhere.
type Provider interface {
	Supports(rawURL string) bool
	Probe(ctx context.Context, rawURL string) (provider.Metadata, error)
}

// Remote asks an external video host for the duration.
type Remote struct {
	Provider Provider
	Timeout  time.Duration
}

func (Remote) Name() string { return SourceRemote }

func (s Remote) Resolve(ctx context.Context, ref Reference) Result {
	if s.Provider == nil {
		return Unresolved("provider not configured")
	}
	link := remoteTarget(ref)
	if link == "" || !s.Provider.Supports(link) {
		return Unresolved("no recognised video link")
	}
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	meta, err := s.Provider.Probe(ctx, link)
	if err != nil {
		return Unresolved(failureReason(err))
	}
	if meta.DurationMs <= 0 {
		return Unresolved("provider reported no duration")
	}
	return Resolved(meta.DurationMs)
}

func localTarget(ref Reference) string {
	if ref.LocalPath != "" {
		return ref.LocalPath
	}
	for _, candidate := range []string{ref.URL, assetSource(ref)} {
		if path, ok := localPath(candidate); ok {
			return path
		}
	}
	return ""
}

func remoteTarget(ref Reference) string {
	if isRemote(ref.URL) {
		return ref.URL
	}
	if src := assetSource(ref); isRemote(src) {
		return src
	}
	return ""
}

func assetSource(ref Reference) string {
	if ref.Asset == nil {
		return ""
	}
	return ref.Asset.SourceURL
}

func localPath(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if strings.HasPrefix(value, "file://") {
		u, err := url.Parse(value)
		if err != nil || u.Path == "" {
			return "", false
		}
		return u.Path, true
	}
	if strings.Contains(value, "://") {
		return "", false
	}
	return value, true
}

func isRemote(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = probe.DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	return fmt.Sprint(err)
}
