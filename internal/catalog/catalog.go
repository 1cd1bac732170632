package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned (wrapped) when a channel or media asset is missing.
var ErrNotFound = errors.New("not found")

// ChannelKind enumerates broadcast line types.
type ChannelKind string

const (
	ChannelTV    ChannelKind = "tv"
	ChannelRadio ChannelKind = "radio"
)

// MediaKind enumerates catalog entry types.
type MediaKind string

const (
	MediaVideo  MediaKind = "video"
	MediaAudio  MediaKind = "audio"
	MediaJingle MediaKind = "jingle"
	MediaAd     MediaKind = "ad"
	MediaLive   MediaKind = "live"
)

// Channel identifies a broadcast line. The scheduler only reads channels.
type Channel struct {
	ID   string      `json:"id" yaml:"id"`
	Name string      `json:"name" yaml:"name"`
	Kind ChannelKind `json:"kind" yaml:"kind"`
}

// MediaAsset is a catalog entry. DurationMs == 0 means the duration is unresolved.
type MediaAsset struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Kind         MediaKind `json:"kind"`
	DurationMs   int64     `json:"duration_ms"`
	SourceURL    string    `json:"source_url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Active       bool      `json:"active"`
}

// Catalog is the slice of the media catalog the scheduler depends on.
type Catalog interface {
	Get(ctx context.Context, id string) (MediaAsset, error)
	UpdateDuration(ctx context.Context, id string, durationMs int64) error
}

// Library extends Catalog with the administrative operations used by the
// media commands and the HTTP API.
type Library interface {
	Catalog
	Add(ctx context.Context, asset MediaAsset) (MediaAsset, error)
	List(ctx context.Context) ([]MediaAsset, error)
}

// Directory lists the channels known to the deployment.
type Directory interface {
	List(ctx context.Context) ([]Channel, error)
	Get(ctx context.Context, id string) (Channel, error)
}

// ValidChannelKind reports whether kind is a known channel kind.
func ValidChannelKind(kind ChannelKind) bool {
	switch kind {
	case ChannelTV, ChannelRadio:
		return true
	}
	return false
}

// ValidMediaKind reports whether kind is a known media kind.
func ValidMediaKind(kind MediaKind) bool {
	switch kind {
	case MediaVideo, MediaAudio, MediaJingle, MediaAd, MediaLive:
		return true
	}
	return false
}

// ParseMediaKind normalizes user input into a MediaKind.
func ParseMediaKind(value string) (MediaKind, error) {
	kind := MediaKind(strings.ToLower(strings.TrimSpace(value)))
	if kind == "" {
		return MediaVideo, nil
	}
	if !ValidMediaKind(kind) {
		return "", fmt.Errorf("unknown media kind %q", value)
	}
	return kind, nil
}

// NotFoundf wraps ErrNotFound with a formatted description.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// StaticDirectory serves channels from an in-memory slice, typically the
// channels declared in the project config.
type StaticDirectory struct {
	channels []Channel
}

// NewStaticDirectory copies channels into a directory.
func NewStaticDirectory(channels []Channel) *StaticDirectory {
	return &StaticDirectory{channels: append([]Channel(nil), channels...)}
}

// List returns every configured channel in declaration order.
func (d *StaticDirectory) List(context.Context) ([]Channel, error) {
	return append([]Channel(nil), d.channels...), nil
}

// Get returns the channel with the given id.
func (d *StaticDirectory) Get(_ context.Context, id string) (Channel, error) {
	for _, ch := range d.channels {
		if ch.ID == id {
			return ch, nil
		}
	}
	return Channel{}, NotFoundf("channel %s", id)
}
