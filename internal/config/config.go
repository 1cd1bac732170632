package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"playout/internal/catalog"
	"playout/internal/duration"
)

// Store backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config captures the scheduling configuration for a project.
type Config struct {
	Version   int             `yaml:"version"`
	Timezone  string          `yaml:"timezone"`
	Channels  []ChannelConfig `yaml:"channels"`
	Durations DurationsConfig `yaml:"durations"`
	Store     StoreConfig     `yaml:"store"`
	Events    EventsConfig    `yaml:"events"`
	Providers ProvidersConfig `yaml:"providers"`
	Tools     ToolsConfig     `yaml:"tools"`
	Server    ServerConfig    `yaml:"server"`
}

// ChannelConfig declares one broadcast channel.
type ChannelConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

// DurationsConfig controls duration resolution.
type DurationsConfig struct {
	Default      string        `yaml:"default"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	WriteBack    *bool         `yaml:"writeback,omitempty"`
}

// StoreConfig selects where timelines live.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn,omitempty"`
}

// EventsConfig enables change notifications over Redis pub/sub.
type EventsConfig struct {
	RedisURL string `yaml:"redis_url,omitempty"`
	Channel  string `yaml:"channel"`
}

// ProvidersConfig groups external metadata providers.
type ProvidersConfig struct {
	YouTube YouTubeConfig `yaml:"youtube"`
}

// YouTubeConfig configures the YouTube Data API client.
type YouTubeConfig struct {
	APIKey  string        `yaml:"api_key,omitempty"`
	BaseURL string        `yaml:"base_url,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
}

// ToolsConfig pins external binaries.
type ToolsConfig struct {
	FFProbe        string `yaml:"ffprobe,omitempty"`
	MinimumFFProbe string `yaml:"minimum_ffprobe,omitempty"`
}

// ServerConfig configures `playout serve`.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version:  1,
		Timezone: "UTC",
		Channels: []ChannelConfig{
			{ID: "tv-1", Name: "Channel One", Kind: string(catalog.ChannelTV)},
		},
		Durations: DurationsConfig{
			Default:      "00:03:00",
			ProbeTimeout: 15 * time.Second,
			WriteBack:    boolPtr(true),
		},
		Store: StoreConfig{
			Backend: BackendFile,
		},
		Events: EventsConfig{
			Channel: "playout",
		},
		Providers: ProvidersConfig{
			YouTube: YouTubeConfig{Timeout: 10 * time.Second},
		},
		Server: ServerConfig{
			Addr:         ":8080",
			PollInterval: 5 * time.Second,
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	cfg.Channels = nil
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when the
// YAML omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if strings.TrimSpace(c.Timezone) == "" {
		c.Timezone = defaults.Timezone
	}
	if len(c.Channels) == 0 {
		c.Channels = defaults.Channels
	}
	for i := range c.Channels {
		if c.Channels[i].Kind == "" {
			c.Channels[i].Kind = string(catalog.ChannelTV)
		}
		if c.Channels[i].Name == "" {
			c.Channels[i].Name = c.Channels[i].ID
		}
	}
	if c.Durations.Default == "" {
		c.Durations.Default = defaults.Durations.Default
	}
	if c.Durations.ProbeTimeout == 0 {
		c.Durations.ProbeTimeout = defaults.Durations.ProbeTimeout
	}
	if c.Durations.WriteBack == nil {
		c.Durations.WriteBack = boolPtr(true)
	}
	if c.Store.Backend == "" {
		c.Store.Backend = defaults.Store.Backend
	}
	if c.Events.Channel == "" {
		c.Events.Channel = defaults.Events.Channel
	}
	if c.Providers.YouTube.Timeout == 0 {
		c.Providers.YouTube.Timeout = defaults.Providers.YouTube.Timeout
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.PollInterval == 0 {
		c.Server.PollInterval = defaults.Server.PollInterval
	}
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

// WriteBackEnabled reports whether resolved durations are stored on the
// media asset.
func (c Config) WriteBackEnabled() bool {
	if c.Durations.WriteBack == nil {
		return true
	}
	return *c.Durations.WriteBack
}

// DefaultDurationMs parses durations.default.
func (c Config) DefaultDurationMs() (int64, error) {
	ms, err := duration.ParseHMS(c.Durations.Default)
	if err != nil {
		return 0, fmt.Errorf("durations.default: %w", err)
	}
	if ms <= 0 {
		return 0, errors.New("durations.default must be greater than zero")
	}
	return ms, nil
}

// Location loads the configured timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ChannelList converts the configured channels.
func (c Config) ChannelList() []catalog.Channel {
	out := make([]catalog.Channel, 0, len(c.Channels))
	for _, ch := range c.Channels {
		out = append(out, catalog.Channel{
			ID:   strings.TrimSpace(ch.ID),
			Name: ch.Name,
			Kind: catalog.ChannelKind(strings.ToLower(ch.Kind)),
		})
	}
	return out
}

func boolPtr(v bool) *bool {
	return &v
}
