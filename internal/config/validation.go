package config

import (
	"fmt"
	"net/url"
	"strings"

	"playout/internal/catalog"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// ValidateStrict runs all validations against the config and returns
// structured results.
func (c Config) ValidateStrict() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateChannels()...)
	results = append(results, c.validateTimezone()...)
	results = append(results, c.validateDurations()...)
	results = append(results, c.validateStore()...)
	results = append(results, c.validateEvents()...)
	results = append(results, c.validateServer()...)
	return results
}

// HasErrors reports whether any result is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

func (c Config) validateChannels() []ValidationResult {
	var results []ValidationResult
	if len(c.Channels) == 0 {
		return []ValidationResult{{Level: "error", Message: "at least one channel is required"}}
	}
	seen := make(map[string]int, len(c.Channels))
	for i, ch := range c.Channels {
		id := strings.TrimSpace(ch.ID)
		if id == "" {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("channels[%d]: id is required", i),
			})
			continue
		}
		if prev, ok := seen[id]; ok {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("channels[%d]: id %q already used by channels[%d]", i, id, prev),
			})
		}
		seen[id] = i
		if !catalog.ValidChannelKind(catalog.ChannelKind(strings.ToLower(ch.Kind))) {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("channel %q: kind must be tv or radio, got %q", id, ch.Kind),
			})
		}
	}
	return results
}

func (c Config) validateTimezone() []ValidationResult {
	if _, err := c.Location(); err != nil {
		return []ValidationResult{{Level: "error", Message: err.Error()}}
	}
	return nil
}

func (c Config) validateDurations() []ValidationResult {
	var results []ValidationResult
	if _, err := c.DefaultDurationMs(); err != nil {
		results = append(results, ValidationResult{Level: "error", Message: err.Error()})
	}
	if c.Durations.ProbeTimeout < 0 {
		results = append(results, ValidationResult{Level: "error", Message: "durations.probe_timeout must be >= 0"})
	}
	if c.Providers.YouTube.APIKey == "" {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: "providers.youtube.api_key is empty; YouTube links fall back to the default duration",
		})
	}
	return results
}

func (c Config) validateStore() []ValidationResult {
	switch c.Store.Backend {
	case BackendFile, BackendMemory:
		return nil
	case BackendPostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return []ValidationResult{{
				Level:   "error",
				Message: "store.dsn (or DATABASE_URL) is required for the postgres backend",
			}}
		}
		return nil
	}
	return []ValidationResult{{
		Level:   "error",
		Message: fmt.Sprintf("store.backend must be file, postgres or memory, got %q", c.Store.Backend),
	}}
}

func (c Config) validateEvents() []ValidationResult {
	raw := strings.TrimSpace(c.Events.RedisURL)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("events.redis_url %q must be a redis:// or rediss:// URL", raw),
		}}
	}
	return nil
}

func (c Config) validateServer() []ValidationResult {
	if c.Server.PollInterval < 0 {
		return []ValidationResult{{Level: "error", Message: "server.poll_interval must be >= 0"}}
	}
	return nil
}
