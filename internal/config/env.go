package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override the YAML configuration.
const (
	EnvDatabaseURL   = "DATABASE_URL"
	EnvRedisURL      = "REDIS_URL"
	EnvYouTubeAPIKey = "YOUTUBE_API_KEY"
	EnvAddr          = "PLAYOUT_ADDR"
	EnvStoreBackend  = "PLAYOUT_STORE"
)

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays secrets and deployment settings from the environment.
// lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvDatabaseURL); ok {
		c.Store.DSN = v
		if c.Store.Backend == BackendFile {
			c.Store.Backend = BackendPostgres
		}
	}
	if v, ok := get(EnvStoreBackend); ok {
		c.Store.Backend = strings.ToLower(v)
	}
	if v, ok := get(EnvRedisURL); ok {
		c.Events.RedisURL = v
	}
	if v, ok := get(EnvYouTubeAPIKey); ok {
		c.Providers.YouTube.APIKey = v
	}
	if v, ok := get(EnvAddr); ok {
		c.Server.Addr = v
	}
}

const redacted = "REDACTED"

// Redacted returns a copy with credentials masked, for display.
func (c Config) Redacted() Config {
	c.Store.DSN = redactURL(c.Store.DSN)
	c.Events.RedisURL = redactURL(c.Events.RedisURL)
	if c.Providers.YouTube.APIKey != "" {
		c.Providers.YouTube.APIKey = redacted
	}
	c.Channels = append([]ChannelConfig(nil), c.Channels...)
	return c
}

// redactURL masks the password of a URL-style DSN. Key/value DSNs are
// masked whole.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return redacted
	}
	if _, has := u.User.Password(); has {
		u.User = url.UserPassword(u.User.Username(), redacted)
	}
	return u.String()
}
