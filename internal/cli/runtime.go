package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"playout/internal/catalog"
	"playout/internal/config"
	"playout/internal/duration"
	"playout/internal/events"
	"playout/internal/logx"
	"playout/internal/paths"
	"playout/internal/probe"
	"playout/internal/provider"
	"playout/internal/schedule"
	"playout/internal/store/filestore"
	"playout/internal/store/memstore"
	"playout/internal/store/pgstore"
	"playout/internal/tools"
)

// backingStore is what every store backend offers the commands.
type backingStore interface {
	schedule.Store
	Media() catalog.Library
	Channels() catalog.Directory
}

// runtime bundles the collaborators a command needs. Close releases them
// in reverse order of acquisition.
type runtime struct {
	paths    paths.ProjectPaths
	cfg      config.Config
	logger   *logrus.Logger
	store    backingStore
	resolver *duration.Resolver
	events   events.Publisher
	svc      *schedule.Service
	location *time.Location

	// pings report backend reachability for check and /health.
	pings   []componentPing
	closers []func() error
}

// componentPing checks one backend. Local stores carry no ping.
type componentPing struct {
	name string
	ping func(ctx context.Context) error
}

type runtimeOptions struct {
	// logger overrides the file logger (serve logs JSON to stderr).
	logger *logrus.Logger
}

func loadProjectConfig() (paths.ProjectPaths, config.Config, error) {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return paths.ProjectPaths{}, config.Config{}, err
	}
	if err := config.LoadDotEnv(pp.EnvFile); err != nil {
		return paths.ProjectPaths{}, config.Config{}, err
	}

	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return paths.ProjectPaths{}, config.Config{}, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.ApplyDefaults()
	return paths.ApplyConfig(pp, cfg), cfg, nil
}

func ensureProjectDirs(pp paths.ProjectPaths) error {
	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return fmt.Errorf("stat project dir: %w", err)
	}
	if !exists {
		return fmt.Errorf("project directory does not exist: %s", pp.Root)
	}

	if err := pp.EnsureMetaDirs(); err != nil {
		return err
	}

	return nil
}

func openRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	pp, cfg, err := loadProjectConfig()
	if err != nil {
		return nil, err
	}
	if err := ensureProjectDirs(pp); err != nil {
		return nil, err
	}

	rt := &runtime{paths: pp, cfg: cfg, events: events.Nop{}}

	if opts.logger != nil {
		rt.logger = opts.logger
	} else {
		logger, closer, err := logx.New(pp)
		if err != nil {
			return nil, err
		}
		rt.logger = logger
		rt.closers = append(rt.closers, closer.Close)
	}

	if rt.location, err = cfg.Location(); err != nil {
		rt.Close()
		return nil, err
	}

	if err := rt.openStore(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	if err := rt.openEvents(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	if err := rt.buildResolver(); err != nil {
		rt.Close()
		return nil, err
	}

	svc, err := schedule.NewService(schedule.Deps{
		Store:    rt.store,
		Catalog:  rt.store.Media(),
		Channels: rt.store.Channels(),
		Resolver: rt.resolver,
		Events:   rt.events,
		Logger:   rt.logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.svc = svc

	rt.logger.WithFields(logrus.Fields{
		"project": pp.Root,
		"backend": cfg.Store.Backend,
	}).Info("runtime ready")
	return rt, nil
}

func (rt *runtime) openStore(ctx context.Context) error {
	channels := rt.cfg.ChannelList()
	switch rt.cfg.Store.Backend {
	case config.BackendFile, "":
		rt.store = filestore.New(rt.paths, channels)
		rt.pings = append(rt.pings, componentPing{name: "store (file)"})
	case config.BackendMemory:
		rt.store = memstore.New(channels...)
		rt.pings = append(rt.pings, componentPing{name: "store (memory)"})
	case config.BackendPostgres:
		store, pool, err := pgstore.Open(ctx, rt.cfg.Store.DSN)
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, func() error { pool.Close(); return nil })
		if err := store.SyncChannels(ctx, channels); err != nil {
			return err
		}
		rt.store = store
		rt.pings = append(rt.pings, componentPing{name: "store (postgres)", ping: pool.Ping})
	default:
		return fmt.Errorf("unknown store backend %q", rt.cfg.Store.Backend)
	}
	return nil
}

func (rt *runtime) openEvents(ctx context.Context) error {
	url := strings.TrimSpace(rt.cfg.Events.RedisURL)
	if url == "" {
		return nil
	}
	pub, client, err := events.DialRedis(ctx, url, rt.cfg.Events.Channel)
	if err != nil {
		return err
	}
	rt.closers = append(rt.closers, client.Close)
	rt.events = pub

	rt.pings = append(rt.pings, componentPing{name: "events (redis)", ping: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}})
	return nil
}

func (rt *runtime) buildResolver() error {
	defaultMs, err := rt.cfg.DefaultDurationMs()
	if err != nil {
		return err
	}

	opts := duration.Options{
		Catalog:   rt.store.Media(),
		DefaultMs: defaultMs,
		Timeout: duration.Timeouts{
			Probe:  rt.cfg.Durations.ProbeTimeout,
			Remote: rt.cfg.Providers.YouTube.Timeout,
		},
		WriteBack: rt.cfg.WriteBackEnabled(),
		Logger:    rt.logger,
	}

	detector := tools.FromConfig(rt.cfg.Tools)
	if bin, err := detector.Lookup("ffprobe"); err == nil {
		prober := probe.NewFFProbe(bin, probe.CmdRunner{})
		prober.Logger = rt.logger
		if rt.cfg.Durations.ProbeTimeout > 0 {
			prober.Timeout = rt.cfg.Durations.ProbeTimeout
		}
		opts.Prober = prober
	} else {
		rt.logger.WithError(err).Warn("ffprobe unavailable; local probing disabled")
	}

	yt := rt.cfg.Providers.YouTube
	if strings.TrimSpace(yt.APIKey) != "" {
		opts.Provider = provider.NewYouTubeClient(yt.APIKey, yt.BaseURL, yt.Timeout)
	}

	rt.resolver = duration.NewResolver(opts)
	return nil
}

// Components pings every backend the runtime holds.
func (rt *runtime) Components(ctx context.Context) []backendStatus {
	out := make([]backendStatus, 0, len(rt.pings))
	for _, p := range rt.pings {
		st := backendStatus{Component: p.name, OK: true}
		if p.ping == nil {
			out = append(out, st)
			continue
		}
		if err := p.ping(ctx); err != nil {
			st.OK, st.Error = false, err.Error()
		}
		out = append(out, st)
	}
	return out
}

// Ping fails with the first unreachable backend.
func (rt *runtime) Ping(ctx context.Context) error {
	for _, st := range rt.Components(ctx) {
		if !st.OK {
			return fmt.Errorf("%s: %s", st.Component, st.Error)
		}
	}
	return nil
}

// Now is the wall clock in the configured timezone.
func (rt *runtime) Now() time.Time {
	return time.Now().In(rt.location)
}

// Today is the current date in the configured timezone.
func (rt *runtime) Today() schedule.Date {
	return schedule.DateOf(rt.Now())
}

func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// withRuntime opens the runtime, runs fn and closes it afterwards.
func withRuntime(ctx context.Context, fn func(rt *runtime) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := openRuntime(ctx, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}
