// Package onair moves scheduled items through playing and done as the wall
// clock passes them.
package onair

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"playout/internal/catalog"
	"playout/internal/schedule"
)

// DefaultInterval is the polling period when none is configured.
const DefaultInterval = 5 * time.Second

// Logger keeps the subset of log.Logger used by the poller.
type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Service is the slice of schedule.Service the poller drives.
type Service interface {
	Channels(ctx context.Context) ([]catalog.Channel, error)
	ListDay(ctx context.Context, channelID string, date schedule.Date) ([]schedule.Item, error)
	SetStatus(ctx context.Context, id string, status schedule.Status) (schedule.Item, error)
}

// Options configures a Poller.
type Options struct {
	Interval time.Duration
	Location *time.Location
	Logger   Logger
	// Concurrency bounds how many channels are polled at once.
	Concurrency int
	Now         func() time.Time
}

// Report counts the transitions applied by one tick.
type Report struct {
	Playing   int `json:"playing"`
	Done      int `json:"done"`
	Scheduled int `json:"scheduled"`
}

func (r Report) String() string {
	return fmt.Sprintf("playing=%d done=%d scheduled=%d", r.Playing, r.Done, r.Scheduled)
}

// Poller periodically reconciles item statuses with the wall clock.
type Poller struct {
	svc         Service
	interval    time.Duration
	loc         *time.Location
	logger      Logger
	concurrency int
	now         func() time.Time
}

func New(svc Service, opts Options) *Poller {
	p := &Poller{
		svc:         svc,
		interval:    opts.Interval,
		loc:         opts.Location,
		logger:      opts.Logger,
		concurrency: opts.Concurrency,
		now:         opts.Now,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.loc == nil {
		p.loc = time.UTC
	}
	if p.logger == nil {
		p.logger = noopLogger{}
	}
	if p.concurrency <= 0 {
		p.concurrency = 4
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Run ticks until ctx is done. Tick errors are logged, not returned.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tickAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.tickAndLog(ctx)
		}
	}
}

func (p *Poller) tickAndLog(ctx context.Context) {
	report, err := p.Tick(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Printf("onair: tick: %v", err)
	}
	if report != (Report{}) {
		p.logger.Printf("onair: %s", report)
	}
}

// Tick applies one reconciliation pass across every channel. Items of the
// previous day that never reached done are closed as well.
func (p *Poller) Tick(ctx context.Context) (Report, error) {
	channels, err := p.svc.Channels(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list channels: %w", err)
	}

	now := p.now().In(p.loc)
	today := schedule.DateOf(now)
	clock := schedule.ClockOf(now)

	var (
		mu     sync.Mutex
		report Report
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, ch := range channels {
		g.Go(func() error {
			var local Report
			if err := p.reconcile(gctx, ch.ID, today.AddDays(-1), schedule.DaySeconds, &local); err != nil {
				return err
			}
			if err := p.reconcile(gctx, ch.ID, today, clock, &local); err != nil {
				return err
			}
			mu.Lock()
			report.Playing += local.Playing
			report.Done += local.Done
			report.Scheduled += local.Scheduled
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	return report, err
}

func (p *Poller) reconcile(ctx context.Context, channelID string, date schedule.Date, clock schedule.TimeOfDay, report *Report) error {
	items, err := p.svc.ListDay(ctx, channelID, date)
	if err != nil {
		return fmt.Errorf("list %s %s: %w", channelID, date, err)
	}
	for _, it := range items {
		want := StatusAt(it, clock)
		if it.Status == want {
			continue
		}
		if _, err := p.svc.SetStatus(ctx, it.ID, want); err != nil {
			return fmt.Errorf("set %s %s: %w", it.ID, want, err)
		}
		switch want {
		case schedule.StatusPlaying:
			report.Playing++
		case schedule.StatusDone:
			report.Done++
		case schedule.StatusScheduled:
			report.Scheduled++
		}
	}
	return nil
}

// StatusAt is the status an item should have at clock on its own day.
func StatusAt(it schedule.Item, clock schedule.TimeOfDay) schedule.Status {
	switch {
	case clock >= it.End():
		return schedule.StatusDone
	case clock >= it.Start:
		return schedule.StatusPlaying
	}
	return schedule.StatusScheduled
}
