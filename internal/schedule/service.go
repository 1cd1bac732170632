package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"playout/internal/catalog"
	"playout/internal/duration"
	"playout/internal/events"
)

// Logger keeps the subset of log.Logger used by the service.
type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// DurationResolver turns a media reference into an authoritative duration.
type DurationResolver interface {
	Resolve(ctx context.Context, ref duration.Reference) (duration.Resolution, error)
}

// Deps wires a Service. Store, Catalog and Channels are required.
type Deps struct {
	Store    Store
	Catalog  catalog.Catalog
	Channels catalog.Directory
	Resolver DurationResolver
	Events   events.Publisher
	Logger   Logger
}

// Service implements the scheduling operations on top of a Store.
type Service struct {
	store    Store
	catalog  catalog.Catalog
	channels catalog.Directory
	resolver DurationResolver
	events   events.Publisher
	logger   Logger

	newID   func() string
	nowFunc func() time.Time
}

// NewService validates deps and fills in defaults.
func NewService(deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("schedule service: store is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("schedule service: catalog is required")
	}
	if deps.Channels == nil {
		return nil, errors.New("schedule service: channel directory is required")
	}
	s := &Service{
		store:    deps.Store,
		catalog:  deps.Catalog,
		channels: deps.Channels,
		resolver: deps.Resolver,
		events:   deps.Events,
		logger:   deps.Logger,
		newID:    uuid.NewString,
		nowFunc:  time.Now,
	}
	if s.resolver == nil {
		s.resolver = duration.NewResolver(duration.Options{Catalog: deps.Catalog, WriteBack: true})
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}
	return s, nil
}

// Placement is the outcome of Schedule. Warning is set when the duration
// fell back to the default.
type Placement struct {
	Item     Item                        `json:"item"`
	Removed  []Item                      `json:"removed,omitempty"`
	Duration duration.Resolution         `json:"duration"`
	Warning  *duration.ResolutionFailure `json:"warning,omitempty"`
}

// Schedule places a new item on a channel's day.
func (s *Service) Schedule(ctx context.Context, cmd ScheduleCommand) (Placement, error) {
	if err := cmd.validate(); err != nil {
		return Placement{}, err
	}
	if _, err := s.channel(ctx, cmd.ChannelID); err != nil {
		return Placement{}, err
	}

	ref := duration.Reference{URL: cmd.Media.URL, ManualMs: cmd.Media.DurationMs}
	title := cmd.Media.Title
	source := cmd.Media.URL
	if cmd.Media.MediaID != "" {
		asset, err := s.media(ctx, cmd.Media.MediaID)
		if err != nil {
			return Placement{}, err
		}
		if !asset.Active {
			return Placement{}, &ValidationError{Field: "media", Message: fmt.Sprintf("media %s is inactive", asset.ID)}
		}
		ref.Asset = &asset
		if title == "" {
			title = asset.Title
		}
		if source == "" {
			source = asset.SourceURL
		}
	}

	res, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return Placement{}, fmt.Errorf("resolve duration: %w", err)
	}
	seconds := SecondsFromMs(res.DurationMs)
	if seconds <= 0 {
		return Placement{}, &ValidationError{Field: "duration", Message: "duration must be greater than zero"}
	}
	if res.Warning != nil {
		s.logger.Printf("schedule %s/%s: %v", cmd.ChannelID, cmd.Date, res.Warning)
	}

	out := Placement{Duration: res, Warning: res.Warning}
	id := s.newID()
	now := s.now()

	err = s.store.Update(ctx, cmd.ChannelID, cmd.Date, func(day *Day) error {
		items := day.Items()
		start := cmd.Slot.At
		if cmd.Slot.Auto {
			if last, ok := lastItem(items); ok && last.End() >= DaySeconds {
				return &ValidationError{Field: "start", Message: "timeline is full until midnight"}
			}
			start = NextAvailableStart(items)
		}

		if err := ValidatePlacement(items, start, seconds); err != nil {
			var conflict *ConflictError
			if !errors.As(err, &conflict) || !cmd.Replace {
				return err
			}
			for _, victim := range conflict.Conflicts {
				day.Delete(victim.ID)
				out.Removed = append(out.Removed, victim)
			}
		}

		item := Item{
			ID:              id,
			ChannelID:       cmd.ChannelID,
			MediaID:         cmd.Media.MediaID,
			Title:           title,
			SourceURL:       source,
			Date:            cmd.Date,
			Start:           start,
			DurationSeconds: seconds,
			Status:          StatusScheduled,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := day.Upsert(item); err != nil {
			return err
		}
		day.Renumber()
		out.Item, _ = day.Get(id)
		return nil
	})
	if err != nil {
		return Placement{}, err
	}

	s.logger.Printf("scheduled %s on %s/%s at %s for %ds (duration via %s)",
		out.Item.ID, cmd.ChannelID, cmd.Date, out.Item.Start, seconds, res.Source)
	s.publish(ctx, events.ItemScheduled, out.Item.ChannelID, out.Item.Date, out)
	return out, nil
}

// ListDay returns a channel's timeline ordered by start, then position.
func (s *Service) ListDay(ctx context.Context, channelID string, date Date) ([]Item, error) {
	if !date.Valid() {
		return nil, &ValidationError{Field: "date", Message: "date is required (YYYY-MM-DD)"}
	}
	if _, err := s.channel(ctx, channelID); err != nil {
		return nil, err
	}
	items, err := s.store.ListDay(ctx, channelID, date)
	if err != nil {
		return nil, fmt.Errorf("list day: %w", err)
	}
	return items, nil
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	return s.item(ctx, id)
}

// Remove deletes an item and re-derives its day's positions from start time.
func (s *Service) Remove(ctx context.Context, id string) error {
	current, err := s.item(ctx, id)
	if err != nil {
		return err
	}
	err = s.store.Update(ctx, current.ChannelID, current.Date, func(day *Day) error {
		if !day.Delete(id) {
			return &NotFoundError{Kind: "item", ID: id}
		}
		day.Renumber()
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Printf("removed %s from %s/%s", id, current.ChannelID, current.Date)
	s.publish(ctx, events.ItemRemoved, current.ChannelID, current.Date, current)
	return nil
}

// SetStatus records a playout status transition.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (Item, error) {
	if !ValidStatus(status) {
		return Item{}, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	current, err := s.item(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if current.Status == status {
		return current, nil
	}
	var updated Item
	err = s.store.Update(ctx, current.ChannelID, current.Date, func(day *Day) error {
		it, ok := day.Get(id)
		if !ok {
			return &NotFoundError{Kind: "item", ID: id}
		}
		it.Status = status
		it.UpdatedAt = s.now()
		updated = it
		return day.Upsert(it)
	})
	if err != nil {
		return Item{}, err
	}
	s.publish(ctx, events.ItemStatus, updated.ChannelID, updated.Date, updated)
	return updated, nil
}

// Channels lists the channels the service schedules for.
func (s *Service) Channels(ctx context.Context) ([]catalog.Channel, error) {
	return s.channels.List(ctx)
}

func (s *Service) channel(ctx context.Context, id string) (catalog.Channel, error) {
	ch, err := s.channels.Get(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return catalog.Channel{}, &NotFoundError{Kind: "channel", ID: id}
	}
	if err != nil {
		return catalog.Channel{}, fmt.Errorf("get channel: %w", err)
	}
	return ch, nil
}

func (s *Service) media(ctx context.Context, id string) (catalog.MediaAsset, error) {
	asset, err := s.catalog.Get(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return catalog.MediaAsset{}, &NotFoundError{Kind: "media", ID: id}
	}
	if err != nil {
		return catalog.MediaAsset{}, fmt.Errorf("get media: %w", err)
	}
	return asset, nil
}

func (s *Service) item(ctx context.Context, id string) (Item, error) {
	it, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Item{}, &NotFoundError{Kind: "item", ID: id}
	}
	if err != nil {
		return Item{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func (s *Service) publish(ctx context.Context, kind, channelID string, date Date, payload any) {
	event := events.Event{Type: kind, ChannelID: channelID, Date: string(date), Payload: payload, At: s.now()}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Printf("publish %s: %v", kind, err)
	}
}

func (s *Service) now() time.Time {
	return s.nowFunc().UTC()
}
