package events

import (
	"context"
	"sync"
	"time"
)

// Event types published after a schedule change commits.
const (
	ItemScheduled = "item.scheduled"
	ItemMoved     = "item.moved"
	ItemReordered = "item.reordered"
	ItemRemoved   = "item.removed"
	ItemStatus    = "item.status"
	DayDuplicated = "day.duplicated"
)

// Event describes one committed change on a channel's timeline.
type Event struct {
	Type      string    `json:"type"`
	ChannelID string    `json:"channelId"`
	Date      string    `json:"date"`
	Payload   any       `json:"payload,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher fans events out to interested parties.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Memory keeps published events in order. It is safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func (m *Memory) Publish(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Types returns the type of each published event, in order.
func (m *Memory) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.events))
	for i, e := range m.events {
		types[i] = e.Type
	}
	return types
}
