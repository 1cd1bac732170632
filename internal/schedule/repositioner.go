package schedule

import (
	"context"

	"playout/internal/events"
)

// Move changes an item's start time. The new slot is validated against every
// other item of the same day inside the store lock.
func (s *Service) Move(ctx context.Context, cmd MoveCommand) (Item, error) {
	if cmd.ItemID == "" {
		return Item{}, &ValidationError{Field: "item", Message: "item id is required"}
	}
	current, err := s.item(ctx, cmd.ItemID)
	if err != nil {
		return Item{}, err
	}
	if current.Start == cmd.Start {
		return current, nil
	}

	var moved Item
	err = s.store.Update(ctx, current.ChannelID, current.Date, func(day *Day) error {
		it, ok := day.Get(cmd.ItemID)
		if !ok {
			return &NotFoundError{Kind: "item", ID: cmd.ItemID}
		}
		others := make([]Item, 0, len(day.items))
		for _, other := range day.Items() {
			if other.ID != it.ID {
				others = append(others, other)
			}
		}
		if err := ValidatePlacement(others, cmd.Start, it.DurationSeconds); err != nil {
			return err
		}
		it.Start = cmd.Start
		it.UpdatedAt = s.now()
		if err := day.Upsert(it); err != nil {
			return err
		}
		day.Renumber()
		moved, _ = day.Get(it.ID)
		return nil
	})
	if err != nil {
		return Item{}, err
	}

	s.logger.Printf("moved %s on %s/%s from %s to %s", moved.ID, moved.ChannelID, moved.Date, current.Start, moved.Start)
	s.publish(ctx, events.ItemMoved, moved.ChannelID, moved.Date, moved)
	return moved, nil
}

// Reorder swaps an item's position with its neighbour in presentation order.
// Start times are untouched; the next time-changing commit on the day
// re-derives positions from time. At either edge it returns the item as is.
func (s *Service) Reorder(ctx context.Context, cmd ReorderCommand) (Item, error) {
	if cmd.ItemID == "" {
		return Item{}, &ValidationError{Field: "item", Message: "item id is required"}
	}
	if cmd.Direction != Up && cmd.Direction != Down {
		return Item{}, &ValidationError{Field: "direction", Message: "direction must be up or down"}
	}
	current, err := s.item(ctx, cmd.ItemID)
	if err != nil {
		return Item{}, err
	}

	var (
		result  Item
		swapped bool
	)
	err = s.store.Update(ctx, current.ChannelID, current.Date, func(day *Day) error {
		ordered := day.ItemsByPosition()
		idx := -1
		for i, it := range ordered {
			if it.ID == cmd.ItemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return &NotFoundError{Kind: "item", ID: cmd.ItemID}
		}
		next := idx - 1
		if cmd.Direction == Down {
			next = idx + 1
		}
		if next < 0 || next >= len(ordered) {
			result = ordered[idx]
			return nil
		}

		a, b := ordered[idx], ordered[next]
		a.OrderPosition, b.OrderPosition = b.OrderPosition, a.OrderPosition
		now := s.now()
		a.UpdatedAt, b.UpdatedAt = now, now
		if err := day.Upsert(a); err != nil {
			return err
		}
		if err := day.Upsert(b); err != nil {
			return err
		}
		result = a
		swapped = true
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	if swapped {
		s.publish(ctx, events.ItemReordered, result.ChannelID, result.Date, result)
	}
	return result, nil
}
