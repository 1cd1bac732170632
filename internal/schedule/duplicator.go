package schedule

import (
	"context"
	"errors"
	"fmt"

	"playout/internal/events"
)

// Progress receives per-date notifications while a duplication commits.
// Either callback may be nil.
type Progress struct {
	DateStarted  func(date Date)
	DateFinished func(outcome DateOutcome)
}

type duplicateOptions struct {
	progress Progress
}

// DuplicateOption tunes a Duplicate call.
type DuplicateOption func(*duplicateOptions)

// WithProgress reports each target date as it is committed.
func WithProgress(p Progress) DuplicateOption {
	return func(o *duplicateOptions) { o.progress = p }
}

// DuplicateResult summarises a duplication. When Pending is set nothing was
// written and Conflicts lists every candidate/existing overlap found.
type DuplicateResult struct {
	Inserted  []Item         `json:"inserted"`
	Removed   []Item         `json:"removed,omitempty"`
	Skipped   []Item         `json:"skipped,omitempty"`
	Conflicts []ConflictPair `json:"conflicts,omitempty"`
	Pending   bool           `json:"pending"`
	Dates     []DateOutcome  `json:"dates"`
}

// datePlan is the set of candidates bound for one target date.
type datePlan struct {
	channelID  string
	target     Date
	candidates []Item
}

// Duplicate copies an item, a day, or a week of items onto target dates.
//
// Conflicts are first collected across every target date. Without a
// resolution they are returned with Pending set and nothing is written.
// Otherwise each target date commits as its own store update, re-checking
// conflicts under the lock. If some dates fail the result is returned with a
// *PartialBatchFailure; committed dates stay committed.
func (s *Service) Duplicate(ctx context.Context, cmd DuplicateCommand, opts ...DuplicateOption) (DuplicateResult, error) {
	var o duplicateOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := cmd.validate(); err != nil {
		return DuplicateResult{}, err
	}

	plans, err := s.plan(ctx, cmd)
	if err != nil {
		return DuplicateResult{}, err
	}

	var result DuplicateResult
	for _, p := range plans {
		if len(p.candidates) == 0 {
			continue
		}
		existing, err := s.store.ListDay(ctx, p.channelID, p.target)
		if err != nil {
			return DuplicateResult{}, fmt.Errorf("list %s: %w", p.target, err)
		}
		result.Conflicts = append(result.Conflicts, FindConflicts(p.candidates, existing)...)
	}
	if len(result.Conflicts) > 0 && cmd.Resolution == Ask {
		result.Pending = true
		return result, nil
	}

	failed := 0
	for i, p := range plans {
		if o.progress.DateStarted != nil {
			o.progress.DateStarted(p.target)
		}
		var outcome DateOutcome
		if err := ctx.Err(); err != nil {
			outcome = DateOutcome{Date: p.target}
			outcome.fail(err)
		} else {
			outcome = s.commitDate(ctx, p, cmd.Resolution)
		}
		if !outcome.OK() {
			failed++
		}
		result.Dates = append(result.Dates, outcome)
		result.Inserted = append(result.Inserted, outcome.Inserted...)
		result.Removed = append(result.Removed, outcome.Removed...)
		result.Skipped = append(result.Skipped, outcome.Skipped...)
		if o.progress.DateFinished != nil {
			o.progress.DateFinished(outcome)
		}
		if outcome.OK() && len(p.candidates) > 0 {
			s.publish(ctx, events.DayDuplicated, p.channelID, p.target, outcome)
		}
		s.logger.Printf("duplicate %s [%d/%d] %s: inserted=%d removed=%d skipped=%d err=%v",
			cmd.Mode, i+1, len(plans), p.target, len(outcome.Inserted), len(outcome.Removed), len(outcome.Skipped), outcome.Err)
	}

	if failed == 0 {
		return result, nil
	}
	if len(plans) == 1 {
		return result, result.Dates[0].Err
	}
	return result, &PartialBatchFailure{Outcomes: result.Dates}
}

func (o *DateOutcome) fail(err error) {
	o.Err = err
	o.Error = err.Error()
	o.Inserted = nil
	o.Removed = nil
	o.Skipped = nil
}

// commitDate writes one target date under the store lock.
func (s *Service) commitDate(ctx context.Context, p datePlan, res Resolution) DateOutcome {
	outcome := DateOutcome{Date: p.target, Inserted: []Item{}}
	if len(p.candidates) == 0 {
		return outcome
	}
	err := s.store.Update(ctx, p.channelID, p.target, func(day *Day) error {
		pairs := FindConflicts(p.candidates, day.Items())
		losing := make(map[string]bool)
		for _, pair := range pairs {
			losing[pair.Candidate.ID] = true
		}
		if len(pairs) > 0 && res == Ask {
			// A concurrent writer got there between the check and the lock.
			return conflictFromPairs(pairs)
		}
		if res == Replace {
			for _, pair := range pairs {
				if day.Delete(pair.Existing.ID) {
					outcome.Removed = append(outcome.Removed, pair.Existing)
				}
			}
		}
		var inserted []string
		for _, cand := range p.candidates {
			if res == Skip && losing[cand.ID] {
				outcome.Skipped = append(outcome.Skipped, cand)
				continue
			}
			if err := day.Upsert(cand); err != nil {
				return err
			}
			inserted = append(inserted, cand.ID)
		}
		day.Renumber()
		for _, id := range inserted {
			it, _ := day.Get(id)
			outcome.Inserted = append(outcome.Inserted, it)
		}
		return nil
	})
	if err != nil {
		outcome.fail(err)
	}
	return outcome
}

func conflictFromPairs(pairs []ConflictPair) *ConflictError {
	seen := make(map[string]bool)
	conflict := &ConflictError{Candidate: pairs[0].Candidate.Interval()}
	for _, pair := range pairs {
		if seen[pair.Existing.ID] {
			continue
		}
		seen[pair.Existing.ID] = true
		conflict.Conflicts = append(conflict.Conflicts, pair.Existing)
	}
	return conflict
}

// plan builds the candidates for every target date of cmd.
func (s *Service) plan(ctx context.Context, cmd DuplicateCommand) ([]datePlan, error) {
	switch cmd.Mode {
	case ModeSingle:
		src, err := s.item(ctx, cmd.ItemID)
		if err != nil {
			return nil, err
		}
		target := cmd.TargetDate
		if target == "" {
			target = src.Date.AddDays(1)
		}
		start := src.Start
		if cmd.TargetStart != nil {
			start = *cmd.TargetStart
		}
		cand, err := s.candidate(src, target, start)
		if err != nil {
			return nil, err
		}
		return []datePlan{{channelID: src.ChannelID, target: target, candidates: []Item{cand}}}, nil

	case ModeDay:
		if _, err := s.channel(ctx, cmd.ChannelID); err != nil {
			return nil, err
		}
		target := cmd.TargetDate
		if target == "" {
			target = cmd.Date.AddDays(1)
		}
		p, err := s.planDay(ctx, cmd.ChannelID, cmd.Date, target, cmd.TargetStart)
		if err != nil {
			return nil, err
		}
		return []datePlan{p}, nil

	case ModeWeek:
		if _, err := s.channel(ctx, cmd.ChannelID); err != nil {
			return nil, err
		}
		first := cmd.TargetDate
		if first == "" {
			first = cmd.Date.AddDays(WeekDays)
		}
		plans := make([]datePlan, 0, WeekDays)
		for i := 0; i < WeekDays; i++ {
			p, err := s.planDay(ctx, cmd.ChannelID, cmd.Date.AddDays(i), first.AddDays(i), nil)
			if err != nil {
				return nil, err
			}
			plans = append(plans, p)
		}
		return plans, nil
	}
	return nil, errors.New("unknown duplicate mode")
}

func (s *Service) planDay(ctx context.Context, channelID string, source, target Date, start *TimeOfDay) (datePlan, error) {
	items, err := s.store.ListDay(ctx, channelID, source)
	if err != nil {
		return datePlan{}, fmt.Errorf("list %s: %w", source, err)
	}
	p := datePlan{channelID: channelID, target: target}
	if len(items) == 0 {
		return p, nil
	}
	var shift TimeOfDay
	if start != nil {
		shift = *start - items[0].Start
	}
	for _, src := range items {
		cand, err := s.candidate(src, target, src.Start+shift)
		if err != nil {
			return datePlan{}, err
		}
		p.candidates = append(p.candidates, cand)
	}
	return p, nil
}

func (s *Service) candidate(src Item, target Date, start TimeOfDay) (Item, error) {
	if err := validateSlot(start, src.DurationSeconds); err != nil {
		return Item{}, err
	}
	now := s.now()
	return Item{
		ID:              s.newID(),
		ChannelID:       src.ChannelID,
		MediaID:         src.MediaID,
		Title:           src.Title,
		SourceURL:       src.SourceURL,
		Date:            target,
		Start:           start,
		DurationSeconds: src.DurationSeconds,
		Status:          StatusScheduled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
