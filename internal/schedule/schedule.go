// ABOUTME: Turns stored time blocks into concrete occurrences for a visible window.
// ABOUTME: Recurring blocks are expanded in the caller's time zone; also builds DRIP summaries.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/recurrence"
)

// Store is the subset of storage used for scheduling.
type Store interface {
	ListTimeBlocks(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.TimeBlock, error)
}

// Service lists and summarises time block occurrences.
type Service struct {
	store Store
	max   int
}

// NewService creates a schedule service. maxPerBlock caps the occurrences of a
// single recurring block; <= 0 uses recurrence.DefaultMaxOccurrences.
func NewService(store Store, maxPerBlock int) *Service {
	return &Service{store: store, max: maxPerBlock}
}

// Occurrences lists every occurrence in [from, to). Recurring blocks are
// expanded with wall-clock times in loc, so a 09:00 block stays at 09:00
// across daylight-saving changes. A nil loc means UTC.
func (s *Service) Occurrences(ctx context.Context, userID uuid.UUID, from, to time.Time, loc *time.Location) ([]models.Occurrence, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("list occurrences: window end %s is not after start %s", to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	blocks, err := s.store.ListTimeBlocks(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	return Expand(blocks, from, to, loc, s.max), nil
}

// Summary returns the DRIP minutes for the occurrences in [from, to).
func (s *Service) Summary(ctx context.Context, userID uuid.UUID, from, to time.Time, loc *time.Location) (models.DripSummary, error) {
	occs, err := s.Occurrences(ctx, userID, from, to, loc)
	if err != nil {
		return models.DripSummary{}, err
	}
	return models.Summarize(from, to, occs), nil
}

// Expand converts blocks into occurrences intersecting [from, to), sorted by
// start time.
func Expand(blocks []*models.TimeBlock, from, to time.Time, loc *time.Location, maxPerBlock int) []models.Occurrence {
	if loc == nil {
		loc = time.UTC
	}
	w := recurrence.Window{From: from, To: to}

	var out []models.Occurrence
	for _, b := range blocks {
		d := b.Duration()
		if b.Recurrence == nil || *b.Recurrence == "" {
			if w.Overlaps(b.StartsAt, d) {
				out = append(out, occurrence(b, b.StartsAt, d, false))
			}
			continue
		}
		for _, start := range recurrence.ExpandString(b.StartsAt.In(loc), d, *b.Recurrence, w, maxPerBlock) {
			out = append(out, occurrence(b, start, d, true))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out
}

func occurrence(b *models.TimeBlock, start time.Time, d time.Duration, recurring bool) models.Occurrence {
	start = start.UTC()
	return models.Occurrence{
		BlockID:   b.ID,
		Title:     b.Title,
		StartsAt:  start,
		EndsAt:    start.Add(d),
		Quadrant:  b.Quadrant,
		Energy:    b.Energy,
		Recurring: recurring,
	}
}
