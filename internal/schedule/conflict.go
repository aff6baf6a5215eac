package schedule

import (
	"time"

	"agenda/internal/models"
)

// ConflictMargin is the minimum gap required between two shows on the same day.
const ConflictMargin = 30 * time.Minute

// HasConflict reports whether candidate, padded by ConflictMargin on both
// sides, overlaps any other timed show booked for the same date. A show in
// existing with the candidate's ID is the candidate itself and is skipped.
//
// A candidate without date, start or end never conflicts. Shows in existing
// that lack times, belong to another date or cannot be parsed are ignored.
// A show crossing midnight is only compared with shows of its own date.
func HasConflict(candidate models.Show, existing []models.Show) bool {
	_, found := FirstConflict(candidate, existing)
	return found
}

// FirstConflict is HasConflict that also returns the first colliding show.
func FirstConflict(candidate models.Show, existing []models.Show) (models.Show, bool) {
	if candidate.Date == "" || candidate.StartTime == "" || candidate.EndTime == "" {
		return models.Show{}, false
	}

	// UTC keeps the arithmetic in fixed 24h days.
	cStart, cEnd, ok := interval(candidate.Date, candidate.StartTime, candidate.EndTime, time.UTC)
	if !ok {
		return models.Show{}, false
	}

	for i := range existing {
		other := existing[i]
		if other.ID == candidate.ID {
			continue
		}
		if other.Date != candidate.Date {
			continue
		}
		if other.StartTime == "" || other.EndTime == "" {
			continue
		}
		eStart, eEnd, ok := interval(other.Date, other.StartTime, other.EndTime, time.UTC)
		if !ok {
			continue
		}
		if cStart.Before(eEnd.Add(ConflictMargin)) && cEnd.After(eStart.Add(-ConflictMargin)) {
			return other, true
		}
	}
	return models.Show{}, false
}
