package schedule

import (
	"time"

	"agenda/internal/models"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// Classify derives the presentation status of show at instant now. Show
// dates and times are read as wall clock in now's location.
//
// Rules, first match wins: editorial cancellation; end passed (Completed);
// now within [start, end] inclusive (InProgress); editorial confirmation;
// otherwise Scheduled. Shows without an end time are never Completed or
// InProgress.
func Classify(show models.Show, now time.Time) models.StatusInfo {
	return models.NewStatusInfo(classify(show, now))
}

func classify(show models.Show, now time.Time) models.StatusLabel {
	if show.Status == models.ShowCancelled {
		return models.LabelCancelled
	}

	hasStart := show.StartTime != ""
	hasEnd := show.EndTime != ""

	day, dayOK := parseDay(show.Date, now.Location())
	startOff, startOK := time.Duration(0), true
	if hasStart {
		startOff, startOK = parseClock(show.StartTime)
	}
	endOff, endOK := time.Duration(0), true
	if hasEnd {
		endOff, endOK = parseClock(show.EndTime)
	}

	if dayOK && hasEnd && endOK {
		showStart := at(day, startOff)
		showEnd := at(day, endOff)
		if hasStart && startOK && showEnd.Before(showStart) {
			showEnd = at(day.AddDate(0, 0, 1), endOff)
		}

		if now.After(showEnd) {
			return models.LabelCompleted
		}
		if hasStart && startOK && !now.Before(showStart) && !now.After(showEnd) {
			return models.LabelInProgress
		}
	}

	if show.Status == models.ShowConfirmed {
		return models.LabelConfirmed
	}
	return models.LabelScheduled
}
