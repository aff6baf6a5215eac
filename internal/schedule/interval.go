package schedule

import (
	"strings"
	"time"

	"agenda/internal/models"
)

var clockLayouts = []string{models.TimeLayout, "15:04:05"}

// parseClock parses a zero-padded HH:MM (or HH:MM:SS) time of day into an
// offset from midnight. "9:00" and "24:00" are rejected.
func parseClock(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if len(value) != len(models.TimeLayout) && len(value) != len("15:04:05") {
		return 0, false
	}
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, true
		}
	}
	return 0, false
}

// parseDay parses a YYYY-MM-DD calendar date as midnight in loc.
func parseDay(value string, loc *time.Location) (time.Time, bool) {
	d, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// at combines a calendar day with a time of day using wall-clock fields,
// so a DST shift inside the day does not move the result.
func at(day time.Time, offset time.Duration) time.Time {
	h := int(offset / time.Hour)
	m := int(offset % time.Hour / time.Minute)
	s := int(offset % time.Minute / time.Second)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, day.Location())
}

// interval resolves the [start, end) window of a show whose both times are
// known. An end earlier than the start belongs to the next calendar day.
func interval(date, startTime, endTime string, loc *time.Location) (start, end time.Time, ok bool) {
	day, ok := parseDay(date, loc)
	if !ok {
		return start, end, false
	}
	startOff, ok := parseClock(startTime)
	if !ok {
		return start, end, false
	}
	endOff, ok := parseClock(endTime)
	if !ok {
		return start, end, false
	}

	start = at(day, startOff)
	end = at(day, endOff)
	if end.Before(start) {
		end = at(day.AddDate(0, 0, 1), endOff)
	}
	return start, end, true
}

// DurationMinutes returns the length of a start/end pair in minutes,
// treating an end before the start as crossing midnight.
func DurationMinutes(startTime, endTime string) (int, bool) {
	startOff, ok := parseClock(startTime)
	if !ok {
		return 0, false
	}
	endOff, ok := parseClock(endTime)
	if !ok {
		return 0, false
	}
	if endOff < startOff {
		endOff += 24 * time.Hour
	}
	return int((endOff - startOff) / time.Minute), true
}

// EndFromDuration computes the HH:MM end time reached after minutes from startTime.
func EndFromDuration(startTime string, minutes int) (string, bool) {
	startOff, ok := parseClock(startTime)
	if !ok || minutes < 0 {
		return "", false
	}
	end := (startOff + time.Duration(minutes)*time.Minute) % (24 * time.Hour)
	return at(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), end).Format(models.TimeLayout), true
}

// ValidDate reports whether value is a YYYY-MM-DD date.
func ValidDate(value string) bool {
	_, ok := parseDay(value, time.UTC)
	return ok
}

// ValidClock reports whether value is an HH:MM time of day.
func ValidClock(value string) bool {
	_, ok := parseClock(value)
	return ok
}
