package schedule

import (
	"sort"
	"strings"
	"time"

	"agenda/internal/models"
)

// startInstant is the sort key of a show: date plus start time, midnight when absent.
func startInstant(show models.Show, fallback string, loc *time.Location) (time.Time, bool) {
	day, ok := parseDay(show.Date, loc)
	if !ok {
		return time.Time{}, false
	}
	clock := show.StartTime
	if clock == "" {
		clock = fallback
	}
	off, ok := parseClock(clock)
	if !ok {
		off = 0
	}
	return at(day, off), true
}

// Sort orders shows chronologically by date and start time. Shows with an
// unparseable date go last, keeping their relative order.
func Sort(shows []models.Show) {
	sort.SliceStable(shows, func(i, j int) bool {
		a, okA := startInstant(shows[i], "00:00", time.UTC)
		b, okB := startInstant(shows[j], "00:00", time.UTC)
		switch {
		case okA && okB:
			return a.Before(b)
		case okA:
			return true
		default:
			return false
		}
	})
}

// Period selects shows relative to now.
type Period string

const (
	PeriodAll      Period = "all"
	PeriodUpcoming Period = "upcoming"
	PeriodPast     Period = "past"
)

// Filter narrows a show list. Empty fields match everything.
type Filter struct {
	Period   Period
	Location string
	Label    string
}

// Apply returns the shows matching f, in their original order. A show
// without start time counts as starting at 23:59 of its day.
func (f Filter) Apply(shows []models.Show, now time.Time) []models.Show {
	out := make([]models.Show, 0, len(shows))
	for _, show := range shows {
		if f.Location != "" && f.Location != "all" && show.Location != f.Location {
			continue
		}
		if f.Label != "" && f.Label != "all" {
			info := Classify(show, now)
			if !strings.EqualFold(f.Label, info.Label.String()) && f.Label != info.Text {
				continue
			}
		}
		if f.Period == PeriodUpcoming || f.Period == PeriodPast {
			start, ok := startInstant(show, "23:59", now.Location())
			if !ok {
				continue
			}
			upcoming := !start.Before(now)
			if (f.Period == PeriodUpcoming) != upcoming {
				continue
			}
		}
		out = append(out, show)
	}
	return out
}

// Summarize totals fee and advance over shows dated in year.
func Summarize(shows []models.Show, year int) models.Stats {
	stats := models.Stats{Year: year}
	for _, show := range shows {
		day, ok := parseDay(show.Date, time.UTC)
		if !ok || day.Year() != year {
			continue
		}
		stats.TotalShows++
		stats.TotalRevenue += show.Fee
		stats.TotalAdvance += show.Advance
	}
	stats.Balance = stats.TotalRevenue - stats.TotalAdvance
	return stats
}

// MonthGroup is the set of shows booked in one calendar month.
type MonthGroup struct {
	Year  int           `json:"year"`
	Month time.Month    `json:"month"`
	Shows []models.Show `json:"shows"`
}

// GroupByMonth buckets shows per month in chronological order.
// Shows with an unparseable date are dropped.
func GroupByMonth(shows []models.Show) []MonthGroup {
	sorted := make([]models.Show, len(shows))
	copy(sorted, shows)
	Sort(sorted)

	var groups []MonthGroup
	for _, show := range sorted {
		day, ok := parseDay(show.Date, time.UTC)
		if !ok {
			continue
		}
		n := len(groups)
		if n > 0 && groups[n-1].Year == day.Year() && groups[n-1].Month == day.Month() {
			groups[n-1].Shows = append(groups[n-1].Shows, show)
			continue
		}
		groups = append(groups, MonthGroup{Year: day.Year(), Month: day.Month(), Shows: []models.Show{show}})
	}
	return groups
}

// OnDate returns the shows booked for the given calendar day.
func OnDate(shows []models.Show, day time.Time) []models.Show {
	key := day.Format(models.DateLayout)
	var out []models.Show
	for _, show := range shows {
		if show.Date == key {
			out = append(out, show)
		}
	}
	return out
}
