package models

import (
	"strings"
	"time"
)

// ShowStatus is the editorial status chosen by the artist.
type ShowStatus string

const (
	ShowScheduled ShowStatus = "Agendado"
	ShowConfirmed ShowStatus = "Confirmado"
	ShowCancelled ShowStatus = "Cancelado"
)

func (s ShowStatus) Valid() bool {
	switch s {
	case ShowScheduled, ShowConfirmed, ShowCancelled:
		return true
	}
	return false
}

// Show is a single booked gig. Date is YYYY-MM-DD, times are HH:MM local wall clock.
type Show struct {
	ID        int64      `json:"id"`
	Location  string     `json:"location"`
	Date      string     `json:"date"`
	StartTime string     `json:"startTime"`
	EndTime   string     `json:"endTime"`
	Duration  int        `json:"duration"`
	Fee       float64    `json:"fee"`
	Advance   float64    `json:"advance"`
	Status    ShowStatus `json:"status"`
	Notes     string     `json:"notes"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// BalanceDue is fee minus the advance already paid. It may be negative.
func (s *Show) BalanceDue() float64 {
	return s.Fee - s.Advance
}

// HasTimes reports whether both start and end times are filled in.
func (s *Show) HasTimes() bool {
	return strings.TrimSpace(s.StartTime) != "" && strings.TrimSpace(s.EndTime) != ""
}

// Normalize trims text fields and fills the default editorial status.
func (s *Show) Normalize() {
	s.Location = strings.TrimSpace(s.Location)
	s.Date = strings.TrimSpace(s.Date)
	s.StartTime = strings.TrimSpace(s.StartTime)
	s.EndTime = strings.TrimSpace(s.EndTime)
	s.Notes = strings.TrimSpace(s.Notes)
	if s.Status == "" {
		s.Status = ShowScheduled
	}
	if s.Duration < 0 {
		s.Duration = 0
	}
}

// Stats aggregates the financial summary of a set of shows.
type Stats struct {
	Year         int     `json:"year"`
	TotalShows   int     `json:"totalShows"`
	TotalRevenue float64 `json:"totalRevenue"`
	TotalAdvance float64 `json:"totalAdvance"`
	Balance      float64 `json:"balance"`
}
