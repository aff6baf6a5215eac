package service

import (
	"context"
	"fmt"

	"agenda/internal/domain"
	"agenda/internal/events"
	"agenda/internal/metrics"
	"agenda/internal/models"
	"agenda/internal/schedule"

	"github.com/rs/zerolog"
)

type ShowService struct {
	repo         domain.ShowRepository
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	clock        schedule.Clock
	logger       *zerolog.Logger
}

func NewShowService(
	repo domain.ShowRepository,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	clock schedule.Clock,
	logger *zerolog.Logger,
) *ShowService {
	if clock == nil {
		clock = schedule.RealClock{}
	}
	return &ShowService{
		repo:         repo,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		clock:        clock,
		logger:       logger,
	}
}

// Prepare normalizes a show before validation: trims fields, sets the default
// status and keeps duration and end time consistent with the start time.
func Prepare(show *models.Show) {
	show.Normalize()
	switch {
	case show.StartTime != "" && show.EndTime != "":
		if d, ok := schedule.DurationMinutes(show.StartTime, show.EndTime); ok {
			show.Duration = d
		}
	case show.StartTime != "" && show.Duration > 0:
		if end, ok := schedule.EndFromDuration(show.StartTime, show.Duration); ok {
			show.EndTime = end
		}
	}
}

func validateShow(show *models.Show) error {
	if show.Location == "" {
		return invalidShow("location is required")
	}
	if !schedule.ValidDate(show.Date) {
		return invalidShow("date must be YYYY-MM-DD")
	}
	if show.StartTime != "" && !schedule.ValidClock(show.StartTime) {
		return invalidShow("start time must be HH:MM")
	}
	if show.EndTime != "" && !schedule.ValidClock(show.EndTime) {
		return invalidShow("end time must be HH:MM")
	}
	if show.Fee < 0 || show.Advance < 0 {
		return invalidShow("fee and advance must not be negative")
	}
	if !show.Status.Valid() {
		return invalidShow(fmt.Sprintf("unknown status %q", show.Status))
	}
	return nil
}

// SaveShow creates the show when its ID is zero and updates it otherwise.
// A show colliding with another one on the same date is rejected with a
// *ConflictError and nothing is written.
func (s *ShowService) SaveShow(ctx context.Context, show *models.Show) error {
	Prepare(show)
	if err := validateShow(show); err != nil {
		return err
	}

	var existing *models.Show
	if show.ID != 0 {
		current, err := s.repo.GetShow(ctx, show.ID)
		if err != nil {
			return err
		}
		existing = current
	}

	sameDay, err := s.repo.ListShowsByDate(ctx, show.Date)
	if err != nil {
		return fmt.Errorf("load shows for conflict check: %w", err)
	}
	if other, found := schedule.FirstConflict(*show, sameDay); found {
		metrics.IncConflict()
		s.logger.Info().
			Int64("show_id", show.ID).
			Int64("conflict_id", other.ID).
			Str("date", show.Date).
			Msg("show rejected by schedule conflict")
		s.publishEvent(events.EventShowConflict, events.ShowEventPayload{ShowID: show.ID, Show: show, ConflictID: other.ID})
		return &ConflictError{With: other}
	}

	if existing == nil {
		if err := s.repo.CreateShow(ctx, show); err != nil {
			return err
		}
		metrics.IncShowSaved("create")
		s.publishEvent(events.EventShowCreated, events.ShowEventPayload{ShowID: show.ID, Show: show})
	} else {
		show.CreatedAt = existing.CreatedAt
		if err := s.repo.UpdateShow(ctx, show); err != nil {
			return err
		}
		metrics.IncShowSaved("update")
		s.publishEvent(events.EventShowUpdated, events.ShowEventPayload{ShowID: show.ID, Show: show})
	}

	s.enqueueUpsert(ctx, show)
	return nil
}

func (s *ShowService) DeleteShow(ctx context.Context, id int64) error {
	if err := s.repo.DeleteShow(ctx, id); err != nil {
		return err
	}
	metrics.IncShowSaved("delete")
	s.publishEvent(events.EventShowDeleted, events.ShowEventPayload{ShowID: id})

	if s.sheetsWorker != nil {
		if err := s.sheetsWorker.EnqueueDelete(ctx, id); err != nil {
			s.logger.Error().Err(err).Int64("show_id", id).Msg("sheets enqueue error")
		}
	}
	return nil
}

func (s *ShowService) GetShow(ctx context.Context, id int64) (*models.Show, error) {
	return s.repo.GetShow(ctx, id)
}

// ListShows returns the shows matching filter in chronological order.
func (s *ShowService) ListShows(ctx context.Context, filter schedule.Filter) ([]models.Show, error) {
	shows, err := s.repo.ListShows(ctx)
	if err != nil {
		return nil, err
	}
	shows = filter.Apply(shows, s.clock.Now())
	schedule.Sort(shows)
	return shows, nil
}

// ShowsOn returns the shows booked for a YYYY-MM-DD date.
func (s *ShowService) ShowsOn(ctx context.Context, date string) ([]models.Show, error) {
	return s.repo.ListShowsByDate(ctx, date)
}

// CheckConflict validates a candidate against the stored shows without saving it.
func (s *ShowService) CheckConflict(ctx context.Context, candidate models.Show) (*models.Show, error) {
	Prepare(&candidate)
	if candidate.Date == "" {
		return nil, nil
	}
	sameDay, err := s.repo.ListShowsByDate(ctx, candidate.Date)
	if err != nil {
		return nil, err
	}
	if other, found := schedule.FirstConflict(candidate, sameDay); found {
		return &other, nil
	}
	return nil, nil
}

// Status classifies show against the service clock.
func (s *ShowService) Status(show models.Show) models.StatusInfo {
	return schedule.Classify(show, s.clock.Now())
}

func (s *ShowService) StatusByID(ctx context.Context, id int64) (models.StatusInfo, error) {
	show, err := s.repo.GetShow(ctx, id)
	if err != nil {
		return models.StatusInfo{}, err
	}
	return s.Status(*show), nil
}

// Stats summarizes year, or the current year when year is zero.
func (s *ShowService) Stats(ctx context.Context, year int) (models.Stats, error) {
	if year == 0 {
		year = s.clock.Now().Year()
	}
	shows, err := s.repo.ListShowsBetween(ctx, fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year))
	if err != nil {
		return models.Stats{}, err
	}
	return schedule.Summarize(shows, year), nil
}

func (s *ShowService) MonthGroups(ctx context.Context) ([]schedule.MonthGroup, error) {
	shows, err := s.repo.ListShows(ctx)
	if err != nil {
		return nil, err
	}
	return schedule.GroupByMonth(shows), nil
}

func (s *ShowService) publishEvent(eventType string, payload events.ShowEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("show_id", payload.ShowID).Msg("publish event error")
	}
}

func (s *ShowService) enqueueUpsert(ctx context.Context, show *models.Show) {
	if s.sheetsWorker == nil {
		return
	}
	if err := s.sheetsWorker.EnqueueUpsert(ctx, show); err != nil {
		s.logger.Error().Err(err).Int64("show_id", show.ID).Msg("sheets enqueue error")
	}
}
