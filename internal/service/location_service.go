package service

import (
	"context"
	"strings"

	"agenda/internal/domain"
	"agenda/internal/models"

	"github.com/rs/zerolog"
)

type LocationService struct {
	repo   domain.LocationRepository
	logger *zerolog.Logger
}

func NewLocationService(repo domain.LocationRepository, logger *zerolog.Logger) *LocationService {
	return &LocationService{repo: repo, logger: logger}
}

// Seed fills an empty location list with names.
func (s *LocationService) Seed(ctx context.Context, names []string) error {
	added, err := s.repo.SeedLocations(ctx, names)
	if err != nil {
		return err
	}
	if added > 0 {
		s.logger.Info().Int("count", added).Msg("locations seeded")
	}
	return nil
}

func (s *LocationService) List(ctx context.Context) ([]models.Location, error) {
	return s.repo.ListLocations(ctx)
}

func (s *LocationService) Add(ctx context.Context, name string) (*models.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("location name is required")
	}
	location := &models.Location{Name: name}
	if err := s.repo.CreateLocation(ctx, location); err != nil {
		return nil, err
	}
	return location, nil
}

// Rename changes the catalogue entry only; shows keep the name they were saved with.
func (s *LocationService) Rename(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalidInput("location name is required")
	}
	return s.repo.RenameLocation(ctx, id, name)
}

func (s *LocationService) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteLocation(ctx, id)
}
