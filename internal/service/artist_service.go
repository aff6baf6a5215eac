package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"agenda/internal/domain"
	"agenda/internal/models"

	"github.com/rs/zerolog"
)

// ArtistService keeps the artist profile as JSON in the settings store.
type ArtistService struct {
	store  domain.KVStore
	logger *zerolog.Logger
}

func NewArtistService(store domain.KVStore, logger *zerolog.Logger) *ArtistService {
	return &ArtistService{store: store, logger: logger}
}

func (s *ArtistService) Get(ctx context.Context) (models.ArtistInfo, error) {
	info := models.ArtistInfo{Name: models.DefaultArtistName}
	raw, ok, err := s.store.Get(ctx, models.KeyArtistInfo)
	if err != nil || !ok {
		return info, err
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		s.logger.Warn().Err(err).Msg("stored artist info is corrupt, using defaults")
		return models.ArtistInfo{Name: models.DefaultArtistName}, nil
	}
	if strings.TrimSpace(info.Name) == "" {
		info.Name = models.DefaultArtistName
	}
	return info, nil
}

func (s *ArtistService) Update(ctx context.Context, info models.ArtistInfo) (models.ArtistInfo, error) {
	info.Name = strings.TrimSpace(info.Name)
	info.Contact = strings.TrimSpace(info.Contact)
	info.Instagram = strings.TrimSpace(info.Instagram)
	if info.Name == "" {
		info.Name = models.DefaultArtistName
	}
	data, err := json.Marshal(info)
	if err != nil {
		return info, fmt.Errorf("marshal artist info: %w", err)
	}
	if err := s.store.Set(ctx, models.KeyArtistInfo, string(data), 0); err != nil {
		return info, err
	}
	return info, nil
}
