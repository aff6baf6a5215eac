package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"agenda/internal/client"
	"agenda/internal/database"
	"agenda/internal/models"
	"agenda/internal/service"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// showsFile is the import format: a list of shows plus optional venues.
type showsFile struct {
	Locations []string     `yaml:"locations"`
	Shows     []importShow `yaml:"shows"`
}

type importShow struct {
	Location  string  `yaml:"location"`
	Date      string  `yaml:"date"`
	StartTime string  `yaml:"start_time"`
	EndTime   string  `yaml:"end_time"`
	Duration  int     `yaml:"duration"`
	Fee       float64 `yaml:"fee"`
	Advance   float64 `yaml:"advance"`
	Status    string  `yaml:"status"`
	Notes     string  `yaml:"notes"`
}

func (it importShow) show() models.Show {
	return models.Show{
		Location:  it.Location,
		Date:      it.Date,
		StartTime: it.StartTime,
		EndTime:   it.EndTime,
		Duration:  it.Duration,
		Fee:       it.Fee,
		Advance:   it.Advance,
		Status:    models.ShowStatus(it.Status),
		Notes:     it.Notes,
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		showsPath = flag.String("shows", "configs/shows.yaml", "path to shows.yaml")
		dbPath    = flag.String("db", "./data/agenda.db", "path to sqlite db")
		apiURL    = flag.String("api", "", "import through a running agenda API instead of the db")
		apiKey    = flag.String("api-key", os.Getenv("AGENDA_API_KEY"), "API key")
		apiExtra  = flag.String("api-extra", os.Getenv("AGENDA_API_EXTRA"), "API extra header")
	)
	flag.Parse()

	data, err := os.ReadFile(*showsPath)
	if err != nil {
		return fmt.Errorf("read shows: %w", err)
	}
	var file showsFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse shows: %w", err)
	}
	if len(file.Shows) == 0 {
		return fmt.Errorf("no shows in yaml")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *apiURL != "" {
		return importRemote(ctx, client.NewAgendaClient(*apiURL, *apiKey, *apiExtra), file.Shows, &logger)
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if len(file.Locations) > 0 {
		if _, err = db.SeedLocations(ctx, file.Locations); err != nil {
			return fmt.Errorf("seed locations: %w", err)
		}
	}

	// same validation and conflict rules as the API
	shows := service.NewShowService(db, nil, nil, nil, &logger)
	created, skipped := 0, 0
	for i, it := range file.Shows {
		show := it.show()
		err = shows.SaveShow(ctx, &show)
		var conflict *service.ConflictError
		switch {
		case err == nil:
			created++
		case errors.As(err, &conflict):
			logger.Warn().Int("entry", i+1).Str("date", show.Date).Int64("conflict_id", conflict.With.ID).Msg("skipped: schedule conflict")
			skipped++
		case errors.Is(err, service.ErrInvalidShow):
			logger.Warn().Int("entry", i+1).Err(err).Msg("skipped: invalid show")
			skipped++
		default:
			return fmt.Errorf("save entry %d: %w", i+1, err)
		}
	}

	logger.Info().Int("created", created).Int("skipped", skipped).Msg("shows imported")
	return nil
}

func importRemote(ctx context.Context, api *client.AgendaClient, entries []importShow, logger *zerolog.Logger) error {
	created, skipped := 0, 0
	for i, it := range entries {
		show := it.show()
		err := api.CreateShow(ctx, &show)
		var statusErr *client.StatusError
		switch {
		case err == nil:
			created++
		case errors.Is(err, client.ErrConflict):
			logger.Warn().Int("entry", i+1).Err(err).Msg("skipped: schedule conflict")
			skipped++
		case errors.As(err, &statusErr) && statusErr.Code == http.StatusBadRequest:
			logger.Warn().Int("entry", i+1).Err(err).Msg("skipped: invalid show")
			skipped++
		default:
			return fmt.Errorf("save entry %d: %w", i+1, err)
		}
	}
	logger.Info().Int("created", created).Int("skipped", skipped).Msg("shows imported")
	return nil
}
