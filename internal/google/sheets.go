package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"agenda/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ErrRowNotFound is returned when a show has no row in the sheet.
var ErrRowNotFound = errors.New("show row not found")

var headers = []interface{}{
	"ID", "Data", "Local", "Início", "Término", "Duração (min)",
	"Cachê", "Adiantamento", "Saldo", "Status", "Observações", "Atualizado em",
}

// lastColumn is the letter of the last header column.
const lastColumn = "L"

// SheetsService mirrors shows into one sheet of a spreadsheet, one row per show.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	rowCache      map[int64]int
	cacheMu       sync.RWMutex
	logger        zerolog.Logger
}

// NewSheetsService authenticates with a service account credentials file.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, logger *zerolog.Logger) (*SheetsService, error) {
	// read the service account credentials file
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return newSheetsService(srv, spreadsheetID, sheetName, logger), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID, sheetName string, logger *zerolog.Logger) *SheetsService {
	if sheetName == "" {
		sheetName = "Shows"
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "sheets").Logger()
	}
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		rowCache:      make(map[int64]int),
		logger:        l,
	}
}

// ServiceAccountEmail returns the client_email of a credentials file, the
// address the spreadsheet must be shared with.
func ServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}
	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

func (s *SheetsService) rng(format string, args ...interface{}) string {
	return s.sheetName + "!" + fmt.Sprintf(format, args...)
}

// TestConnection checks that the spreadsheet is reachable.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rng("A1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// EnsureHeader writes the header row.
func (s *SheetsService) EnsureHeader(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rng("A1:%s1", lastColumn), &sheets.ValueRange{
		Values: [][]interface{}{headers},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// WarmUpCache populates the row index cache by reading the entire ID column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rng("A:A")).Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
	for i, row := range resp.Values {
		if id, ok := cellID(row); ok {
			s.rowCache[id] = i + 1
		}
	}
	return nil
}

// StartCacheRefresh warms the cache now and then every SheetsCacheTTL until ctx ends.
func (s *SheetsService) StartCacheRefresh(ctx context.Context) {
	refresh := func() {
		c, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.WarmUpCache(c); err != nil {
			s.logger.Warn().Err(err).Msg("warm up cache")
		}
	}
	refresh()

	ticker := time.NewTicker(models.SheetsCacheTTL * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// AppendShow adds a row for show at the end of the sheet.
func (s *SheetsService) AppendShow(ctx context.Context, show *models.Show) error {
	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.rng("A:A"), &sheets.ValueRange{
		Values: [][]interface{}{showRowValues(show)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return err
	}
	if resp.Updates != nil {
		if row, ok := firstRow(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(show.ID, row)
		}
	}
	return nil
}

// UpsertShow updates the row of show or appends one if not found.
func (s *SheetsService) UpsertShow(ctx context.Context, show *models.Show) error {
	if show == nil {
		return errors.New("show is nil")
	}

	rowIdx, err := s.FindShowRow(ctx, show.ID)
	if errors.Is(err, ErrRowNotFound) {
		return s.AppendShow(ctx, show)
	}
	if err != nil {
		return err
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rng("A%d:%s%d", rowIdx, lastColumn, rowIdx), &sheets.ValueRange{
		Values: [][]interface{}{showRowValues(show)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// DeleteShowRow clears the row of showID. A missing row is not an error.
func (s *SheetsService) DeleteShowRow(ctx context.Context, showID int64) error {
	rowIdx, err := s.FindShowRow(ctx, showID)
	if errors.Is(err, ErrRowNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.service.Spreadsheets.Values.Clear(s.spreadsheetID, s.rng("A%d:%s%d", rowIdx, lastColumn, rowIdx), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err == nil {
		s.deleteCacheRow(showID)
	}
	return err
}

// FindShowRow locates the 1-based row of showID in column A, using the cache first.
func (s *SheetsService) FindShowRow(ctx context.Context, showID int64) (int, error) {
	if showID == 0 {
		return 0, errors.New("show id is required")
	}
	if row, ok := s.getCachedRow(showID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rng("A:A")).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for i, row := range resp.Values {
		if id, ok := cellID(row); ok && id == showID {
			s.setCachedRow(showID, i+1)
			return i + 1, nil
		}
	}
	return 0, ErrRowNotFound
}

// ReplaceShows rewrites the whole sheet: header plus one row per show.
func (s *SheetsService) ReplaceShows(ctx context.Context, shows []models.Show) error {
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, s.rng("A:Z"), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear sheet: %w", err)
	}

	values := make([][]interface{}, 0, len(shows)+1)
	values = append(values, headers)
	for i := range shows {
		values = append(values, showRowValues(&shows[i]))
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rng("A1"), &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write sheet: %w", err)
	}

	s.cacheMu.Lock()
	s.rowCache = make(map[int64]int, len(shows))
	for i, show := range shows {
		s.rowCache[show.ID] = i + 2 // data starts on row 2
	}
	s.cacheMu.Unlock()
	return nil
}

func (s *SheetsService) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func (s *SheetsService) deleteCacheRow(id int64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.rowCache, id)
}

// ClearCache clears the row index cache.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
}

func showRowValues(show *models.Show) []interface{} {
	return []interface{}{
		show.ID,
		show.Date,
		show.Location,
		show.StartTime,
		show.EndTime,
		show.Duration,
		show.Fee,
		show.Advance,
		show.BalanceDue(),
		string(show.Status),
		show.Notes,
		show.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func cellID(row []interface{}) (int64, bool) {
	if len(row) == 0 {
		return 0, false
	}
	var id int64
	switch v := row[0].(type) {
	case float64:
		id = int64(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		id = parsed
	}
	return id, id > 0
}

// firstRow extracts the starting row number of an A1 range like "Shows!A10:L10".
func firstRow(a1 string) (int, bool) {
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		a1 = a1[i+1:]
	}
	if i := strings.Index(a1, ":"); i >= 0 {
		a1 = a1[:i]
	}
	digits := strings.TrimLeft(a1, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	row, err := strconv.Atoi(digits)
	if err != nil || row <= 0 {
		return 0, false
	}
	return row, true
}
